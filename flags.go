package pff

// Flag is a non-fatal anomaly recorded against a Block or a Table
// instead of aborting the read: a typed, inspectable set attached to the
// affected object rather than a fatal error.
type Flag int

const (
	// FlagCrcMismatch means the block payload's weak CRC did not match its
	// footer CRC (only raised when footer.crc != 0, per §4.4).
	FlagCrcMismatch Flag = iota + 1

	// FlagSizeMismatch means the footer's declared size did not match the
	// requested payload size.
	FlagSizeMismatch

	// FlagIdentifierMismatch means the footer's back-pointer did not equal
	// the block-id the caller resolved.
	FlagIdentifierMismatch

	// FlagMissingDataDescriptor is reported by table value resolution for a
	// 4-byte value naming a local-descriptor id absent from the
	// local-descriptors tree (or when the table has no such tree). The value
	// reads as an empty stream. Cell has no flag set, so this flag is not
	// attached to the returned Cell.
	FlagMissingDataDescriptor

	// FlagMissingRecordEntryData is set on a Table when a value resolved
	// while the table is opened carries FlagMissingDataDescriptor. bc values
	// are resolved at open time; 7c/ac cells are resolved on each CellAt
	// call, after Table.Flags is filled in, so a row-set Table does not
	// carry this flag.
	FlagMissingRecordEntryData

	// FlagForceDecrypted marks a block that was re-read under the
	// Compressible codec after the file's nominal encryption mode failed to
	// produce a recognizable table signature (§4.2, §8 S3).
	FlagForceDecrypted
)

func (f Flag) String() string {
	switch f {
	case FlagCrcMismatch:
		return "crc_mismatch"
	case FlagSizeMismatch:
		return "size_mismatch"
	case FlagIdentifierMismatch:
		return "identifier_mismatch"
	case FlagMissingDataDescriptor:
		return "missing_data_descriptor"
	case FlagMissingRecordEntryData:
		return "missing_record_entry_data"
	case FlagForceDecrypted:
		return "force_decrypted"
	default:
		return "unknown_flag"
	}
}

// FlagSet is an ordered collection of Flags attached to one object. add
// skips a Flag already present; the sets openStream returns for a spliced
// data array concatenate every visited block's flags and can repeat one.
type FlagSet []Flag

// Has reports whether f is present in the set.
func (s FlagSet) Has(f Flag) bool {
	for _, x := range s {
		if x == f {
			return true
		}
	}
	return false
}

func (s *FlagSet) add(f Flag) {
	if s.Has(f) {
		return
	}
	*s = append(*s, f)
}
