// Package pff parses Microsoft Personal Folder File (PFF) containers — the
// on-disk format behind PST, OST, and PAB mail stores. It is a read-only
// storage and decoding layer: given an opaque random-access byte source, it
// exposes the descriptor index, the offset/block index, the block and
// data-array layers, the local-descriptors tree, and the heap-on-node/table
// engine that turns a descriptor's data stream into typed property records.
//
// Interpretation of property values (strings, GUIDs, times) and the
// higher-level folder/message/attachment item tree are deliberately left to
// a layer above this package.
package pff

// Signature is the fixed 4-byte magic at file offset 0 ("!BDN" in ASCII,
// little-endian on disk as bytes 21 42 44 4E).
const Signature = "!BDN"

// ContentType names the 2 ASCII bytes at file offset 8..9.
type ContentType string

const (
	ContentTypePAB ContentType = "PM"
	ContentTypePST ContentType = "SM"
	ContentTypeOST ContentType = "SO"
)

// Variant selects the 32-bit or 64-bit on-disk shape: pointer widths,
// footer layouts, index-node entry sizes, and data-array identifier widths
// all follow from it. A Variant is immutable once the file header has been
// parsed (§3).
type Variant uint8

const (
	Variant32 Variant = iota
	Variant64
)

func (v Variant) String() string {
	if v == Variant64 {
		return "64-bit"
	}
	return "32-bit"
}

// EncryptionMode names the block-cipher scheme declared by the file header
// (§4.2). It is the file's nominal mode; individual blocks may still need
// force-decryption under the Compressible heuristic (§8 S3).
type EncryptionMode uint8

const (
	EncryptionNone EncryptionMode = iota
	EncryptionCompressible
	EncryptionHigh
)

func (m EncryptionMode) String() string {
	switch m {
	case EncryptionNone:
		return "none"
	case EncryptionCompressible:
		return "compressible"
	case EncryptionHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ValueType is the 16-bit MAPI property value-type tag carried by a record
// entry identifier (§3 "Record entry identifier").
type ValueType uint16

// Value types referenced directly by §4.9.2's per-type rules. The full MAPI
// value-type space is much larger; types not named here still flow through
// as opaque byte slices — interpretation lives above this package.
const (
	TypeUnspecified ValueType = 0x0000
	TypeBoolean     ValueType = 0x000B
	TypeInteger16   ValueType = 0x0002
	TypeInteger32   ValueType = 0x0003
	TypeFloat32     ValueType = 0x0004
	TypeFloat64     ValueType = 0x0005
	TypeCurrency    ValueType = 0x0006
	TypeAppTime     ValueType = 0x0007
	TypeError       ValueType = 0x000A
	TypeInteger64   ValueType = 0x0014
	TypeString      ValueType = 0x001E
	TypeStringUTF16 ValueType = 0x001F
	TypeFileTime    ValueType = 0x0040
	TypeGUID        ValueType = 0x0048
	TypeBinary      ValueType = 0x0102
	TypeMultiInt32  ValueType = 0x1003
)

// isSmallFixed reports whether vt is stored inline in a 4-byte record value
// for every table type (§4.9.3 first bullet).
func (vt ValueType) isSmallFixed() bool {
	switch vt {
	case TypeBoolean, TypeInteger16, TypeInteger32, TypeFloat32, TypeError:
		return true
	default:
		return false
	}
}

// isEightByteInline reports whether vt is stored inline at 8 bytes when the
// enclosing table is a 7c row set (§4.9.3: "and — for 7c only — i64/f64/
// currency/apptime/filetime stored inline at 8 bytes").
func (vt ValueType) isEightByteInline() bool {
	switch vt {
	case TypeInteger64, TypeFloat64, TypeCurrency, TypeAppTime, TypeFileTime:
		return true
	default:
		return false
	}
}

// TableType is the discriminator byte at the start of a table header cell
// (§4.9, §4.9.2).
type TableType byte

const (
	TableTypeGUIDMap  TableType = 0x6c
	TableTypeRowSet   TableType = 0x7c
	TableTypeID64Map  TableType = 0x8c
	TableTypeGUIDMap2 TableType = 0x9c
	TableTypeCellSet  TableType = 0xa5
	TableTypeBigRowSet TableType = 0xac
	TableTypePropSet  TableType = 0xbc

	// tableTypeB5Header is the shared nested header every table type
	// except a5 points to (§4.9).
	tableTypeB5Header TableType = 0xb5
)

func (t TableType) valid() bool {
	switch t {
	case TableTypeGUIDMap, TableTypeRowSet, TableTypeID64Map,
		TableTypeGUIDMap2, TableTypeCellSet, TableTypeBigRowSet, TableTypePropSet:
		return true
	default:
		return false
	}
}

func (t TableType) String() string {
	switch t {
	case TableTypeGUIDMap:
		return "6c"
	case TableTypeRowSet:
		return "7c"
	case TableTypeID64Map:
		return "8c"
	case TableTypeGUIDMap2:
		return "9c"
	case TableTypeCellSet:
		return "a5"
	case TableTypeBigRowSet:
		return "ac"
	case TableTypePropSet:
		return "bc"
	default:
		return "unknown"
	}
}

// block-id low-bit flags (§3 "Offset/block record").
const (
	blockIDFlagMask     = 0x1f
	blockIDFlagInternal = 0x02
)

func isInternalBlockID(id uint64) bool {
	return id&blockIDFlagInternal != 0
}

func maskBlockID(id uint64) uint64 {
	return id &^ blockIDFlagMask
}
