package pff

import "encoding/binary"

// Shared b5 sub-header (§4.9): every table type except a5, which has no
// b5 header, points to one of these. Its discriminator is 0xb5, matching the table-type
// discriminator convention used by the outer header cell.
const (
	b5HeaderSize = 8

	b5OffDiscriminator = 0 // u8, must be tableTypeB5Header
	b5OffIDSize        = 1 // u8
	b5OffValueSize     = 2 // u8
	b5OffLevel         = 3 // u8
	b5OffRootRef        = 4 // u32
)

type b5Header struct {
	IDSize    uint8
	ValueSize uint8
	Level     uint8
	RootRef   uint32
}

func parseB5Header(cell []byte) (b5Header, error) {
	if len(cell) < b5HeaderSize {
		return b5Header{}, newErr("parseB5Header", KindSizeMismatch, nil)
	}
	if TableType(cell[b5OffDiscriminator]) != tableTypeB5Header {
		return b5Header{}, newErr("parseB5Header", KindInvalidSignature, nil)
	}
	return b5Header{
		IDSize:    cell[b5OffIDSize],
		ValueSize: cell[b5OffValueSize],
		Level:     cell[b5OffLevel],
		RootRef:   binary.LittleEndian.Uint32(cell[b5OffRootRef:]),
	}, nil
}

// recordEntryIdentifier is the decoded form of one of the three shapes
// named in the GLOSSARY: a MAPI property, a GUID, or an opaque secure4
// value. Which field is meaningful depends on the owning table type.
type recordEntryIdentifier struct {
	EntryType uint16
	ValueType ValueType
	GUID      [16]byte
	Secure4   uint64
}

// walkRecordEntries implements §4.9.1: descend the record-entry sub-tree
// rooted at hdr.RootRef, yielding every leaf record's raw bytes (size
// hdr.IDSize+hdr.ValueSize) in order. A Level of 0 means the root cell is
// already the flat leaf array.
func walkRecordEntries(h *heapOnNode, hdr b5Header, visit func(raw []byte) bool) error {
	return walkRecordEntryNode(h, hdr, hdr.RootRef, hdr.Level, visit)
}

func walkRecordEntryNode(h *heapOnNode, hdr b5Header, ref uint32, level uint8, visit func(raw []byte) bool) error {
	cell, err := h.cell(ref)
	if err != nil {
		return err
	}
	recSize := int(hdr.IDSize) + int(hdr.ValueSize)
	if recSize <= 0 {
		return newErr("walkRecordEntryNode", KindCorruptInput, nil)
	}

	if level == 0 {
		count := len(cell) / recSize
		for i := 0; i < count; i++ {
			if !visit(cell[i*recSize : (i+1)*recSize]) {
				return nil
			}
		}
		return nil
	}

	branchEntrySize := int(hdr.IDSize) + 4
	count := len(cell) / branchEntrySize
	for i := 0; i < count; i++ {
		entry := cell[i*branchEntrySize : (i+1)*branchEntrySize]
		childRef := binary.LittleEndian.Uint32(entry[hdr.IDSize:])
		if err := walkRecordEntryNode(h, hdr, childRef, level-1, visit); err != nil {
			return err
		}
	}
	return nil
}
