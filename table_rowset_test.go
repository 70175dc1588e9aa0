package pff

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pffparse/pff/source"
)

func buildRowColumn(c rowColumn) []byte {
	raw := make([]byte, rowColumnSize)
	binary.LittleEndian.PutUint16(raw[0:2], c.EntryType)
	binary.LittleEndian.PutUint16(raw[2:4], uint16(c.ValueType))
	binary.LittleEndian.PutUint16(raw[4:6], c.Offset)
	binary.LittleEndian.PutUint16(raw[6:8], c.Width)
	binary.LittleEndian.PutUint16(raw[8:10], c.Number)
	return raw
}

func buildRowLeafEntry(id uint32, offset uint32) []byte {
	e := make([]byte, 8)
	binary.LittleEndian.PutUint32(e[0:4], id)
	binary.LittleEndian.PutUint32(e[4:8], offset)
	return e
}

func TestOpenTableRowSet(t *testing.T) {
	col := rowColumn{EntryType: 0x1234, ValueType: TypeInteger32, Offset: 0, Width: 4, Number: 0}

	headerCell := make([]byte, rowSet7cOffColumns+rowColumnSize)
	binary.LittleEndian.PutUint32(headerCell[tableHeaderOffB5Ref:], encodeHeapRef(0, 2))
	headerCell[tableHeaderOffType] = byte(TableTypeRowSet)
	binary.LittleEndian.PutUint16(headerCell[rowSetOffColCount:], 1)
	binary.LittleEndian.PutUint32(headerCell[rowSet7cOffValuesArrayRef:], encodeHeapRef(0, 4))
	copy(headerCell[rowSet7cOffColumns:], buildRowColumn(col))

	b5Cell := buildB5HeaderCell(4, 4, 0, encodeHeapRef(0, 3))

	leafCell := append(buildRowLeafEntry(1, 0), buildRowLeafEntry(2, 4)...)

	valuesArray := make([]byte, 8)
	binary.LittleEndian.PutUint32(valuesArray[0:4], 0x2a)
	binary.LittleEndian.PutUint32(valuesArray[4:8], 0x99)

	segRaw := buildHeapSegment([][]byte{
		headerCell,
		{},
		b5Cell,
		leafCell,
		valuesArray,
	})
	stream := newBlockStream(segRaw)

	table, err := openTable(nil, stream, nil)
	if err != nil {
		t.Fatalf("openTable: %v", err)
	}
	if table.Type != TableTypeRowSet {
		t.Fatalf("Type = %v, want TableTypeRowSet", table.Type)
	}
	if table.Sets() != 2 {
		t.Fatalf("Sets() = %d, want 2", table.Sets())
	}
	if table.Columns() != 1 {
		t.Fatalf("Columns() = %d, want 1", table.Columns())
	}

	cell, err := table.CellAt(0, 0)
	if err != nil {
		t.Fatalf("CellAt(0,0): %v", err)
	}
	got, _ := cell.Stream.ReadAll()
	if !bytes.Equal(got, []byte{0x2a, 0, 0, 0}) {
		t.Errorf("CellAt(0,0) = %v, want 0x2a", got)
	}

	cell, err = table.CellAt(1, 0)
	if err != nil {
		t.Fatalf("CellAt(1,0): %v", err)
	}
	got, _ = cell.Stream.ReadAll()
	if !bytes.Equal(got, []byte{0x99, 0, 0, 0}) {
		t.Errorf("CellAt(1,0) = %v, want 0x99", got)
	}

	cell, found, err := table.CellByEntryType(1, 0x1234, TypeInteger32, false)
	if err != nil || !found {
		t.Fatalf("CellByEntryType: found=%v err=%v", found, err)
	}
	got, _ = cell.Stream.ReadAll()
	if !bytes.Equal(got, []byte{0x99, 0, 0, 0}) {
		t.Errorf("CellByEntryType(row1) = %v, want 0x99", got)
	}
}

// TestOpenTableBigRowSet builds a 0xac table whose column schema and
// values array live behind local-descriptor ids, driving a live Context
// through parseRowSetTable's big branch exactly as a real descriptor's
// table stream would.
func TestOpenTableBigRowSet(t *testing.T) {
	const (
		ldRootBlockID = 700
		colsBlockID   = 734
		valuesBlockID = 766
		colsSubID     = 11
		valuesSubID   = 22
	)

	col := rowColumn{EntryType: 0x5678, ValueType: TypeInteger32, Offset: 0, Width: 4, Number: 0}
	colsPayload := buildRowColumn(col)

	valuesPayload := make([]byte, 4)
	binary.LittleEndian.PutUint32(valuesPayload, 0xdead)

	// Local-descriptors node: two leaf entries, colsSubID and valuesSubID.
	ldPayload := make([]byte, ldHeaderSize+2*ldLeafEntrySize(Variant32))
	ldPayload[ldHeaderSigOff] = ldNodeSignature
	ldPayload[ldHeaderLevelOff] = 0
	binary.LittleEndian.PutUint16(ldPayload[ldHeaderCountOff:], 2)
	entries := ldPayload[ldHeaderSize:]
	entrySize := ldLeafEntrySize(Variant32)
	binary.LittleEndian.PutUint64(entries[0:8], colsSubID)
	binary.LittleEndian.PutUint32(entries[8:12], colsBlockID)
	binary.LittleEndian.PutUint32(entries[12:16], 0)
	binary.LittleEndian.PutUint64(entries[entrySize:entrySize+8], valuesSubID)
	binary.LittleEndian.PutUint32(entries[entrySize+8:entrySize+12], valuesBlockID)
	binary.LittleEndian.PutUint32(entries[entrySize+12:entrySize+16], 0)

	const (
		ldBlockOffset     = int64(indexNodeSize)
		colsBlockOffset   = ldBlockOffset + 128
		valuesBlockOffset = colsBlockOffset + 128
	)

	buf := make([]byte, valuesBlockOffset+128)
	copy(buf[0:], buildOffsetLeafNode([]offsetRecord{
		{BlockID: ldRootBlockID, FileOffset: ldBlockOffset, DataSize: uint32(len(ldPayload)), RefCount: 1},
		{BlockID: colsBlockID, FileOffset: colsBlockOffset, DataSize: uint32(len(colsPayload)), RefCount: 1},
		{BlockID: valuesBlockID, FileOffset: valuesBlockOffset, DataSize: uint32(len(valuesPayload)), RefCount: 1},
	}, Variant32))

	writeBlock := func(off int64, blockID uint64, payload []byte) {
		copy(buf[off:], payload)
		footerOff := off + int64(roundUp64(len(payload)))
		binary.LittleEndian.PutUint16(buf[footerOff+footerSizeOff:], uint16(len(payload)))
		binary.LittleEndian.PutUint32(buf[footerOff+footer32BackPtrOff:], uint32(blockID))
		binary.LittleEndian.PutUint32(buf[footerOff+footer32CRCOff:], weakCRC32(payload))
	}
	writeBlock(ldBlockOffset, ldRootBlockID, ldPayload)
	writeBlock(colsBlockOffset, colsBlockID, colsPayload)
	writeBlock(valuesBlockOffset, valuesBlockID, valuesPayload)

	ctx := &Context{
		src:    source.FromBytes(buf),
		header: &Header{Variant: Variant32, Encryption: EncryptionNone},
		opts:   &Options{},
	}
	ctx.offsetIndex = newIndex(ctx.src, indexKindOffset, Variant32, 0, true, 4)
	ld := ctx.localDescriptorsFor(ldRootBlockID)

	headerCell := make([]byte, rowSetAcOffValuesArrayLocalDescID+8)
	headerCell[tableHeaderOffType] = byte(TableTypeBigRowSet)
	binary.LittleEndian.PutUint32(headerCell[tableHeaderOffB5Ref:], encodeHeapRef(0, 2))
	binary.LittleEndian.PutUint16(headerCell[rowSetOffColCount:], 1)
	binary.LittleEndian.PutUint64(headerCell[rowSetAcOffColumnsLocalDescID:], colsSubID)
	binary.LittleEndian.PutUint64(headerCell[rowSetAcOffValuesArrayLocalDescID:], valuesSubID)

	b5Cell := buildB5HeaderCell(4, 4, 0, encodeHeapRef(0, 3))
	leafCell := buildRowLeafEntry(1, 0)

	segRaw := buildHeapSegment([][]byte{
		headerCell,
		{},
		b5Cell,
		leafCell,
	})
	stream := newBlockStream(segRaw)

	table, err := openTable(ctx, stream, ld)
	if err != nil {
		t.Fatalf("openTable: %v", err)
	}
	if table.Type != TableTypeBigRowSet {
		t.Fatalf("Type = %v, want TableTypeBigRowSet", table.Type)
	}
	if table.Sets() != 1 {
		t.Fatalf("Sets() = %d, want 1", table.Sets())
	}
	if table.Columns() != 1 {
		t.Fatalf("Columns() = %d, want 1", table.Columns())
	}

	cell, err := table.CellAt(0, 0)
	if err != nil {
		t.Fatalf("CellAt(0,0): %v", err)
	}
	got, err := cell.Stream.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, valuesPayload) {
		t.Errorf("CellAt(0,0) = %v, want %v", got, valuesPayload)
	}
}
