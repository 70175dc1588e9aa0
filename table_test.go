package pff

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildTableHeaderCell lays out the fixed 8-byte table header cell: the
// type discriminator at byte 0 and a heap reference to the shared b5
// sub-header at bytes 4..7. typeSpecific is appended after byte 8 for the
// types (6c, 7c, ac) that carry extra fields there.
func buildTableHeaderCell(tableType TableType, b5Ref uint32, typeSpecific []byte) []byte {
	cell := make([]byte, tableHeaderFixedSize)
	cell[tableHeaderOffType] = byte(tableType)
	binary.LittleEndian.PutUint32(cell[tableHeaderOffB5Ref:], b5Ref)
	return append(cell, typeSpecific...)
}

func TestOpenTablePropSet(t *testing.T) {
	// Cell layout within segment 0:
	//   0: table header (type=bc, b5ref -> cell 2)
	//   1: unused filler
	//   2: b5 sub-header (idSize=2, valueSize=6, level=0, rootRef -> cell 3)
	//   3: flat leaf records (two rows)
	//   4: heap-resident binary value referenced by row 2
	binaryPayload := []byte("xyz binary payload")

	row1 := make([]byte, 8)
	binary.LittleEndian.PutUint16(row1[0:2], 0x0001)
	binary.LittleEndian.PutUint16(row1[2:4], uint16(TypeInteger32))
	binary.LittleEndian.PutUint32(row1[4:8], 0x2a)

	row2 := make([]byte, 8)
	binary.LittleEndian.PutUint16(row2[0:2], 0x0002)
	binary.LittleEndian.PutUint16(row2[2:4], uint16(TypeBinary))
	binary.LittleEndian.PutUint32(row2[4:8], encodeHeapRef(0, 4))

	headerCell := buildTableHeaderCell(TableTypePropSet, encodeHeapRef(0, 2), nil)
	b5Cell := buildB5HeaderCell(2, 6, 0, encodeHeapRef(0, 3))
	leafCell := append(append([]byte{}, row1...), row2...)

	segRaw := buildHeapSegment([][]byte{
		headerCell,
		{},
		b5Cell,
		leafCell,
		binaryPayload,
	})
	stream := newBlockStream(segRaw)

	table, err := openTable(nil, stream, nil)
	if err != nil {
		t.Fatalf("openTable: %v", err)
	}
	if table.Type != TableTypePropSet {
		t.Fatalf("Type = %v, want TableTypePropSet", table.Type)
	}
	if table.Sets() != 1 {
		t.Fatalf("Sets() = %d, want 1", table.Sets())
	}
	if table.Columns() != 2 {
		t.Fatalf("Columns() = %d, want 2", table.Columns())
	}

	cell, err := table.CellAt(0, 0)
	if err != nil {
		t.Fatalf("CellAt(0,0): %v", err)
	}
	got, _ := cell.Stream.ReadAll()
	if !bytes.Equal(got, []byte{0x2a, 0, 0, 0}) {
		t.Errorf("CellAt(0,0) = %v, want literal 0x2a", got)
	}

	cell, found, err := table.CellByEntryType(0, 0x0002, TypeBinary, false)
	if err != nil {
		t.Fatalf("CellByEntryType: %v", err)
	}
	if !found {
		t.Fatal("CellByEntryType(0x0002): not found")
	}
	got, err = cell.Stream.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, binaryPayload) {
		t.Errorf("CellByEntryType(0x0002) = %q, want %q", got, binaryPayload)
	}

	if _, found, _ := table.CellByEntryType(0, 0x9999, TypeBinary, false); found {
		t.Error("CellByEntryType(0x9999): want not found")
	}
}

func TestOpenTableGUIDMap(t *testing.T) {
	slot0 := bytes.Repeat([]byte{0x11}, 16)
	slot1 := bytes.Repeat([]byte{0x22}, 16)
	values := append(append([]byte{}, slot0...), slot1...)

	var guidA, guidB [16]byte
	guidA[0] = 0xaa
	guidB[0] = 0xbb

	row := func(guid [16]byte, index uint16) []byte {
		r := make([]byte, 18)
		copy(r[:16], guid[:])
		binary.LittleEndian.PutUint16(r[16:18], index)
		return r
	}
	leafCell := append(row(guidA, 0), row(guidB, 1)...)

	// Header cell: type (1) + pad (3) + b5ref (4) + valuesArrayRef (4).
	headerCell := buildTableHeaderCell(TableTypeGUIDMap, encodeHeapRef(0, 2), nil)
	headerCell = append(headerCell, make([]byte, 4)...)
	binary.LittleEndian.PutUint32(headerCell[guidMapValuesArrayRefOff:], encodeHeapRef(0, 4))

	b5Cell := buildB5HeaderCell(16, 2, 0, encodeHeapRef(0, 3))

	segRaw := buildHeapSegment([][]byte{
		headerCell,
		{},
		b5Cell,
		leafCell,
		values,
	})
	stream := newBlockStream(segRaw)

	table, err := openTable(nil, stream, nil)
	if err != nil {
		t.Fatalf("openTable: %v", err)
	}
	if table.Type != TableTypeGUIDMap {
		t.Fatalf("Type = %v, want TableTypeGUIDMap", table.Type)
	}
	if table.Sets() != 2 {
		t.Fatalf("Sets() = %d, want 2", table.Sets())
	}

	cell, err := table.CellAt(0, 0)
	if err != nil {
		t.Fatalf("CellAt(0,0): %v", err)
	}
	if cell.ID.GUID != guidA {
		t.Errorf("CellAt(0,0).ID.GUID = %x, want %x", cell.ID.GUID, guidA)
	}
	got, _ := cell.Stream.ReadAll()
	if !bytes.Equal(got, slot0) {
		t.Errorf("CellAt(0,0) value = %v, want %v", got, slot0)
	}

	cell, err = table.CellAt(1, 0)
	if err != nil {
		t.Fatalf("CellAt(1,0): %v", err)
	}
	got, _ = cell.Stream.ReadAll()
	if !bytes.Equal(got, slot1) {
		t.Errorf("CellAt(1,0) value = %v, want %v", got, slot1)
	}
}

func TestOpenTableRejectsUnknownType(t *testing.T) {
	headerCell := buildTableHeaderCell(TableType(0xff), encodeHeapRef(0, 1), nil)
	segRaw := buildHeapSegment([][]byte{headerCell, {}})
	stream := newBlockStream(segRaw)
	if _, err := openTable(nil, stream, nil); err == nil {
		t.Error("openTable with unknown table type: want error, got nil")
	}
}
