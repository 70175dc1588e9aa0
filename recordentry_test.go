package pff

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildB5HeaderCell(idSize, valueSize, level uint8, rootRef uint32) []byte {
	cell := make([]byte, b5HeaderSize)
	cell[b5OffDiscriminator] = byte(tableTypeB5Header)
	cell[b5OffIDSize] = idSize
	cell[b5OffValueSize] = valueSize
	cell[b5OffLevel] = level
	binary.LittleEndian.PutUint32(cell[b5OffRootRef:], rootRef)
	return cell
}

func TestParseB5Header(t *testing.T) {
	cell := buildB5HeaderCell(2, 6, 0, tableHeaderRef)
	hdr, err := parseB5Header(cell)
	if err != nil {
		t.Fatalf("parseB5Header: %v", err)
	}
	if hdr.IDSize != 2 || hdr.ValueSize != 6 || hdr.Level != 0 || hdr.RootRef != tableHeaderRef {
		t.Errorf("parseB5Header = %+v, want IDSize=2 ValueSize=6 Level=0 RootRef=%#x", hdr, tableHeaderRef)
	}
}

func TestParseB5HeaderWrongDiscriminator(t *testing.T) {
	cell := buildB5HeaderCell(2, 6, 0, 0)
	cell[b5OffDiscriminator] = 0x00
	if _, err := parseB5Header(cell); err == nil {
		t.Error("parseB5Header with wrong discriminator: want error, got nil")
	}
}

func TestParseB5HeaderTooShort(t *testing.T) {
	if _, err := parseB5Header([]byte{0xb5, 1, 2}); err == nil {
		t.Error("parseB5Header with short buffer: want error, got nil")
	}
}

func TestWalkRecordEntriesFlatLeaf(t *testing.T) {
	// Three fixed-width records of entryType(2)+value(4).
	records := [][]byte{
		{0x01, 0x00, 0xaa, 0xbb, 0xcc, 0xdd},
		{0x02, 0x00, 0x11, 0x22, 0x33, 0x44},
		{0x03, 0x00, 0x55, 0x66, 0x77, 0x88},
	}
	var leafCell []byte
	for _, r := range records {
		leafCell = append(leafCell, r...)
	}

	segRaw := buildHeapSegment([][]byte{
		{}, // cell 0 (index 0): table header cell, unused here
		leafCell,
	})
	seg, err := parseHeapSegment(segRaw)
	if err != nil {
		t.Fatalf("parseHeapSegment: %v", err)
	}
	h := &heapOnNode{segments: []heapSegment{seg}}

	hdr := b5Header{IDSize: 2, ValueSize: 4, Level: 0, RootRef: encodeHeapRef(0, 1)}

	var got [][]byte
	err = walkRecordEntries(h, hdr, func(raw []byte) bool {
		got = append(got, append([]byte(nil), raw...))
		return true
	})
	if err != nil {
		t.Fatalf("walkRecordEntries: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("walkRecordEntries visited %d records, want %d", len(got), len(records))
	}
	for i, want := range records {
		if !bytes.Equal(got[i], want) {
			t.Errorf("record[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestWalkRecordEntriesBranchLevel(t *testing.T) {
	leafA := []byte{0x01, 0x00, 1, 2, 3, 4}
	leafB := []byte{0x02, 0x00, 5, 6, 7, 8}

	// Segment layout: cell0 = header placeholder, cell1 = leafA, cell2 = leafB,
	// cell3 = branch node with two entries (key(2) + childRef(4)).
	branch := func(key uint16, ref uint32) []byte {
		e := make([]byte, 6)
		binary.LittleEndian.PutUint16(e[0:2], key)
		binary.LittleEndian.PutUint32(e[2:6], ref)
		return e
	}

	segRaw := buildHeapSegment([][]byte{
		{},     // cell 0 (header placeholder)
		leafA,  // cell 1
		leafB,  // cell 2
		append(branch(1, encodeHeapRef(0, 1)), branch(2, encodeHeapRef(0, 2))...), // cell 3
	})
	seg, err := parseHeapSegment(segRaw)
	if err != nil {
		t.Fatalf("parseHeapSegment: %v", err)
	}
	h := &heapOnNode{segments: []heapSegment{seg}}

	hdr := b5Header{IDSize: 2, ValueSize: 4, Level: 1, RootRef: encodeHeapRef(0, 3)}

	var got [][]byte
	err = walkRecordEntries(h, hdr, func(raw []byte) bool {
		got = append(got, append([]byte(nil), raw...))
		return true
	})
	if err != nil {
		t.Fatalf("walkRecordEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("walkRecordEntries visited %d records, want 2", len(got))
	}
	if !bytes.Equal(got[0], leafA) || !bytes.Equal(got[1], leafB) {
		t.Errorf("records = %v, want [%v %v]", got, leafA, leafB)
	}
}
