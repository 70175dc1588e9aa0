package pff

import "encoding/binary"

// guidMap2Table implements table type 0x9c (§4.9.2): a flat {id: GUID,
// value: u32} map, the GUID-keyed sibling of 0x8c.
type guidMap2Table struct {
	rows []guidMap2Row
}

type guidMap2Row struct {
	id    [16]byte
	value uint32
}

func parseGUIDMap2Table(heap *heapOnNode, hdr b5Header) (*guidMap2Table, error) {
	t := &guidMap2Table{}
	err := walkRecordEntries(heap, hdr, func(raw []byte) bool {
		var row guidMap2Row
		copy(row.id[:], raw[:16])
		row.value = binary.LittleEndian.Uint32(raw[16:20])
		t.rows = append(t.rows, row)
		return true
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *guidMap2Table) sets() int    { return len(t.rows) }
func (t *guidMap2Table) columns() int { return 1 }

func (t *guidMap2Table) cell(set, col int) (Cell, error) {
	if set < 0 || set >= len(t.rows) || col != 0 {
		return Cell{}, newErr("guidMap2Table.cell", KindInvalidInput, nil)
	}
	row := t.rows[set]
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, row.value)
	return Cell{
		ID:        recordEntryIdentifier{GUID: row.id},
		ValueType: TypeInteger32,
		Stream:    newBlockStream(buf),
	}, nil
}

func (t *guidMap2Table) cellByEntryType(set int, entryType uint16, wantedType ValueType, anyType bool) (Cell, bool, error) {
	return Cell{}, false, nil
}
