package pff

import "encoding/binary"

// id64MapTable implements table type 0x8c (§4.9.2): a flat {id: u64,
// value: u32} map with no extra header or values array — the value is
// itself a descriptor id, stored literally.
type id64MapTable struct {
	rows []id64MapRow
}

type id64MapRow struct {
	id    uint64
	value uint32
}

func parseID64MapTable(heap *heapOnNode, hdr b5Header) (*id64MapTable, error) {
	t := &id64MapTable{}
	err := walkRecordEntries(heap, hdr, func(raw []byte) bool {
		t.rows = append(t.rows, id64MapRow{
			id:    binary.LittleEndian.Uint64(raw[:8]),
			value: binary.LittleEndian.Uint32(raw[8:12]),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *id64MapTable) sets() int    { return len(t.rows) }
func (t *id64MapTable) columns() int { return 1 }

func (t *id64MapTable) cell(set, col int) (Cell, error) {
	if set < 0 || set >= len(t.rows) || col != 0 {
		return Cell{}, newErr("id64MapTable.cell", KindInvalidInput, nil)
	}
	row := t.rows[set]
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, row.value)
	return Cell{
		ID:        recordEntryIdentifier{Secure4: row.id},
		ValueType: TypeInteger32,
		Stream:    newBlockStream(buf),
	}, nil
}

func (t *id64MapTable) cellByEntryType(set int, entryType uint16, wantedType ValueType, anyType bool) (Cell, bool, error) {
	return Cell{}, false, nil
}
