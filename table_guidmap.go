package pff

import "encoding/binary"

// guidMapTable implements table type 0x6c (§4.9.2): GUID-keyed records
// whose 2-byte value is an index into a values array of fixed 16-byte
// slots.
type guidMapTable struct {
	values []byte // concatenated 16-byte slots
	rows   []guidMapRow
}

type guidMapRow struct {
	key   [16]byte
	index uint16
}

const guidMapValuesArrayRefOff = tableHeaderFixedSize

func parseGUIDMapTable(heap *heapOnNode, hdr b5Header, headerCell []byte) (*guidMapTable, error) {
	var values []byte
	if len(headerCell) >= guidMapValuesArrayRefOff+4 {
		ref := binary.LittleEndian.Uint32(headerCell[guidMapValuesArrayRefOff:])
		if ref != 0 {
			v, err := heap.cell(ref)
			if err != nil {
				return nil, err
			}
			values = v
		}
	}

	t := &guidMapTable{values: values}
	err := walkRecordEntries(heap, hdr, func(raw []byte) bool {
		var row guidMapRow
		copy(row.key[:], raw[:16])
		row.index = binary.LittleEndian.Uint16(raw[16:18])
		t.rows = append(t.rows, row)
		return true
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *guidMapTable) sets() int    { return len(t.rows) }
func (t *guidMapTable) columns() int { return 1 }

func (t *guidMapTable) cell(set, col int) (Cell, error) {
	if set < 0 || set >= len(t.rows) || col != 0 {
		return Cell{}, newErr("guidMapTable.cell", KindInvalidInput, nil)
	}
	row := t.rows[set]
	start := int(row.index) * 16
	var slot []byte
	if start >= 0 && start+16 <= len(t.values) {
		slot = t.values[start : start+16]
	}
	return Cell{
		ID:        recordEntryIdentifier{GUID: row.key},
		ValueType: TypeBinary,
		Stream:    newBlockStream(slot),
	}, nil
}

func (t *guidMapTable) cellByEntryType(set int, entryType uint16, wantedType ValueType, anyType bool) (Cell, bool, error) {
	return Cell{}, false, nil
}
