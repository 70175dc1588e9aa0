package pff

import "encoding/binary"

// rowSetTable implements table types 0x7c and 0xac (§4.9.2): a column
// schema plus a values array indexed by row. Records from the shared b5
// tree carry (row id, byte offset into the values array); a row's value
// for column k is sliced out of the values array at that offset.
//
// 0x7c stores its column schema and values-array heap reference directly
// in the table header cell; 0xac stores both as local-descriptor ids,
// opened as ordinary streams (§4.9.2: "like 7c but column schema and
// values array live in sub-descriptors").
const (
	rowSetOffRowCount  = tableHeaderFixedSize      // u32, not read by this parser
	rowSetOffRowStride = tableHeaderFixedSize + 4  // u16
	rowSetOffColCount  = tableHeaderFixedSize + 6  // u16

	rowSet7cOffValuesArrayRef = tableHeaderFixedSize + 8  // u32
	rowSet7cOffColumns        = tableHeaderFixedSize + 12 // N * rowColumnSize

	rowSetAcOffColumnsLocalDescID     = tableHeaderFixedSize + 8  // u64
	rowSetAcOffValuesArrayLocalDescID = tableHeaderFixedSize + 16 // u64

	rowColumnSize = 10 // entryType(2)+valueType(2)+offset(2)+width(2)+number(2)
)

type rowColumn struct {
	EntryType uint16
	ValueType ValueType
	Offset    uint16
	Width     uint16
	Number    uint16
}

type rowSetRow struct {
	ID           uint32
	ValuesOffset int
}

type rowSetTable struct {
	ctx         *Context
	heap        *heapOnNode
	ld          *localDescriptors
	big         bool // true for 0xac
	columns     []rowColumn
	valuesArray []byte
	rows        []rowSetRow
	missing     bool
}

func parseRowColumns(raw []byte, count int) ([]rowColumn, error) {
	if len(raw) < count*rowColumnSize {
		return nil, newErr("parseRowColumns", KindCorruptInput, nil)
	}
	cols := make([]rowColumn, count)
	for i := 0; i < count; i++ {
		c := raw[i*rowColumnSize:]
		cols[i] = rowColumn{
			EntryType: binary.LittleEndian.Uint16(c[0:2]),
			ValueType: ValueType(binary.LittleEndian.Uint16(c[2:4])),
			Offset:    binary.LittleEndian.Uint16(c[4:6]),
			Width:     binary.LittleEndian.Uint16(c[6:8]),
			Number:    binary.LittleEndian.Uint16(c[8:10]),
		}
	}
	return cols, nil
}

func parseRowSetTable(ctx *Context, heap *heapOnNode, hdr b5Header, headerCell []byte, ld *localDescriptors, big bool) (*rowSetTable, error) {
	if len(headerCell) < rowSetOffColCount+2 {
		return nil, newErr("parseRowSetTable", KindCorruptInput, nil)
	}
	colCount := int(binary.LittleEndian.Uint16(headerCell[rowSetOffColCount:]))

	t := &rowSetTable{ctx: ctx, heap: heap, ld: ld, big: big}

	if big {
		if len(headerCell) < rowSetAcOffValuesArrayLocalDescID+8 {
			return nil, newErr("parseRowSetTable", KindCorruptInput, nil)
		}
		colsID := binary.LittleEndian.Uint64(headerCell[rowSetAcOffColumnsLocalDescID:])
		valuesID := binary.LittleEndian.Uint64(headerCell[rowSetAcOffValuesArrayLocalDescID:])

		colsBytes, err := t.openLocalDescriptorBytes(colsID)
		if err != nil {
			return nil, err
		}
		cols, err := parseRowColumns(colsBytes, colCount)
		if err != nil {
			return nil, err
		}
		t.columns = cols

		valuesBytes, err := t.openLocalDescriptorBytes(valuesID)
		if err != nil {
			return nil, err
		}
		t.valuesArray = valuesBytes
	} else {
		if len(headerCell) < rowSet7cOffColumns+colCount*rowColumnSize {
			return nil, newErr("parseRowSetTable", KindCorruptInput, nil)
		}
		cols, err := parseRowColumns(headerCell[rowSet7cOffColumns:], colCount)
		if err != nil {
			return nil, err
		}
		t.columns = cols

		ref := binary.LittleEndian.Uint32(headerCell[rowSet7cOffValuesArrayRef:])
		if ref != 0 {
			v, err := heap.cell(ref)
			if err != nil {
				return nil, err
			}
			t.valuesArray = v
		}
	}

	var walkErr error
	err := walkRecordEntries(heap, hdr, func(raw []byte) bool {
		if len(raw) < 4+int(hdr.ValueSize) {
			walkErr = newErr("parseRowSetTable", KindCorruptInput, nil)
			return false
		}
		id := binary.LittleEndian.Uint32(raw[:4])
		var offset int
		switch hdr.ValueSize {
		case 2:
			offset = int(binary.LittleEndian.Uint16(raw[4:6]))
		default:
			offset = int(binary.LittleEndian.Uint32(raw[4:8]))
		}
		t.rows = append(t.rows, rowSetRow{ID: id, ValuesOffset: offset})
		return true
	})
	if err != nil {
		return nil, err
	}
	if walkErr != nil {
		return nil, walkErr
	}
	return t, nil
}

func (t *rowSetTable) openLocalDescriptorBytes(id uint64) ([]byte, error) {
	if t.ld == nil {
		return nil, nil
	}
	leaf, err := t.ld.lookup(id)
	if err != nil {
		if KindOf(err) == KindMissingDescriptor {
			return nil, nil
		}
		return nil, err
	}
	stream, _, err := t.ctx.openStream(leaf.DataID)
	if err != nil {
		return nil, err
	}
	return stream.ReadAll()
}

func (t *rowSetTable) sets() int    { return len(t.rows) }
func (t *rowSetTable) columns() int { return len(t.columns) }

func (t *rowSetTable) flags() Flag {
	if t.missing {
		return FlagMissingRecordEntryData
	}
	return 0
}

func (t *rowSetTable) cell(set, col int) (Cell, error) {
	if set < 0 || set >= len(t.rows) || col < 0 || col >= len(t.columns) {
		return Cell{}, newErr("rowSetTable.cell", KindInvalidInput, nil)
	}
	row := t.rows[set]
	c := t.columns[col]
	start := row.ValuesOffset + int(c.Offset)
	end := start + int(c.Width)
	if start < 0 || end > len(t.valuesArray) {
		return Cell{}, newErr("rowSetTable.cell", KindCorruptInput, nil)
	}
	raw := t.valuesArray[start:end]

	var stream *Stream
	var flag Flag
	var err error
	if c.Width == 4 {
		stream, flag, err = resolveRowValue(t.ctx, t.heap, t.ld, c.ValueType, raw, false)
	} else if !t.big && c.Width == 8 && c.ValueType.isEightByteInline() {
		stream = newBlockStream(raw)
	} else {
		stream = newBlockStream(raw)
	}
	if err != nil {
		return Cell{}, err
	}
	if flag == FlagMissingDataDescriptor {
		t.missing = true
	}
	return Cell{
		ID:        recordEntryIdentifier{EntryType: c.EntryType, ValueType: c.ValueType},
		ValueType: c.ValueType,
		Stream:    stream,
	}, nil
}

func (t *rowSetTable) cellByEntryType(set int, entryType uint16, wantedType ValueType, anyType bool) (Cell, bool, error) {
	for i, c := range t.columns {
		if c.EntryType != entryType {
			continue
		}
		if !anyType && c.ValueType != wantedType {
			continue
		}
		cell, err := t.cell(set, i)
		if err != nil {
			return Cell{}, false, err
		}
		return cell, true, nil
	}
	return Cell{}, false, nil
}
