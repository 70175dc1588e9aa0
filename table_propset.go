package pff

import "encoding/binary"

// propSetTable implements table type 0xbc (§4.9.2): each record is
// (entry_type: u16, value_type: u16, 4-byte inline-or-reference),
// resolved per §4.9.3. This is the single flat property bag most
// descriptors (folders, messages, attachments) present to the layer
// above this package.
type propSetTable struct {
	rows         []propSetRow
	missingFlags bool
}

type propSetRow struct {
	entryType uint16
	valueType ValueType
	stream    *Stream
}

func parsePropSetTable(ctx *Context, heap *heapOnNode, hdr b5Header, ld *localDescriptors) (*propSetTable, error) {
	t := &propSetTable{}
	var walkErr error
	err := walkRecordEntries(heap, hdr, func(raw []byte) bool {
		if len(raw) < 8 {
			walkErr = newErr("parsePropSetTable", KindCorruptInput, nil)
			return false
		}
		entryType := binary.LittleEndian.Uint16(raw[0:2])
		valueType := ValueType(binary.LittleEndian.Uint16(raw[2:4]))
		stream, flag, err := resolveRowValue(ctx, heap, ld, valueType, raw[4:8], false)
		if err != nil {
			walkErr = err
			return false
		}
		if flag == FlagMissingDataDescriptor {
			t.missingFlags = true
		}
		t.rows = append(t.rows, propSetRow{entryType: entryType, valueType: valueType, stream: stream})
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

func (t *propSetTable) sets() int    { return 1 }
func (t *propSetTable) columns() int { return len(t.rows) }

func (t *propSetTable) flags() Flag {
	if t.missingFlags {
		return FlagMissingRecordEntryData
	}
	return 0
}

func (t *propSetTable) cell(set, col int) (Cell, error) {
	if set != 0 || col < 0 || col >= len(t.rows) {
		return Cell{}, newErr("propSetTable.cell", KindInvalidInput, nil)
	}
	r := t.rows[col]
	return Cell{
		ID:        recordEntryIdentifier{EntryType: r.entryType, ValueType: r.valueType},
		ValueType: r.valueType,
		Stream:    r.stream,
	}, nil
}

func (t *propSetTable) cellByEntryType(set int, entryType uint16, wantedType ValueType, anyType bool) (Cell, bool, error) {
	if set != 0 {
		return Cell{}, false, nil
	}
	for _, r := range t.rows {
		if r.entryType != entryType {
			continue
		}
		if !anyType && r.valueType != wantedType {
			continue
		}
		return Cell{
			ID:        recordEntryIdentifier{EntryType: r.entryType, ValueType: r.valueType},
			ValueType: r.valueType,
			Stream:    r.stream,
		}, true, nil
	}
	return Cell{}, false, nil
}
