package pff

// cellSetTable implements table type 0xa5 (§4.9.2): no b5 header and no
// fixed schema. Per §3/§4.9.2, one heap segment is one "set"; each cell
// within that segment is one generic byte entry. Segment 0's cell 0 is
// the table header itself and is excluded from set 0's entries.
//
// Because the entry count genuinely varies per set, Columns() reports the
// cell count of set 1 (the first segment without the table header), or 0
// when the table has a single segment, as a convenience; callers that
// need an exact per-set count should call cell() until it reports
// KindCorruptInput for that set.
type cellSetTable struct {
	heap *heapOnNode
}

func parseCellSetTable(heap *heapOnNode) (*cellSetTable, error) {
	if len(heap.segments) == 0 {
		return nil, newErr("parseCellSetTable", KindCorruptInput, nil)
	}
	return &cellSetTable{heap: heap}, nil
}

func (t *cellSetTable) sets() int { return len(t.heap.segments) }

func (t *cellSetTable) columns() int {
	if len(t.heap.segments) < 2 {
		return 0
	}
	seg := t.heap.segments[1]
	if len(seg.bounds) == 0 {
		return 0
	}
	return len(seg.bounds) - 1
}

func (t *cellSetTable) cell(set, col int) (Cell, error) {
	if set < 0 || set >= len(t.heap.segments) || col < 0 {
		return Cell{}, newErr("cellSetTable.cell", KindInvalidInput, nil)
	}
	cellIndex := col
	if set == 0 {
		cellIndex = col + 1 // skip the table header cell
	}
	ref := encodeHeapRef(set, cellIndex)
	raw, err := t.heap.cell(ref)
	if err != nil {
		return Cell{}, err
	}
	return Cell{ValueType: TypeBinary, Stream: newBlockStream(raw)}, nil
}

func (t *cellSetTable) cellByEntryType(set int, entryType uint16, wantedType ValueType, anyType bool) (Cell, bool, error) {
	return Cell{}, false, nil
}
