package pff

import "encoding/binary"

// Table header cell layout (§4.9): lives at heap reference 0x20 of
// segment 0. Byte 0 is the type discriminator; bytes 4..7 (for every type
// but a5, which carries no b5 header) are a heap reference to the shared
// b5 sub-header. Type-specific fields, where present, follow at byte 8.
const (
	tableHeaderOffType  = 0
	tableHeaderOffB5Ref = 4
	tableHeaderFixedSize = 8
)

// Cell is one resolved table value: its identifier, its declared value
// type, and a stream over its bytes (§4.12 Table::cell).
type Cell struct {
	ID        recordEntryIdentifier
	ValueType ValueType
	Stream    *Stream
}

// tableBody is implemented by each of the seven per-type parsers; Table
// forwards the public C12 surface to it.
type tableBody interface {
	sets() int
	columns() int
	cell(set, col int) (Cell, error)
	cellByEntryType(set int, entryType uint16, wantedType ValueType, anyType bool) (Cell, bool, error)
}

// Table is C9's result: a parsed heap-on-node table of one of the seven
// on-disk shapes, ready for the public descriptor API (§4.12).
type Table struct {
	Type  TableType
	Flags FlagSet

	heap *heapOnNode
	body tableBody
}

// openTable implements C9 end to end: build the heap-on-node index over
// stream, read the table header cell, parse its shared b5 sub-header
// (every type but a5), and dispatch to the type-specific parser.
func openTable(ctx *Context, stream *Stream, ld *localDescriptors) (*Table, error) {
	heap, err := newHeapOnNode(stream)
	if err != nil {
		return nil, err
	}
	headerCell, err := heap.cell(tableHeaderRef)
	if err != nil {
		return nil, err
	}
	if len(headerCell) < 1 {
		return nil, newErr("openTable", KindCorruptInput, nil)
	}
	t := TableType(headerCell[tableHeaderOffType])
	if !t.valid() {
		return nil, newErr("openTable", KindInvalidSignature, nil)
	}

	table := &Table{Type: t, heap: heap}

	var hdr b5Header
	if t != TableTypeCellSet {
		if len(headerCell) < tableHeaderFixedSize {
			return nil, newErr("openTable", KindCorruptInput, nil)
		}
		b5Ref := binary.LittleEndian.Uint32(headerCell[tableHeaderOffB5Ref:])
		b5Cell, err := heap.cell(b5Ref)
		if err != nil {
			return nil, err
		}
		hdr, err = parseB5Header(b5Cell)
		if err != nil {
			return nil, err
		}
	}

	switch t {
	case TableTypeGUIDMap:
		table.body, err = parseGUIDMapTable(heap, hdr, headerCell)
	case TableTypeRowSet:
		table.body, err = parseRowSetTable(ctx, heap, hdr, headerCell, ld, false)
	case TableTypeID64Map:
		table.body, err = parseID64MapTable(heap, hdr)
	case TableTypeGUIDMap2:
		table.body, err = parseGUIDMap2Table(heap, hdr)
	case TableTypeCellSet:
		table.body, err = parseCellSetTable(heap)
	case TableTypeBigRowSet:
		table.body, err = parseRowSetTable(ctx, heap, hdr, headerCell, ld, true)
	case TableTypePropSet:
		table.body, err = parsePropSetTable(ctx, heap, hdr, ld)
	}
	if err != nil {
		return nil, err
	}
	if bf, ok := table.body.(interface{ flags() Flag }); ok {
		if f := bf.flags(); f != 0 {
			table.Flags.add(FlagMissingRecordEntryData)
			_ = f
		}
	}
	return table, nil
}

// Sets reports the number of row/record sets in the table (§4.12).
func (t *Table) Sets() int { return t.body.sets() }

// Columns reports the number of columns for row-shaped tables (7c/ac); 1
// for key/value map tables; the number of records for bc; and for a5 the
// cell count of set 1 (0 when the table has a single set).
func (t *Table) Columns() int { return t.body.columns() }

// CellAt resolves the value at (set, col) (§4.12 Table::cell).
func (t *Table) CellAt(set, col int) (Cell, error) {
	return t.body.cell(set, col)
}

// CellByEntryType resolves a cell by its MAPI entry-type, optionally
// constrained to an exact value type (anyType=false). Used by property
// sets (bc) and row sets (7c/ac); other table shapes report not-found.
func (t *Table) CellByEntryType(set int, entryType uint16, wantedType ValueType, anyType bool) (Cell, bool, error) {
	return t.body.cellByEntryType(set, entryType, wantedType, anyType)
}

// CellByNameUTF8 resolves a cell by its named property, consulting nm to
// translate the name into the MAPI entry-type this table is keyed by
// (§4.12: the name-to-id map is supplied from above this package's core).
func (t *Table) CellByNameUTF8(set int, name string, nm NameToIDMap) (Cell, bool, error) {
	entryType, ok := nm.Lookup(name)
	if !ok {
		return Cell{}, false, nil
	}
	return t.CellByEntryType(set, entryType, 0, true)
}
