package pff

// Descriptor is one resolved descriptor record (§3), ready to have its
// data stream or table opened (§4.12).
type Descriptor struct {
	ctx       *Context
	record    descriptorRecord
	recovered bool
}

// ID returns the descriptor's 32-bit id.
func (d *Descriptor) ID() uint32 { return d.record.ID }

// ParentID returns the id of the descriptor's logical parent (folder
// hierarchy, typically interpreted above this package).
func (d *Descriptor) ParentID() uint32 { return d.record.ParentID }

// Recovered reports whether this descriptor came from the recovery engine
// rather than the live descriptor index.
func (d *Descriptor) Recovered() bool { return d.recovered }

// GetDescriptor implements §4.12 get_descriptor: resolve id in the live
// descriptor index.
func (c *Context) GetDescriptor(id uint32) (*Descriptor, error) {
	e, err := c.descriptorIndex.lookup(uint64(id))
	if err != nil {
		return nil, newErr("GetDescriptor", KindMissingDescriptor, err)
	}
	return &Descriptor{ctx: c, record: decodeDescriptorEntry(e, c.header.Variant)}, nil
}

// GetRecoveredDescriptor implements §4.12 get_recovered_descriptor:
// resolve id in the recovered-descriptor set built by a prior Recover
// call, selecting the valueIndex'th candidate (§4.11 step 1: "insert into
// the recovered-descriptor tree with the first working
// recovered_value_index").
func (c *Context) GetRecoveredDescriptor(id uint32, valueIndex int) (*Descriptor, error) {
	if c.recovered == nil {
		return nil, newErr("GetRecoveredDescriptor", KindMissingDescriptor, nil)
	}
	candidates, ok := c.recovered.descriptors[id]
	if !ok || valueIndex < 0 || valueIndex >= len(candidates) {
		return nil, newErr("GetRecoveredDescriptor", KindMissingDescriptor, nil)
	}
	return &Descriptor{ctx: c, record: candidates[valueIndex], recovered: true}, nil
}

// OpenData implements §4.12 Descriptor::open_data: a random-access
// ReadableStream over the descriptor's spliced payload.
func (d *Descriptor) OpenData() (*Stream, FlagSet, error) {
	return d.ctx.openStream(d.record.DataID)
}

// OpenTable implements §4.12 Descriptor::open_table: runs the full heap-
// on-node / table engine (C9) over the descriptor's data stream, with its
// local-descriptors tree (if any) available for out-of-line values.
func (d *Descriptor) OpenTable() (*Table, error) {
	stream, _, err := d.ctx.openStream(d.record.DataID)
	if err != nil {
		return nil, err
	}
	ld := d.ctx.localDescriptorsFor(d.record.LocalDescriptorsID)
	return openTable(d.ctx, stream, ld)
}
