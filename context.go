package pff

import (
	"github.com/sirupsen/logrus"

	"github.com/pffparse/pff/source"
)

// Context is the IO context (C8) tying the byte-source adapter (C1)
// together with the file header and the two global index trees (C6). It
// owns every cache in the package and is not safe for concurrent use: a
// caller wanting parallelism opens one Context per goroutine (§5).
type Context struct {
	src    source.Source
	header *Header
	opts   *Options
	log    logrus.FieldLogger

	descriptorIndex *index
	offsetIndex     *index

	forceDecrypt forceDecryptState

	recovered *recoveryIndexes
}

// Open memory-maps path and parses it as a PFF container.
func Open(path string, opts *Options) (*Context, error) {
	src, err := source.FromMmap(path)
	if err != nil {
		return nil, newErr("Open", KindIO, err)
	}
	ctx, err := NewContext(src, opts)
	if err != nil {
		src.Close()
		return nil, err
	}
	return ctx, nil
}

// NewContext parses src (already open) as a PFF container. The returned
// Context takes ownership of src and closes it on Close.
func NewContext(src source.Source, opts *Options) (*Context, error) {
	h, err := readHeader(src)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		src:    src,
		header: h,
		opts:   opts,
		log:    opts.logger(),
	}

	ctx.descriptorIndex = newIndex(src, indexKindDescriptor, h.Variant,
		h.DescriptorIndexRootOffset, opts.strict(), opts.indexCacheSize())
	ctx.offsetIndex = newIndex(src, indexKindOffset, h.Variant,
		h.OffsetIndexRootOffset, opts.strict(), opts.indexCacheSize())

	return ctx, nil
}

// Header returns the parsed file header (variant, content type, encryption
// mode, root offsets).
func (c *Context) Header() *Header { return c.header }

// Close releases the Context's byte source. Index and local-descriptor
// caches are released implicitly; they hold no resources beyond memory.
func (c *Context) Close() error {
	return c.src.Close()
}

// lookupOffset resolves blockID to its offset-index leaf record.
func (c *Context) lookupOffset(blockID uint64) (offsetRecord, error) {
	e, err := c.offsetIndex.lookup(blockID)
	if err != nil {
		return offsetRecord{}, err
	}
	return decodeOffsetEntry(e, c.header.Variant), nil
}

// readBlockByID reads and validates exactly one on-disk block named by
// blockID, without splicing a data array even if the block is internal.
// Used for local-descriptor nodes, which are expected to fit in a single
// block.
func (c *Context) readBlockByID(blockID uint64) ([]byte, error) {
	rec, err := c.lookupOffset(blockID)
	if err != nil {
		return nil, err
	}
	blk, err := readBlock(c.src, blockReadParams{
		FileOffset:  rec.FileOffset,
		PayloadSize: int(rec.DataSize),
		Variant:     c.header.Variant,
		BlockID:     blockID,
		Mode:        c.header.Encryption,
		External:    !isInternalBlockID(blockID),
	}, c.opts.strict(), c.opts.ignoreForceDecryption(), &c.forceDecrypt)
	if err != nil {
		return nil, err
	}
	c.logBlockFlags(blockID, blk.Flags)
	return blk.Payload, nil
}

// logBlockFlags warns about every non-fatal anomaly readBlock recorded
// against blockID (§4.2, §4.4): the Logger an Options value carries is the
// only place these surface when strict validation is off.
func (c *Context) logBlockFlags(blockID uint64, flags FlagSet) {
	for _, f := range flags {
		c.log.Warnf("block %#x: %s", blockID, f)
	}
}

// openStream resolves dataID to a logical byte stream: a plain block, or,
// if the block is internal and carries a data-array header, the fully
// spliced array (§4.5). Flags accumulate from every block visited.
func (c *Context) openStream(dataID uint64) (*Stream, FlagSet, error) {
	if dataID == 0 {
		return newEmptyStream(), nil, nil
	}
	rec, err := c.lookupOffset(dataID)
	if err != nil {
		return nil, nil, err
	}
	blk, err := readBlock(c.src, blockReadParams{
		FileOffset:  rec.FileOffset,
		PayloadSize: int(rec.DataSize),
		Variant:     c.header.Variant,
		BlockID:     dataID,
		Mode:        c.header.Encryption,
		External:    !isInternalBlockID(dataID),
	}, c.opts.strict(), c.opts.ignoreForceDecryption(), &c.forceDecrypt)
	if err != nil {
		return nil, nil, err
	}
	c.logBlockFlags(dataID, blk.Flags)

	if isInternalBlockID(dataID) && looksLikeDataArrayHeader(blk.Payload) {
		segments, flags, err := c.resolveDataArray(blk.Payload)
		if err != nil {
			return nil, nil, err
		}
		return newSegmentedStream(c, segments), append(blk.Flags, flags...), nil
	}
	return newBlockStream(blk.Payload), blk.Flags, nil
}

// WalkDescriptors calls visit with the id of every live descriptor in
// ascending order, stopping early if visit returns false.
func (c *Context) WalkDescriptors(visit func(id uint32) bool) error {
	return c.descriptorIndex.walkLeaves(func(raw []byte) bool {
		r := decodeDescriptorEntry(raw, c.header.Variant)
		return visit(r.ID)
	})
}

// localDescriptorsFor builds the local-descriptors tree (C7) rooted at
// rootID, or nil if the owning descriptor has none (rootID == 0).
func (c *Context) localDescriptorsFor(rootID uint64) *localDescriptors {
	if rootID == 0 {
		return nil
	}
	return newLocalDescriptors(c, rootID)
}
