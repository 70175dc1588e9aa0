package pff

import "encoding/binary"

// Data-array header layout (§3 "Data array", §4.5): signature byte 0x01,
// a level byte (1 for leaf arrays, >1 for arrays of sub-arrays), a 16-bit
// entry count, a 32-bit total size, then entry_count block-ids of the
// variant's pointer width.
const (
	dataArraySignature = 0x01

	daOffSignature = 0
	daOffLevel     = 1
	daOffEntries   = 2
	daOffTotalSize = 4
	daOffIDs       = 8
)

func looksLikeDataArrayHeader(payload []byte) bool {
	if len(payload) < daOffIDs {
		return false
	}
	if payload[daOffSignature] != dataArraySignature {
		return false
	}
	lvl := payload[daOffLevel]
	return lvl == 1 || lvl == 2
}

// streamSegment names one leaf block contributing bytes to a spliced
// stream: where to read it, how big it is, and the identity needed to
// decrypt and validate it.
type streamSegment struct {
	FileOffset int64
	Size       int64
	BlockID    uint64
}

// resolveDataArray implements C5: parse the header, recursively resolve
// every child block-id (through sub-arrays when level > 1) via the offset
// index, and return the ordered leaf segment list. Fails CorruptInput if
// the segments' sizes don't sum to the declared total_size.
func (c *Context) resolveDataArray(payload []byte) ([]streamSegment, FlagSet, error) {
	segments, flags, err := c.resolveDataArrayLevel(payload)
	if err != nil {
		return nil, nil, err
	}
	var sum int64
	for _, s := range segments {
		sum += s.Size
	}
	totalSize := int64(binary.LittleEndian.Uint32(payload[daOffTotalSize:]))
	if sum != totalSize {
		return nil, nil, newErr("resolveDataArray", KindCorruptInput, nil)
	}
	return segments, flags, nil
}

func (c *Context) resolveDataArrayLevel(payload []byte) ([]streamSegment, FlagSet, error) {
	level := payload[daOffLevel]
	count := binary.LittleEndian.Uint16(payload[daOffEntries:])
	pw := pointerWidth(c.header.Variant)

	ids := make([]uint64, 0, count)
	off := daOffIDs
	for i := 0; i < int(count); i++ {
		if off+pw > len(payload) {
			return nil, nil, newErr("resolveDataArrayLevel", KindCorruptInput, nil)
		}
		ids = append(ids, readPtr(payload[off:off+pw], c.header.Variant))
		off += pw
	}

	var segments []streamSegment
	var flags FlagSet
	for _, id := range ids {
		rec, err := c.lookupOffset(id)
		if err != nil {
			return nil, nil, err
		}
		if level == 1 {
			segments = append(segments, streamSegment{
				FileOffset: rec.FileOffset,
				Size:       int64(rec.DataSize),
				BlockID:    id,
			})
			continue
		}

		blk, err := readBlock(c.src, blockReadParams{
			FileOffset:  rec.FileOffset,
			PayloadSize: int(rec.DataSize),
			Variant:     c.header.Variant,
			BlockID:     id,
			Mode:        c.header.Encryption,
			External:    !isInternalBlockID(id),
		}, c.opts.strict(), c.opts.ignoreForceDecryption(), &c.forceDecrypt)
		if err != nil {
			return nil, nil, err
		}
		flags = append(flags, blk.Flags...)
		if !looksLikeDataArrayHeader(blk.Payload) {
			return nil, nil, newErr("resolveDataArrayLevel", KindCorruptInput, nil)
		}
		sub, subFlags, err := c.resolveDataArrayLevel(blk.Payload)
		if err != nil {
			return nil, nil, err
		}
		segments = append(segments, sub...)
		flags = append(flags, subFlags...)
	}
	return segments, flags, nil
}

// readSegment reads and decrypts one leaf segment's bytes, gated by the
// segment's own internal-flag bit (§4.5: "Decryption is performed per leaf
// segment at read time").
func (c *Context) readSegment(seg streamSegment) ([]byte, error) {
	blk, err := readBlock(c.src, blockReadParams{
		FileOffset:  seg.FileOffset,
		PayloadSize: int(seg.Size),
		Variant:     c.header.Variant,
		BlockID:     seg.BlockID,
		Mode:        c.header.Encryption,
		External:    !isInternalBlockID(seg.BlockID),
	}, c.opts.strict(), c.opts.ignoreForceDecryption(), &c.forceDecrypt)
	if err != nil {
		return nil, err
	}
	return blk.Payload, nil
}
