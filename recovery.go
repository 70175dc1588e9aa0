package pff

import "encoding/binary"

// recoveryIndexes holds everything the recovery engine (C11) salvages: one
// or more candidate records per deleted or orphaned descriptor id (the
// caller selects by recovered_value_index), promoted offset-index
// entries discovered while scanning unallocated regions, and data blocks
// that could not be tied back to any descriptor at all ("fragments").
type recoveryIndexes struct {
	descriptors map[uint32][]descriptorRecord
	offsets     map[uint64]offsetRecord
	fragments   []streamSegment
}

func newRecoveryIndexes() *recoveryIndexes {
	return &recoveryIndexes{
		descriptors: make(map[uint32][]descriptorRecord),
		offsets:     make(map[uint64]offsetRecord),
	}
}

// RecoveryReport summarizes one Recover() pass: how many descriptors and
// blocks were salvaged, for the caller's own reporting.
type RecoveryReport struct {
	RecoveredDescriptors int
	RecoveredOffsets     int
	Fragments            int
}

// Recover implements C11. pageMapFree and dataMapFree are the free-extent
// lists produced by reading the file's allocation pages (C10) — one for
// the page-stride map, one for the data-stride map; this engine does not
// locate or read allocation pages itself (§4.11: "Given the IO context and
// the two unallocated-extent lists").
func (c *Context) Recover(opts RecoveryOptions, pageMapFree, dataMapFree []FreeExtent) (*RecoveryReport, error) {
	rec := newRecoveryIndexes()

	if err := c.recoverDeletedDescriptorLeaves(rec); err != nil {
		return nil, err
	}

	regions := pageMapFree
	if opts.IgnoreAllocationData {
		size, err := c.src.Size()
		if err != nil {
			return nil, newErr("Recover", KindIO, err)
		}
		regions = []FreeExtent{{FileOffset: 0, Length: size}}
	}
	if err := c.scanIndexPages(regions, rec); err != nil {
		return nil, err
	}

	if opts.ScanForFragments {
		dataRegions := dataMapFree
		if opts.IgnoreAllocationData {
			dataRegions = regions
		}
		c.scanDataBlockFragments(dataRegions, rec)
	}

	c.recovered = rec

	var descCount int
	for _, v := range rec.descriptors {
		descCount += len(v)
	}
	return &RecoveryReport{
		RecoveredDescriptors: descCount,
		RecoveredOffsets:     len(rec.offsets),
		Fragments:            len(rec.fragments),
	}, nil
}

// recoverDeletedDescriptorLeaves implements §4.11 step 1: walk the live
// descriptor index's tombstoned entries and keep the ones that still
// resolve cleanly.
func (c *Context) recoverDeletedDescriptorLeaves(rec *recoveryIndexes) error {
	return c.descriptorIndex.walkDeletedLeaves(func(raw []byte) bool {
		r := decodeDescriptorEntry(raw, c.header.Variant)
		if r.ID == 0 {
			return true
		}
		if !c.descriptorDataReadsCleanly(r.DataID) {
			c.log.Warnf("recovery: skipping tombstoned descriptor %d, data block %#x failed validation", r.ID, r.DataID)
			return true
		}
		if r.LocalDescriptorsID != 0 && !c.localDescriptorsWalkCleanly(r.LocalDescriptorsID) {
			c.log.Warnf("recovery: skipping tombstoned descriptor %d, local-descriptors tree %#x failed validation", r.ID, r.LocalDescriptorsID)
			return true
		}
		if _, live := c.liveDescriptor(r.ID); live {
			return true
		}
		c.log.Infof("recovery: recovered descriptor %d from a tombstoned leaf entry", r.ID)
		rec.descriptors[r.ID] = append(rec.descriptors[r.ID], r)
		return true
	})
}

func (c *Context) liveDescriptor(id uint32) (descriptorRecord, bool) {
	e, err := c.descriptorIndex.lookup(uint64(id))
	if err != nil {
		return descriptorRecord{}, false
	}
	return decodeDescriptorEntry(e, c.header.Variant), true
}

func (c *Context) descriptorDataReadsCleanly(dataID uint64) bool {
	if dataID == 0 {
		return true
	}
	rec, err := c.lookupOffset(dataID)
	if err != nil {
		return false
	}
	blk, err := readBlock(c.src, blockReadParams{
		FileOffset:  rec.FileOffset,
		PayloadSize: int(rec.DataSize),
		Variant:     c.header.Variant,
		BlockID:     dataID,
		Mode:        c.header.Encryption,
		External:    !isInternalBlockID(dataID),
	}, true /* strict: a CRC failure invalidates the candidate */, c.opts.ignoreForceDecryption(), &forceDecryptState{})
	if err != nil {
		return false
	}
	_ = blk
	return true
}

func (c *Context) localDescriptorsWalkCleanly(rootID uint64) bool {
	ld := newLocalDescriptors(c, rootID)
	clean := true
	err := ld.walkLeaves(func(localDescriptorLeaf) bool { return true })
	if err != nil {
		clean = false
	}
	return clean
}

// scanIndexPages implements the first half of §4.11 step 2: try every
// 512-aligned offset in the given free regions as a candidate index page;
// valid leaf entries are promoted into the recovered indexes.
func (c *Context) scanIndexPages(regions []FreeExtent, rec *recoveryIndexes) error {
	for _, region := range regions {
		start := alignUp(region.FileOffset, indexNodeSize)
		for off := start; off+indexNodeSize <= region.FileOffset+region.Length; off += indexNodeSize {
			buf := make([]byte, indexNodeSize)
			if _, err := c.src.ReadAt(buf, off); err != nil {
				break
			}
			n, perr := parseIndexNode(buf, true)
			if perr != nil {
				continue
			}
			if !n.isLeaf() {
				continue
			}
			switch indexKind(n.Type) {
			case indexKindDescriptor:
				for i := 0; i < int(n.EntryCount); i++ {
					r := decodeDescriptorEntry(n.entry(i), c.header.Variant)
					if r.ID == 0 {
						continue
					}
					if _, live := c.liveDescriptor(r.ID); live {
						continue
					}
					rec.descriptors[r.ID] = append(rec.descriptors[r.ID], r)
				}
			case indexKindOffset:
				for i := 0; i < int(n.EntryCount); i++ {
					o := decodeOffsetEntry(n.entry(i), c.header.Variant)
					if o.BlockID == 0 {
						continue
					}
					if _, err := c.offsetIndex.lookup(o.BlockID); err == nil {
						continue
					}
					rec.offsets[o.BlockID] = o
				}
			}
		}
	}
	return nil
}

// scanDataBlockFragments implements the second half of §4.11 step 2: scan
// 64-aligned offsets for a plausible data-block footer sitting at that
// offset, matching a payload immediately before it.
func (c *Context) scanDataBlockFragments(regions []FreeExtent, rec *recoveryIndexes) {
	fsz := footerSize(c.header.Variant)
	for _, region := range regions {
		start := alignUp(region.FileOffset, 64)
		for off := start; off+int64(fsz) <= region.FileOffset+region.Length; off += 64 {
			footer := make([]byte, fsz)
			if _, err := c.src.ReadAt(footer, off); err != nil {
				break
			}
			seg, ok := c.candidateFragment(footer, off)
			if !ok {
				continue
			}
			if _, known := rec.offsets[seg.BlockID]; known {
				continue
			}
			if _, err := c.offsetIndex.lookup(seg.BlockID); err == nil {
				continue
			}
			rec.fragments = append(rec.fragments, seg)
		}
	}
}

func (c *Context) candidateFragment(footer []byte, footerOffset int64) (streamSegment, bool) {
	declaredSize := int(binary.LittleEndian.Uint16(footer[footerSizeOff:]))
	if declaredSize <= 0 || declaredSize > 1<<20 {
		return streamSegment{}, false
	}
	payloadStart := footerOffset - int64(roundUp64(declaredSize))
	if payloadStart < 0 {
		return streamSegment{}, false
	}

	var backPointer uint64
	var storedCRC uint32
	if c.header.Variant == Variant64 {
		backPointer = binary.LittleEndian.Uint64(footer[footer64BackPtrOff:])
		storedCRC = binary.LittleEndian.Uint32(footer[footer64CRCOff:])
	} else {
		backPointer = uint64(binary.LittleEndian.Uint32(footer[footer32BackPtrOff:]))
		storedCRC = binary.LittleEndian.Uint32(footer[footer32CRCOff:])
	}
	if backPointer == 0 || backPointer>>32 != 0 {
		return streamSegment{}, false
	}
	if storedCRC == 0 {
		return streamSegment{}, false
	}

	payload := make([]byte, declaredSize)
	if _, err := c.src.ReadAt(payload, payloadStart); err != nil {
		return streamSegment{}, false
	}
	if weakCRC32(payload) != storedCRC {
		return streamSegment{}, false
	}
	return streamSegment{FileOffset: payloadStart, Size: int64(declaredSize), BlockID: backPointer}, true
}

func alignUp(v int64, align int64) int64 {
	return (v + align - 1) / align * align
}
