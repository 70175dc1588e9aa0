package pff

import "encoding/binary"

// Index-node layout (component C6, §3 "Index node", §4.6): a fixed
// 512-byte page, a trailer of page metadata, and a packed array of
// fixed-size entries before it. The byte layout below is this package's
// own self-consistent rendering of the textual model in §3, since no
// wire-level header for this page was available to ground it on. Keys are
// always stored as 8 bytes so one walker can serve both the descriptor and
// offset indexes (§4.6): the descriptor index simply never sets the upper
// 32 bits.
const (
	indexNodeSize = 512

	indexTrailerSize    = 20
	indexTrailerCountOff = 0 // u16
	indexTrailerEntSzOff = 2 // u8
	indexTrailerLevelOff = 3 // u8
	indexTrailerTypeOff  = 4 // u8
	indexTrailerBackOff  = 8 // u64
	indexTrailerCRCOff   = 16 // u32

	indexKeySize = 8 // every entry, branch or leaf, starts with an 8-byte key
)

// indexKind discriminates the descriptor index from the offset/block index;
// the two share one node format and walker but differ in leaf entry shape.
type indexKind uint8

const (
	indexKindDescriptor indexKind = 0
	indexKindOffset     indexKind = 1
)

func pointerWidth(v Variant) int {
	if v == Variant64 {
		return 8
	}
	return 4
}

// branchEntrySize is the same for both index kinds: an 8-byte key plus one
// pointer-width child offset.
func branchEntrySize(v Variant) int {
	return indexKeySize + pointerWidth(v)
}

// leafEntrySize returns the per-kind, per-variant leaf entry width (§3
// "Descriptor record" / "Offset/block record").
func leafEntrySize(kind indexKind, v Variant) int {
	pw := pointerWidth(v)
	switch kind {
	case indexKindDescriptor:
		// id(8) + data_id(pw) + local_descriptors_id(pw) + parent_id(4)
		return 8 + pw + pw + 4
	default:
		// block_id(8) + file_offset(pw) + data_size(4) + ref_count(2) + pad(2)
		return 8 + pw + 4 + 2 + 2
	}
}

// indexNode is one parsed 512-byte page: its entries, still packed, plus
// the trailer fields the walker and recovery engine need.
type indexNode struct {
	Level      uint8
	EntryCount uint16
	EntrySize  uint8
	Type       uint8
	BackPtr    uint64
	entries    []byte // packed, entryCount*EntrySize valid, rest is tombstone capacity
	capacity   int
}

func parseIndexNode(raw []byte, strict bool) (*indexNode, *Error) {
	if len(raw) != indexNodeSize {
		return nil, newErr("parseIndexNode", KindSizeMismatch, nil)
	}
	trailer := raw[indexNodeSize-indexTrailerSize:]
	n := &indexNode{
		EntryCount: binary.LittleEndian.Uint16(trailer[indexTrailerCountOff:]),
		EntrySize:  trailer[indexTrailerEntSzOff],
		Level:      trailer[indexTrailerLevelOff],
		Type:       trailer[indexTrailerTypeOff],
		BackPtr:    binary.LittleEndian.Uint64(trailer[indexTrailerBackOff:]),
	}
	if n.EntrySize == 0 {
		return nil, newErr("parseIndexNode", KindCorruptInput, nil)
	}
	region := raw[:indexNodeSize-indexTrailerSize]
	n.capacity = len(region) / int(n.EntrySize)
	if int(n.EntryCount) > n.capacity {
		if strict {
			return nil, newErr("parseIndexNode", KindCorruptInput, nil)
		}
		n.EntryCount = uint16(n.capacity)
	}
	n.entries = region
	storedCRC := binary.LittleEndian.Uint32(trailer[indexTrailerCRCOff:])
	if storedCRC != 0 && weakCRC32(raw[:indexNodeSize-indexTrailerSize]) != storedCRC && strict {
		return nil, newErr("parseIndexNode", KindCrcMismatch, nil)
	}
	return n, nil
}

func (n *indexNode) entry(i int) []byte {
	sz := int(n.EntrySize)
	return n.entries[i*sz : (i+1)*sz]
}

func (n *indexNode) isLeaf() bool { return n.Level == 0 }

func entryKey(entry []byte) uint64 {
	return binary.LittleEndian.Uint64(entry[:indexKeySize])
}

func branchChildOffset(entry []byte, v Variant) int64 {
	pw := pointerWidth(v)
	field := entry[indexKeySize : indexKeySize+pw]
	if pw == 8 {
		return int64(binary.LittleEndian.Uint64(field))
	}
	return int64(binary.LittleEndian.Uint32(field))
}

// descriptorRecord is the decoded form of a descriptor-index leaf entry
// (§3 "Descriptor record").
type descriptorRecord struct {
	ID                  uint32
	DataID              uint64
	LocalDescriptorsID  uint64
	ParentID            uint32
}

func decodeDescriptorEntry(entry []byte, v Variant) descriptorRecord {
	pw := pointerWidth(v)
	id := entryKey(entry)
	off := indexKeySize
	dataID := readPtr(entry[off:off+pw], v)
	off += pw
	localID := readPtr(entry[off:off+pw], v)
	off += pw
	parent := binary.LittleEndian.Uint32(entry[off:])
	return descriptorRecord{
		ID:                 uint32(id),
		DataID:             dataID,
		LocalDescriptorsID: localID,
		ParentID:           parent,
	}
}

// offsetRecord is the decoded form of an offset/block-index leaf entry
// (§3 "Offset/block record").
type offsetRecord struct {
	BlockID    uint64
	FileOffset int64
	DataSize   uint32
	RefCount   uint16
}

func decodeOffsetEntry(entry []byte, v Variant) offsetRecord {
	pw := pointerWidth(v)
	blockID := entryKey(entry)
	off := indexKeySize
	fileOffset := int64(readPtr(entry[off:off+pw], v))
	off += pw
	dataSize := binary.LittleEndian.Uint32(entry[off:])
	off += 4
	refCount := binary.LittleEndian.Uint16(entry[off:])
	return offsetRecord{BlockID: blockID, FileOffset: fileOffset, DataSize: dataSize, RefCount: refCount}
}

func readPtr(b []byte, v Variant) uint64 {
	if v == Variant64 {
		return binary.LittleEndian.Uint64(b)
	}
	return uint64(binary.LittleEndian.Uint32(b))
}

// index is C6: a parametric B-tree walker shared by the descriptor and
// offset indexes. It reads nodes through a bounded LRU cache keyed by file
// offset (§5); it never mutates the underlying source.
type index struct {
	src     reader
	kind    indexKind
	variant Variant
	strict  bool
	root    int64
	cache   *nodeCache[int64, *indexNode]
}

func newIndex(src reader, kind indexKind, variant Variant, root int64, strict bool, cacheSize int) *index {
	return &index{
		src:     src,
		kind:    kind,
		variant: variant,
		strict:  strict,
		root:    root,
		cache:   newNodeCache[int64, *indexNode](cacheSize),
	}
}

func (x *index) node(offset int64) (*indexNode, error) {
	if n, ok := x.cache.get(offset); ok {
		return n, nil
	}
	buf := make([]byte, indexNodeSize)
	if _, err := x.src.ReadAt(buf, offset); err != nil {
		return nil, newErr("index.node", KindIO, err)
	}
	n, perr := parseIndexNode(buf, x.strict)
	if perr != nil {
		return nil, perr
	}
	x.cache.put(offset, n)
	return n, nil
}

// maskKey strips the bits a lookup key must ignore before comparing it
// against a stored entry key (§4.6): the offset/block index ignores the
// low flag bits of a block-id (the same bits isInternalBlockID/
// maskBlockID mask off), and the descriptor index ignores the upper 32
// bits of its 64-bit key slot (a descriptor id is only ever 32 bits wide).
func (x *index) maskKey(key uint64) uint64 {
	if x.kind == indexKindOffset {
		return maskBlockID(key)
	}
	return key & 0xffffffff
}

// lookup implements §4.6's descent rule: at a branch node, take the child
// whose key is the greatest key <= the search key (the last child if the
// search key is >= the node's last key). Leaf match is exact on the masked
// key.
func (x *index) lookup(key uint64) ([]byte, error) {
	key = x.maskKey(key)
	offset := x.root
	for {
		n, err := x.node(offset)
		if err != nil {
			return nil, err
		}
		if n.isLeaf() {
			for i := 0; i < int(n.EntryCount); i++ {
				e := n.entry(i)
				if x.maskKey(entryKey(e)) == key {
					return e, nil
				}
			}
			return nil, newErr("index.lookup", KindMissingDescriptor, nil)
		}
		childIdx := -1
		for i := 0; i < int(n.EntryCount); i++ {
			if x.maskKey(entryKey(n.entry(i))) <= key {
				childIdx = i
			} else {
				break
			}
		}
		if childIdx < 0 {
			return nil, newErr("index.lookup", KindMissingDescriptor, nil)
		}
		offset = branchChildOffset(n.entry(childIdx), x.variant)
	}
}

// walkLeaves visits every live leaf entry reachable from the root, in
// ascending key order, calling visit(entry) for each. Stops early if visit
// returns false.
func (x *index) walkLeaves(visit func(entry []byte) bool) error {
	return x.walkLeavesFrom(x.root, visit)
}

func (x *index) walkLeavesFrom(offset int64, visit func(entry []byte) bool) error {
	n, err := x.node(offset)
	if err != nil {
		return err
	}
	if n.isLeaf() {
		for i := 0; i < int(n.EntryCount); i++ {
			if !visit(n.entry(i)) {
				return nil
			}
		}
		return nil
	}
	for i := 0; i < int(n.EntryCount); i++ {
		child := branchChildOffset(n.entry(i), x.variant)
		if err := x.walkLeavesFrom(child, visit); err != nil {
			return err
		}
	}
	return nil
}

// walkDeletedLeaves implements the recovery-facing half of §4.6: leaf
// nodes whose entry_count is less than their capacity carry trailing
// tombstone entries. walkDeletedLeaves yields those tombstone entries
// (raw, undecoded) across the whole tree.
func (x *index) walkDeletedLeaves(visit func(entry []byte) bool) error {
	return x.walkDeletedLeavesFrom(x.root, visit)
}

func (x *index) walkDeletedLeavesFrom(offset int64, visit func(entry []byte) bool) error {
	n, err := x.node(offset)
	if err != nil {
		return err
	}
	if n.isLeaf() {
		for i := int(n.EntryCount); i < n.capacity; i++ {
			if !visit(n.entry(i)) {
				return nil
			}
		}
		return nil
	}
	for i := 0; i < int(n.EntryCount); i++ {
		child := branchChildOffset(n.entry(i), x.variant)
		if err := x.walkDeletedLeavesFrom(child, visit); err != nil {
			return err
		}
	}
	return nil
}
