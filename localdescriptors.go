package pff

import "encoding/binary"

// Local-descriptor node layout (component C7, §3 "Local descriptor node"):
// a signature byte, level, and entry count followed by a packed array of
// fixed-size entries. The field order (signature, level, number_of_entries)
// follows the documented in-memory shape; no entry size is stored, it
// follows from the variant and level (ldBranchEntrySize, ldLeafEntrySize).
// The exact byte
// offsets below are this package's own self-consistent rendering, since no
// wire-level layout for this node was available to ground them on.
const (
	ldNodeSignature = 0x02

	ldHeaderSigOff   = 0 // u8
	ldHeaderLevelOff = 1 // u8
	ldHeaderCountOff = 2 // u16
	ldHeaderSize     = 4
)

func ldBranchEntrySize(v Variant) int {
	return 8 + pointerWidth(v) // id(8) + sub_node_id(pw)
}

func ldLeafEntrySize(v Variant) int {
	pw := pointerWidth(v)
	return 8 + pw + pw // id(8) + data_id(pw) + local_descriptors_id(pw)
}

type ldNode struct {
	Level      uint8
	EntryCount uint16
	entries    []byte
	entrySize  int
}

func parseLDNode(raw []byte, variant Variant, strict bool) (*ldNode, error) {
	if len(raw) < ldHeaderSize {
		return nil, newErr("parseLDNode", KindSizeMismatch, nil)
	}
	if raw[ldHeaderSigOff] != ldNodeSignature {
		if strict {
			return nil, newErr("parseLDNode", KindInvalidSignature, nil)
		}
	}
	level := raw[ldHeaderLevelOff]
	count := binary.LittleEndian.Uint16(raw[ldHeaderCountOff:])

	var entrySize int
	if level == 0 {
		entrySize = ldLeafEntrySize(variant)
	} else {
		entrySize = ldBranchEntrySize(variant)
	}
	region := raw[ldHeaderSize:]
	capacity := 0
	if entrySize > 0 {
		capacity = len(region) / entrySize
	}
	if int(count) > capacity {
		if strict {
			return nil, newErr("parseLDNode", KindCorruptInput, nil)
		}
		count = uint16(capacity)
	}
	return &ldNode{Level: level, EntryCount: count, entries: region, entrySize: entrySize}, nil
}

func (n *ldNode) entry(i int) []byte {
	return n.entries[i*n.entrySize : (i+1)*n.entrySize]
}

func (n *ldNode) isLeaf() bool { return n.Level == 0 }

// localDescriptorLeaf is the decoded form of a leaf entry: a sub-descriptor
// id plus its payload block-id and, if present, its own nested local
// descriptors id.
type localDescriptorLeaf struct {
	ID                 uint64
	DataID             uint64
	LocalDescriptorsID uint64
}

// localDescriptors is C7: the per-descriptor secondary B-tree. Its root
// node offset is resolved by the owner through the offset index; node
// reads go through C4 (readBlock), not C6's fixed-512-byte cache.
type localDescriptors struct {
	ctx      *Context
	variant  Variant
	strict   bool
	rootID   uint64
	cache    *nodeCache[uint64, *ldNode]
}

func newLocalDescriptors(ctx *Context, rootID uint64) *localDescriptors {
	return &localDescriptors{
		ctx:     ctx,
		variant: ctx.header.Variant,
		strict:  ctx.opts.strict(),
		rootID:  rootID,
		cache:   newNodeCache[uint64, *ldNode](ctx.opts.localDescriptorCacheSize()),
	}
}

func (l *localDescriptors) readNode(id uint64) (*ldNode, error) {
	if n, ok := l.cache.get(id); ok {
		return n, nil
	}
	payload, err := l.ctx.readBlockByID(id)
	if err != nil {
		return nil, err
	}
	n, err := parseLDNode(payload, l.variant, l.strict)
	if err != nil {
		return nil, err
	}
	l.cache.put(id, n)
	return n, nil
}

// lookup resolves a sub-descriptor id to its leaf record, walking the tree
// by strict key ordering exactly like C6 (§4.7).
func (l *localDescriptors) lookup(id uint64) (localDescriptorLeaf, error) {
	nodeID := l.rootID
	for {
		n, err := l.readNode(nodeID)
		if err != nil {
			return localDescriptorLeaf{}, err
		}
		if n.isLeaf() {
			for i := 0; i < int(n.EntryCount); i++ {
				e := n.entry(i)
				eid := binary.LittleEndian.Uint64(e[:8])
				if eid == id {
					pw := pointerWidth(l.variant)
					dataID := readPtr(e[8:8+pw], l.variant)
					localID := readPtr(e[8+pw:8+2*pw], l.variant)
					return localDescriptorLeaf{ID: eid, DataID: dataID, LocalDescriptorsID: localID}, nil
				}
			}
			return localDescriptorLeaf{}, newErr("localDescriptors.lookup", KindMissingDescriptor, nil)
		}
		childIdx := -1
		for i := 0; i < int(n.EntryCount); i++ {
			e := n.entry(i)
			if binary.LittleEndian.Uint64(e[:8]) <= id {
				childIdx = i
			} else {
				break
			}
		}
		if childIdx < 0 {
			return localDescriptorLeaf{}, newErr("localDescriptors.lookup", KindMissingDescriptor, nil)
		}
		e := n.entry(childIdx)
		pw := pointerWidth(l.variant)
		nodeID = readPtr(e[8:8+pw], l.variant)
	}
}

// walkLeaves visits every live leaf in ascending key order, used by the
// recovery engine to validate a salvaged descriptor's local-descriptors
// tree (§4.11 step 1b).
func (l *localDescriptors) walkLeaves(visit func(localDescriptorLeaf) bool) error {
	return l.walkFrom(l.rootID, visit)
}

func (l *localDescriptors) walkFrom(nodeID uint64, visit func(localDescriptorLeaf) bool) error {
	n, err := l.readNode(nodeID)
	if err != nil {
		return err
	}
	pw := pointerWidth(l.variant)
	if n.isLeaf() {
		for i := 0; i < int(n.EntryCount); i++ {
			e := n.entry(i)
			leaf := localDescriptorLeaf{
				ID:                 binary.LittleEndian.Uint64(e[:8]),
				DataID:             readPtr(e[8:8+pw], l.variant),
				LocalDescriptorsID: readPtr(e[8+pw:8+2*pw], l.variant),
			}
			if !visit(leaf) {
				return nil
			}
		}
		return nil
	}
	for i := 0; i < int(n.EntryCount); i++ {
		e := n.entry(i)
		child := readPtr(e[8:8+pw], l.variant)
		if err := l.walkFrom(child, visit); err != nil {
			return err
		}
	}
	return nil
}
