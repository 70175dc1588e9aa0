package pff

import "encoding/binary"

// resolveRowValue implements §4.9.3: value resolution for a table record
// whose nominal value size is 4 bytes (bc records, and 7c/ac row columns
// of width 4). A raw value of any other length is returned as a literal
// stream.
//
// eightByteInline additionally lets 7c treat certain value types as an
// 8-byte inline slot instead of a 4-byte reference, per the first bullet
// of §4.9.3.
func resolveRowValue(ctx *Context, h *heapOnNode, ld *localDescriptors, vt ValueType, raw []byte, eightByteInline bool) (*Stream, Flag, error) {
	if vt.isSmallFixed() {
		return newBlockStream(raw), 0, nil
	}
	if eightByteInline && vt.isEightByteInline() && len(raw) == 8 {
		return newBlockStream(raw), 0, nil
	}
	if len(raw) != 4 {
		return newBlockStream(raw), 0, nil
	}

	v := binary.LittleEndian.Uint32(raw)
	switch {
	case v == 0:
		return newEmptyStream(), 0, nil
	case v&0x1f == 0:
		cell, err := h.cell(v)
		if err != nil {
			return nil, 0, err
		}
		return newBlockStream(cell), 0, nil
	default:
		if ld == nil {
			return newEmptyStream(), FlagMissingDataDescriptor, nil
		}
		leaf, err := ld.lookup(uint64(v))
		if err != nil {
			if KindOf(err) == KindMissingDescriptor {
				return newEmptyStream(), FlagMissingDataDescriptor, nil
			}
			return nil, 0, err
		}
		stream, _, err := ctx.openStream(leaf.DataID)
		if err != nil {
			return nil, 0, err
		}
		return stream, 0, nil
	}
}
