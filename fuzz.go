package pff

import "github.com/pffparse/pff/source"

// Fuzz is a go-fuzz-style smoke entrypoint: parse data as a PFF container
// and touch every descriptor's table, discarding the result. It exists to
// be driven by an external fuzzing harness, not to be called directly.
func Fuzz(data []byte) int {
	ctx, err := NewContext(source.FromBytes(data), &Options{})
	if err != nil {
		return 0
	}
	defer ctx.Close()

	ok := 0
	_ = ctx.descriptorIndex.walkLeaves(func(raw []byte) bool {
		r := decodeDescriptorEntry(raw, ctx.header.Variant)
		d := &Descriptor{ctx: ctx, record: r}
		if _, err := d.OpenTable(); err == nil {
			ok = 1
		}
		return true
	})
	return ok
}
