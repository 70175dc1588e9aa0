package pff

import "io"

// Stream is the ReadableStream named throughout §4: random-access reading
// over a descriptor's spliced payload, whether it is one plain block or a
// data array of many. It implements io.ReaderAt and io.Seeker so callers
// above this package can wrap it with bufio, io.SectionReader, and so on.
type Stream struct {
	ctx      *Context // nil for a single in-memory block or empty stream
	segments []streamSegment
	size     int64

	single []byte // set instead of segments when the whole stream is one block

	pos int64
}

func newEmptyStream() *Stream {
	return &Stream{single: []byte{}}
}

func newBlockStream(payload []byte) *Stream {
	return &Stream{single: payload, size: int64(len(payload))}
}

func newSegmentedStream(ctx *Context, segments []streamSegment) *Stream {
	var size int64
	for _, s := range segments {
		size += s.Size
	}
	return &Stream{ctx: ctx, segments: segments, size: size}
}

// Size returns the total logical length of the stream.
func (s *Stream) Size() int64 { return s.size }

// ReadAt reads len(p) bytes starting at logical offset off, as
// io.ReaderAt. A short read at end of stream returns io.EOF alongside the
// bytes actually copied.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, newErr("Stream.ReadAt", KindInvalidInput, nil)
	}
	if s.single != nil {
		if off >= int64(len(s.single)) {
			return 0, io.EOF
		}
		n := copy(p, s.single[off:])
		if n < len(p) {
			return n, io.EOF
		}
		return n, nil
	}

	total := 0
	remaining := p
	cur := off
	for _, seg := range s.segments {
		if len(remaining) == 0 {
			break
		}
		if cur >= seg.Size {
			cur -= seg.Size
			continue
		}
		segData, err := s.ctx.readSegment(seg)
		if err != nil {
			return total, err
		}
		n := copy(remaining, segData[cur:])
		total += n
		remaining = remaining[n:]
		cur = 0
	}
	if len(remaining) > 0 {
		return total, io.EOF
	}
	return total, nil
}

// Seek implements io.Seeker with whence semantics identical to a
// contiguous file (§4.5).
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = s.pos + offset
	case io.SeekEnd:
		newPos = s.size + offset
	default:
		return 0, newErr("Stream.Seek", KindInvalidInput, nil)
	}
	if newPos < 0 {
		return 0, newErr("Stream.Seek", KindInvalidInput, nil)
	}
	s.pos = newPos
	return newPos, nil
}

// Read implements io.Reader over the stream's current seek position.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

// ReadAll reads the entire stream into memory. Convenient for small
// property values and table cells; large streams should use ReadAt.
func (s *Stream) ReadAll() ([]byte, error) {
	buf := make([]byte, s.size)
	if s.size == 0 {
		return buf, nil
	}
	n, err := s.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// Segments returns the stream's physical blocks as separate byte slices,
// in order, without concatenating them. The heap-on-node layer (§4.9)
// indexes cells per physical segment, not over the flattened logical
// stream, so it reads through this instead of ReadAt.
func (s *Stream) Segments() ([][]byte, error) {
	if s.single != nil {
		return [][]byte{s.single}, nil
	}
	out := make([][]byte, 0, len(s.segments))
	for _, seg := range s.segments {
		data, err := s.ctx.readSegment(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
