// Package source provides the byte-source adapter (component C1) the core
// reads through. It has no knowledge of the PFF format: seek/read/size over
// an arbitrary random-access byte range, nothing more. Higher layers own
// buffering and caching; this package promises none.
package source

import (
	"errors"
	"io"
	"os"
	"sync"

	mmap "github.com/edsrzf/mmap-go"
)

// ErrClosed is returned by any operation on a Source after Close.
var ErrClosed = errors.New("source: use of closed source")

// Source is the capability set every higher layer reads through: seek by
// absolute offset, read a fixed span, and report total size. Implementations
// need not be safe for concurrent use — callers that want parallelism open
// one Source (and one Context) per goroutine, per the core's single-threaded
// concurrency model.
type Source interface {
	// ReadAt reads len(p) bytes starting at offset off, like io.ReaderAt.
	ReadAt(p []byte, off int64) (int, error)
	// Size returns the total addressable length of the source.
	Size() (int64, error)
	// Close releases any resources (file descriptors, mappings) held by
	// the source. Closing twice is a no-op.
	Close() error
}

// bytesSource is an in-memory Source, useful for fixtures and for files
// already fully buffered by the caller.
type bytesSource struct {
	mu   sync.RWMutex
	data []byte
}

// FromBytes wraps an in-memory buffer as a Source. The buffer is not copied;
// callers must not mutate it while the Source is in use.
func FromBytes(data []byte) Source {
	return &bytesSource{data: data}
}

func (b *bytesSource) ReadAt(p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return 0, ErrClosed
	}
	if off < 0 || off > int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *bytesSource) Size() (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return 0, ErrClosed
	}
	return int64(len(b.data)), nil
}

func (b *bytesSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	return nil
}

// fileSource is a Source backed by a plain *os.File, read via pread-style
// ReadAt calls — no memory mapping, no internal buffering.
type fileSource struct {
	f *os.File
}

// FromFile opens name and returns a Source reading it directly (no mmap).
// The returned Source owns the file and closes it on Close.
func FromFile(name string) (Source, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &fileSource{f: f}, nil
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	if s.f == nil {
		return 0, ErrClosed
	}
	return s.f.ReadAt(p, off)
}

func (s *fileSource) Size() (int64, error) {
	if s.f == nil {
		return 0, ErrClosed
	}
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (s *fileSource) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// mmapSource is a Source backed by a memory-mapped file, mirroring the
// teacher library's default (pe.New memory-maps instead of using
// read/write). Preferable for large PST/OST files opened read-only.
type mmapSource struct {
	f *os.File
	m mmap.MMap
}

// FromMmap memory-maps name read-only and returns a Source over it.
func FromMmap(name string) (Source, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mmapSource{f: f, m: m}, nil
}

func (s *mmapSource) ReadAt(p []byte, off int64) (int, error) {
	if s.m == nil {
		return 0, ErrClosed
	}
	if off < 0 || off > int64(len(s.m)) {
		return 0, io.EOF
	}
	n := copy(p, s.m[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *mmapSource) Size() (int64, error) {
	if s.m == nil {
		return 0, ErrClosed
	}
	return int64(len(s.m)), nil
}

func (s *mmapSource) Close() error {
	if s.m == nil {
		return nil
	}
	err := s.m.Unmap()
	s.m = nil
	if s.f != nil {
		if cerr := s.f.Close(); err == nil {
			err = cerr
		}
		s.f = nil
	}
	return err
}
