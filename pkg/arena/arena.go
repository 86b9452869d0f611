// Package arena implements the single memory owner for one conversion pass.
// All storage produced while flattening a document (interned strings, node
// arrays, key arrays) is carved out of one Arena and released in bulk by
// Release. Chunks never move once handed out, so every address returned by an
// Arena stays valid until Release, regardless of how much the arena grows
// afterwards.
package arena

import (
	"errors"
	"unsafe"
)

// DefaultChunkSize is the chunk size used when none is configured (64 KiB).
const DefaultChunkSize = 64 << 10

var (
	// ErrBudget is returned when an allocation would exceed the arena's
	// byte budget. The arena stays usable; the caller decides whether the
	// current pass can continue.
	ErrBudget = errors.New("arena: byte budget exceeded")

	// ErrReleased is returned by allocations attempted after Release.
	ErrReleased = errors.New("arena: use after release")
)

// chunk is one backing region. Offsets only ever advance; a chunk's buffer is
// never reallocated, which is what keeps previously returned addresses stable.
type chunk struct {
	buf []byte
	off uintptr
}

// Arena is an append-only bump allocator with a byte budget. It is not safe
// for concurrent use; the conversion pass that owns it is single-threaded.
type Arena struct {
	chunks    []chunk
	chunkSize int
	budget    int64 // 0 means unlimited
	used      int64
	interned  int
	arrays    int
	released  bool
}

// Stats is a point-in-time snapshot of arena bookkeeping.
type Stats struct {
	// Chunks is the number of backing regions allocated so far.
	Chunks int
	// Reserved is the total byte size of all backing regions.
	Reserved int64
	// Used is the number of bytes handed out, including alignment padding.
	Used int64
	// InternedStrings counts Intern/InternString calls that stored data.
	InternedStrings int
	// Arrays counts typed array allocations.
	Arrays int
}

// New creates an arena. chunkSize <= 0 selects DefaultChunkSize. budget is the
// maximum number of bytes the arena may hand out; 0 disables the limit.
func New(chunkSize int, budget int64) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Arena{chunkSize: chunkSize, budget: budget}
}

// AllocBytes returns n zeroed bytes of arena storage. The returned slice stays
// valid until Release. Returns nil for n <= 0.
func (a *Arena) AllocBytes(n int) ([]byte, error) {
	if a.released {
		return nil, ErrReleased
	}
	if n <= 0 {
		return nil, nil
	}
	// Resolve the landing spot first: the alignment padding counts against
	// the budget along with the payload, and a fresh chunk needs no padding.
	var c *chunk
	var off uintptr
	if len(a.chunks) > 0 {
		last := &a.chunks[len(a.chunks)-1]
		aligned := alignUp(last.off)
		if aligned+uintptr(n) <= uintptr(len(last.buf)) {
			c = last
			off = aligned
		}
	}
	pad := int64(0)
	if c != nil {
		pad = int64(off - c.off)
	}
	if a.budget > 0 && a.used+pad+int64(n) > a.budget {
		return nil, ErrBudget
	}
	if c == nil {
		c = a.grow(n)
	}
	a.used += int64(n) + pad
	c.off = off + uintptr(n)
	// Chunk buffers come from make and offsets never rewind, so the region
	// is already zeroed.
	return unsafe.Slice(&c.buf[off], n), nil
}

// Intern stores an immutable copy of b and returns the stable copy. The
// returned slice has exactly len(b) bytes; embedded zero bytes are preserved.
// An empty input returns an empty, non-nil slice.
func (a *Arena) Intern(b []byte) ([]byte, error) {
	if a.released {
		return nil, ErrReleased
	}
	if len(b) == 0 {
		a.interned++
		return []byte{}, nil
	}
	dst, err := a.AllocBytes(len(b))
	if err != nil {
		return nil, err
	}
	copy(dst, b)
	a.interned++
	return dst, nil
}

// InternString is Intern for string input.
func (a *Arena) InternString(s string) ([]byte, error) {
	if a.released {
		return nil, ErrReleased
	}
	if len(s) == 0 {
		a.interned++
		return []byte{}, nil
	}
	dst, err := a.AllocBytes(len(s))
	if err != nil {
		return nil, err
	}
	copy(dst, s)
	a.interned++
	return dst, nil
}

// MakeSlice allocates zeroed arena storage for n values of type T. Returns nil
// for n <= 0, mirroring the "count == 0 yields no storage" contract.
func MakeSlice[T any](a *Arena, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	b, err := a.AllocBytes(size * n)
	if err != nil {
		return nil, err
	}
	a.arrays++
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n), nil
}

// Release drops every backing region at once. Allocations after Release fail
// with ErrReleased; a second Release is a no-op. Pointers previously returned
// by this arena must not be used afterwards.
func (a *Arena) Release() {
	a.chunks = nil
	a.released = true
}

// Released reports whether Release has been called.
func (a *Arena) Released() bool {
	return a.released
}

// Stats returns current bookkeeping counters.
func (a *Arena) Stats() Stats {
	s := Stats{
		Chunks:          len(a.chunks),
		Used:            a.used,
		InternedStrings: a.interned,
		Arrays:          a.arrays,
	}
	for i := range a.chunks {
		s.Reserved += int64(len(a.chunks[i].buf))
	}
	return s
}

// grow appends a fresh chunk large enough for min bytes.
func (a *Arena) grow(min int) *chunk {
	size := a.chunkSize
	if min > size {
		size = min
	}
	a.chunks = append(a.chunks, chunk{buf: make([]byte, size)})
	return &a.chunks[len(a.chunks)-1]
}

// alignUp rounds off up to pointer alignment so typed arrays carved from the
// byte stream are properly aligned.
func alignUp(off uintptr) uintptr {
	const align = unsafe.Alignof(uintptr(0))
	return (off + align - 1) &^ (align - 1)
}
