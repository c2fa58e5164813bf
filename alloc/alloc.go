// Package alloc provides the swappable raw-memory backend used by the
// block lifecycle engine.
package alloc

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Allocator defines the raw allocation contract. The method set matches
// arrow's memory.Allocator, so any arrow allocator satisfies it directly.
// A nil return from Allocate or Reallocate signals allocation failure;
// implementations must not panic on failure.
type Allocator interface {
	Allocate(size int) []byte
	Reallocate(size int, b []byte) []byte
	Free(b []byte)
}

// GoAllocator delegates to the Go runtime and keeps Free as a no-op.
type GoAllocator struct{}

func (GoAllocator) Allocate(size int) []byte {
	return make([]byte, size)
}

func (GoAllocator) Reallocate(size int, b []byte) []byte {
	if size == len(b) {
		return b
	}
	buf := make([]byte, size)
	copy(buf, b)
	return buf
}

func (GoAllocator) Free([]byte) {}

// Arrow returns an allocator backed by arrow's buffer allocator, which
// over-allocates to 64-byte boundaries.
func Arrow() Allocator {
	return memory.NewGoAllocator()
}

// Counting wraps an Allocator and tracks outstanding bytes and the number
// of allocate/free calls. Useful for leak checks around a test or a
// stress run.
type Counting struct {
	underlying Allocator
	bytesUsed  atomic.Int64
	allocs     atomic.Uint64
	frees      atomic.Uint64
}

// NewCounting creates a counting wrapper over underlying.
func NewCounting(underlying Allocator) *Counting {
	return &Counting{underlying: underlying}
}

func (c *Counting) Allocate(size int) []byte {
	b := c.underlying.Allocate(size)
	if b == nil {
		return nil
	}
	c.bytesUsed.Add(int64(size))
	c.allocs.Add(1)
	return b
}

func (c *Counting) Reallocate(size int, b []byte) []byte {
	buf := c.underlying.Reallocate(size, b)
	if buf == nil {
		return nil
	}
	c.bytesUsed.Add(int64(size - len(b)))
	return buf
}

func (c *Counting) Free(b []byte) {
	c.bytesUsed.Add(-int64(len(b)))
	c.frees.Add(1)
	c.underlying.Free(b)
}

// BytesUsed reports bytes allocated and not yet freed.
func (c *Counting) BytesUsed() int64 {
	return c.bytesUsed.Load()
}

// Allocs reports the number of successful Allocate calls.
func (c *Counting) Allocs() uint64 {
	return c.allocs.Load()
}

// Frees reports the number of Free calls.
func (c *Counting) Frees() uint64 {
	return c.frees.Load()
}
