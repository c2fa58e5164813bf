package mem

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/memcore/rcmem-go/ut"
)

// InvalidRefCount is returned by RefCount for a nil block or a block
// whose payload has been torn down. A live block never reads as zero.
const InvalidRefCount = ^uint64(0)

// Kind discriminates the allocation strategy of a block. Resize is only
// legal on KindVarsize blocks and the check is exhaustive over this
// enum.
type Kind uint8

const (
	// KindFixed blocks own a single contiguous region holding the
	// payload, produced by Alloc and its aligned/safe variants.
	KindFixed Kind = iota
	// KindVarsize blocks own a payload allocation separate from the
	// header, resizable with VarsizeRealloc.
	KindVarsize
	// KindWrapped blocks wrap externally owned data; the engine never
	// frees the payload itself.
	KindWrapped
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindVarsize:
		return "varsize"
	case KindWrapped:
		return "wrapped"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Dtor is invoked exactly once when a block's refcount reaches zero,
// with the payload and the opaque context supplied at construction. It
// must not re-enter the block being destroyed.
type Dtor func(data []byte, ctx any)

// Block is the reference-counted header pairing a payload with an
// optional destructor. It starts Live with refcount 1; acquire and
// release move the count through the configured atomicity backend, and
// the 1-to-0 transition destroys the payload and header exactly once,
// synchronously on the releasing goroutine. Any acquire or release
// after that point is a caller bug.
type Block struct {
	sys     *System
	refct   uint64
	kind    Kind
	dtor    Dtor
	dtorCtx any
	// region is the owned composite region for fixed blocks; data is
	// the payload view into it. Varsize blocks keep region nil and own
	// data as a separate allocation. Wrapped blocks own neither.
	region []byte
	data   []byte
	size   int
}

// newBlock initializes a header with refcount 1 and counts it.
func (s *System) newBlock(kind Kind, region, data []byte, size int, dtor Dtor, ctx any) *Block {
	b := &Block{
		sys:     s,
		refct:   1,
		kind:    kind,
		dtor:    dtor,
		dtorCtx: ctx,
		region:  region,
		data:    data,
		size:    size,
	}
	s.incdec.Inc(&s.statBlockAllocs)
	return b
}

// NewWrapping wraps externally owned data in a block. The destructor,
// if any, receives the data and ctx at the refcount-zero transition;
// the engine does not free the data itself.
func NewWrapping(s *System, data []byte, dtor Dtor, ctx any) *Block {
	return s.newBlock(KindWrapped, nil, data, len(data), dtor, ctx)
}

// Acquire adds an owner. The block must be live.
func (b *Block) Acquire() {
	if atomic.LoadUint64(&b.refct) == 0 {
		b.sys.fatalf("acquire on a block with zero refcount")
	}
	b.sys.incdec.Inc(&b.refct)
	if e := b.sys.log.Trace(); e.Enabled() {
		e.Str("block", fmt.Sprintf("%p", b)).Msg("acquire")
	}
}

// Release drops an owner. When the last owner releases, the destructor
// runs against the payload, the owned region is returned to the
// allocator backend, and the header is retired.
func (b *Block) Release() {
	if atomic.LoadUint64(&b.refct) == 0 {
		b.sys.fatalf("release on a block with zero refcount")
	}
	if e := b.sys.log.Trace(); e.Enabled() {
		e.Str("block", fmt.Sprintf("%p", b)).Msg("release")
	}
	if b.sys.incdec.Dec(&b.refct) == 0 {
		b.callDtor()
	}
}

// callDtor runs the destructor, if present, then retires the header.
func (b *Block) callDtor() {
	if b.dtor != nil {
		b.dtor(b.data, b.dtorCtx)
	}
	b.destroy()
}

// destroy frees the owned region and clears the payload view so any
// later accessor reads as invalid.
func (b *Block) destroy() {
	if b.region != nil {
		b.sys.free(b.region)
	}
	b.region = nil
	b.data = nil
	b.sys.incdec.Inc(&b.sys.statBlockFrees)
}

// RefCount reports the current number of owners, or InvalidRefCount if
// the block or its payload is gone. The sentinel aids debugging; it is
// not a normal code path.
func (b *Block) RefCount() uint64 {
	if b == nil || b.data == nil {
		return InvalidRefCount
	}
	return atomic.LoadUint64(&b.refct)
}

// Data returns the payload.
func (b *Block) Data() []byte {
	return b.data
}

// Size returns the payload length in bytes. Only meaningful for
// payloads owned by the engine, not for wrapped data.
func (b *Block) Size() int {
	return b.size
}

// Dump writes the block address and refcount to w, and a payload
// preview to the diagnostic sink.
func (b *Block) Dump(w io.Writer) {
	refct := atomic.LoadUint64(&b.refct)
	fmt.Fprintf(w, "Block %p refcount %d\n", b, refct)
	if e := b.sys.log.Trace(); e.Enabled() {
		e.Str("block", fmt.Sprintf("%p", b)).
			Uint64("refcount", refct).
			Str("payload", ut.PrintBuf(b.data[:ut.MinInt(len(b.data), 32)])).
			Msg("dump")
	}
}
