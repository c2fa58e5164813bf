// Package mem implements the reference-counted block lifecycle engine:
// the process-wide memory system, the block header and acquire/release
// protocol, the allocation variants, and the resizable buffer API.
package mem

import (
	"github.com/rs/zerolog"

	"github.com/memcore/rcmem-go/alloc"
	"github.com/memcore/rcmem-go/atomics"
)

// System binds the allocator and atomicity backends together with the
// allocation statistics. All blocks are created through a System and
// carry a reference to it for the whole of their life.
//
// A process normally uses the package-level Default instance; tests
// construct isolated systems with NewSystem. Backend swaps are not
// locked and must happen while no block operations are in flight.
type System struct {
	allocator alloc.Allocator
	incdec    atomics.IncDec
	cas       atomics.CAS
	shutting  bool
	log       zerolog.Logger

	// Monotonic counters. rawAllocs/rawFrees track regions drawn from
	// the allocator backend; blockAllocs/blockFrees track block headers.
	statRawAllocs   uint64
	statRawFrees    uint64
	statBlockAllocs uint64
	statBlockFrees  uint64
}

// Default is the process-wide system instance.
var Default = NewSystem()

// NewSystem creates a system bound to the Go allocator and hardware
// atomics, with zeroed statistics.
func NewSystem() *System {
	return &System{
		allocator: alloc.GoAllocator{},
		incdec:    atomics.Native{},
		cas:       atomics.Native{},
		log:       zerolog.Nop(),
	}
}

// Shutdown marks the system as shutting down and reverts both atomicity
// backends to the serial stand-ins. Legal only once all concurrent
// users of the system have stopped.
func (s *System) Shutdown() {
	s.shutting = true
	s.incdec = atomics.Serial{}
	s.cas = atomics.Serial{}
}

// ShuttingDown reports whether Shutdown has been called.
func (s *System) ShuttingDown() bool {
	return s.shutting
}

// SetAllocator replaces the allocator backend. Swapping while any raw
// region or block header is outstanding would strand memory in the old
// backend, so that is a fatal invariant violation.
func (s *System) SetAllocator(a alloc.Allocator) {
	if a != s.allocator &&
		(s.statRawAllocs != s.statRawFrees ||
			s.statBlockAllocs != s.statBlockFrees) {
		s.fatalf("cannot change allocator while blocks are allocated")
	}
	s.allocator = a
}

// SetAtomics replaces the increment/decrement backend.
func (s *System) SetAtomics(b atomics.IncDec) {
	s.incdec = b
}

// SetCAS replaces the compare-and-swap backend.
func (s *System) SetCAS(c atomics.CAS) {
	s.cas = c
}

// CompareAndSwap applies the configured CAS backend to an arbitrary
// word. Exposed for external owners coordinating over shared slots.
func (s *System) CompareAndSwap(addr *uint64, cmp, repl uint64) (uint64, bool) {
	return s.cas.CompareAndSwap(addr, cmp, repl)
}

// SetLogger injects the diagnostic sink. The default sink discards
// everything; injecting one changes observability only.
func (s *System) SetLogger(log zerolog.Logger) {
	s.log = log
}

// StatsRawAllocs reports the number of regions drawn from the backend.
func (s *System) StatsRawAllocs() uint64 { return s.statRawAllocs }

// StatsRawFrees reports the number of regions returned to the backend.
func (s *System) StatsRawFrees() uint64 { return s.statRawFrees }

// StatsBlockAllocs reports the number of block headers constructed.
func (s *System) StatsBlockAllocs() uint64 { return s.statBlockAllocs }

// StatsBlockFrees reports the number of block headers destroyed.
func (s *System) StatsBlockFrees() uint64 { return s.statBlockFrees }

// allocate draws a region from the backend. Failed allocations return
// nil and leave the counters untouched, so outstanding = allocs - frees
// stays exact for leak detection.
func (s *System) allocate(size int) []byte {
	b := s.allocator.Allocate(size)
	if b == nil {
		s.log.Trace().Int("size", size).Msg("raw allocation failed")
		return nil
	}
	s.incdec.Inc(&s.statRawAllocs)
	s.log.Trace().Int("size", size).Msg("raw allocate")
	return b
}

// reallocate resizes a region in place. The counters do not move: the
// region stays outstanding whether or not its address changed.
func (s *System) reallocate(b []byte, size int) []byte {
	buf := s.allocator.Reallocate(size, b)
	if buf == nil {
		s.log.Trace().Int("size", size).Msg("raw reallocation failed")
		return nil
	}
	s.log.Trace().Int("size", size).Msg("raw reallocate")
	return buf
}

// free returns a region to the backend.
func (s *System) free(b []byte) {
	if b == nil {
		return
	}
	s.allocator.Free(b)
	s.incdec.Inc(&s.statRawFrees)
	s.log.Trace().Int("size", len(b)).Msg("raw free")
}
