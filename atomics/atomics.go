// Package atomics provides the swappable atomic primitives used on
// refcount and statistics words. Production code uses Native; Serial is
// the non-atomic stand-in installed at system shutdown and used by
// single-threaded tests.
package atomics

import "sync/atomic"

// IncDec increments and decrements a machine word, returning the
// post-operation value.
type IncDec interface {
	Inc(addr *uint64) uint64
	Dec(addr *uint64) uint64
}

// CAS compares the word at addr with cmp and, on a match, stores repl.
// It returns the value observed before the operation and whether the
// swap happened.
type CAS interface {
	CompareAndSwap(addr *uint64, cmp, repl uint64) (old uint64, swapped bool)
}

// Native implements IncDec and CAS with hardware atomics.
type Native struct{}

func (Native) Inc(addr *uint64) uint64 {
	return atomic.AddUint64(addr, 1)
}

func (Native) Dec(addr *uint64) uint64 {
	return atomic.AddUint64(addr, ^uint64(0))
}

func (Native) CompareAndSwap(addr *uint64, cmp, repl uint64) (uint64, bool) {
	if atomic.CompareAndSwapUint64(addr, cmp, repl) {
		return cmp, true
	}
	return atomic.LoadUint64(addr), false
}

// Serial implements IncDec and CAS with plain loads and stores. Only
// legal when no concurrent users remain.
type Serial struct{}

func (Serial) Inc(addr *uint64) uint64 {
	out := *addr + 1
	*addr = out
	return out
}

func (Serial) Dec(addr *uint64) uint64 {
	out := *addr - 1
	*addr = out
	return out
}

func (Serial) CompareAndSwap(addr *uint64, cmp, repl uint64) (uint64, bool) {
	old := *addr
	if old == cmp {
		*addr = repl
		return old, true
	}
	return old, false
}
