package mem

import (
	"unsafe"

	"github.com/memcore/rcmem-go/ut"
)

// Poison sentinels written by the safe allocation variants. Only the
// leading poisonWindow bytes are filled, bounding the overhead on large
// payloads while still catching uninitialized reads and use-after-free
// on small and medium buffers.
const (
	PoisonAlloc  = 0xCB
	PoisonFree   = 0xDE
	poisonWindow = 256
)

// Alloc creates a fixed block whose payload is the whole owned region.
// Returns nil if the backend cannot satisfy the allocation.
func (s *System) Alloc(size int) *Block {
	region := s.allocate(size)
	if region == nil {
		return nil
	}
	return s.newBlock(KindFixed, region, region[:size], size, nil, nil)
}

// AllocAligned creates a fixed block whose payload address is a
// multiple of align. The region is over-allocated by 2*align to
// guarantee room for the padding. align must be positive; the offset
// arithmetic works for any positive align, but callers should pass a
// power of two to match hardware alignment requirements.
func (s *System) AllocAligned(size, align int) *Block {
	region, data := s.allocateAligned(size, align)
	if region == nil {
		return nil
	}
	return s.newBlock(KindFixed, region, data, size, nil, nil)
}

// AllocSafe is Alloc plus poisoning: the leading window of the payload
// is filled with PoisonAlloc at construction and with PoisonFree just
// before the region is freed.
func (s *System) AllocSafe(size int) *Block {
	region := s.allocate(size)
	if region == nil {
		return nil
	}
	data := region[:size]
	poisonFill(data, PoisonAlloc)
	return s.newBlock(KindFixed, region, data, size, poisonDtor, nil)
}

// AllocSafeAligned combines AllocAligned and AllocSafe.
func (s *System) AllocSafeAligned(size, align int) *Block {
	region, data := s.allocateAligned(size, align)
	if region == nil {
		return nil
	}
	poisonFill(data, PoisonAlloc)
	return s.newBlock(KindFixed, region, data, size, poisonDtor, nil)
}

// allocateAligned draws an over-sized region and computes the payload
// view at the minimal forward offset aligning its address.
func (s *System) allocateAligned(size, align int) (region, data []byte) {
	if align <= 0 {
		s.fatalf("alignment must be positive, got %d", align)
	}
	if !ut.IsPowerOfTwo(align) {
		s.log.Trace().Int("align", align).Msg("non-power-of-two alignment")
	}
	region = s.allocate(size + 2*align)
	if region == nil {
		return nil, nil
	}
	offset := alignOffset(region, align)
	return region, region[offset : offset+size]
}

// alignOffset returns how far forward the payload must start inside
// region for its address to be a multiple of align: zero when the base
// is already aligned, align - (base mod align) otherwise.
func alignOffset(region []byte, align int) int {
	addr := uintptr(unsafe.Pointer(&region[0]))
	rem := int(addr % uintptr(align))
	if rem == 0 {
		return 0
	}
	return align - rem
}

// poisonDtor marks the leading window of a released payload.
func poisonDtor(data []byte, _ any) {
	poisonFill(data, PoisonFree)
}

func poisonFill(data []byte, sentinel byte) {
	n := ut.MinInt(len(data), poisonWindow)
	for i := 0; i < n; i++ {
		data[i] = sentinel
	}
}
