package mem

// VarsizeAlloc creates a resizable block. Header and payload are
// separate allocations so the payload can be reallocated in place; the
// destructor returns the payload to the backend. Returns nil if the
// raw allocation fails.
func (s *System) VarsizeAlloc(size int) *Block {
	data := s.allocate(size)
	if data == nil {
		return nil
	}
	dtor := func(data []byte, _ any) {
		s.free(data)
	}
	return s.newBlock(KindVarsize, nil, data, size, dtor, nil)
}

// VarsizeRealloc resizes the payload of a varsize block, preserving
// content up to the smaller of the old and new sizes. The payload
// address may change. On reallocation failure it returns nil and
// leaves the block untouched. Calling it on any other kind of block is
// a fatal invariant violation: fixed and wrapped payloads cannot move.
//
// Not safe against concurrent use of the same block; callers serialize
// resize against all other operations.
func (b *Block) VarsizeRealloc(size int) []byte {
	switch b.kind {
	case KindVarsize:
	case KindFixed, KindWrapped:
		b.sys.fatalf("varsize realloc on a %s block", b.kind)
	default:
		b.sys.fatalf("varsize realloc on a block of unknown kind %d", b.kind)
	}
	data := b.sys.reallocate(b.data, size)
	if data == nil {
		return nil
	}
	b.data = data
	b.size = size
	return data
}
