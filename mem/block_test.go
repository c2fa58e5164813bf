package mem

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/rcmem-go/atomics"
)

func TestAllocRefcountAndSize(t *testing.T) {
	sys := NewSystem()
	b := sys.Alloc(64)
	require.NotNil(t, b)
	require.EqualValues(t, 1, b.RefCount())
	require.Equal(t, 64, b.Size())
	require.Len(t, b.Data(), 64)
	b.Release()
}

func TestAcquireReleaseBalance(t *testing.T) {
	sys := NewSystem()
	sys.SetAtomics(atomics.Serial{})
	b := sys.Alloc(16)

	b.Acquire()
	b.Release()
	require.EqualValues(t, 1, b.RefCount())

	for i := 0; i < 10; i++ {
		b.Acquire()
	}
	for i := 0; i < 10; i++ {
		b.Release()
	}
	require.EqualValues(t, 1, b.RefCount())
	b.Release()
}

func TestReleaseToZeroDestroysOnce(t *testing.T) {
	sys := NewSystem()
	data := make([]byte, 8)
	dtorRuns := 0
	b := NewWrapping(sys, data, func(payload []byte, ctx any) {
		dtorRuns++
		require.Equal(t, &data[0], &payload[0])
		require.Equal(t, "ctx", ctx)
	}, "ctx")

	b.Acquire()
	b.Acquire()
	require.EqualValues(t, 3, b.RefCount())

	b.Release()
	b.Release()
	require.EqualValues(t, 1, b.RefCount())
	require.Zero(t, dtorRuns)

	freesBefore := sys.StatsBlockFrees()
	b.Release()
	require.Equal(t, 1, dtorRuns)
	require.Equal(t, freesBefore+1, sys.StatsBlockFrees())
}

func TestRefCountInvalidSentinel(t *testing.T) {
	sys := NewSystem()

	var nilBlock *Block
	require.EqualValues(t, InvalidRefCount, nilBlock.RefCount())

	noData := NewWrapping(sys, nil, nil, nil)
	require.EqualValues(t, InvalidRefCount, noData.RefCount())

	b := sys.Alloc(8)
	b.Release()
	require.EqualValues(t, InvalidRefCount, b.RefCount())
}

func TestAcquireAfterFreeIsFatal(t *testing.T) {
	sys := NewSystem()
	b := sys.Alloc(8)
	// Keep the header reachable past release to observe the dead state.
	b.Release()
	require.PanicsWithError(t,
		"fatal memory error: acquire on a block with zero refcount",
		b.Acquire)
	require.PanicsWithError(t,
		"fatal memory error: release on a block with zero refcount",
		b.Release)
}

func TestWrappedBlockDoesNotFreePayload(t *testing.T) {
	sys := NewSystem()
	data := []byte("external")
	b := NewWrapping(sys, data, nil, nil)
	require.Equal(t, len(data), b.Size())

	rawFrees := sys.StatsRawFrees()
	b.Release()
	require.Equal(t, rawFrees, sys.StatsRawFrees())
	require.Equal(t, "external", string(data))
}

func TestDump(t *testing.T) {
	sys := NewSystem()
	b := sys.Alloc(4)
	var out bytes.Buffer
	b.Dump(&out)
	require.Equal(t, fmt.Sprintf("Block %p refcount 1\n", b), out.String())
	b.Release()
}

func TestConcurrentAcquireRelease(t *testing.T) {
	sys := NewSystem()
	b := sys.Alloc(32)

	const goroutines = 8
	const rounds = 2000
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				b.Acquire()
				b.Release()
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, b.RefCount())
	b.Release()
	require.EqualValues(t, 1, sys.StatsBlockFrees())
}

func BenchmarkAcquireRelease(b *testing.B) {
	sys := NewSystem()
	blk := sys.Alloc(64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		blk.Acquire()
		blk.Release()
	}
	b.StopTimer()
	blk.Release()
}
