// rcmcheck is a self-check harness for the block lifecycle engine: it
// hammers shared blocks from many goroutines, cycles resizable buffers,
// and verifies that every statistics counter and byte count balances.
package main

import (
	"flag"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/memcore/rcmem-go/alloc"
	"github.com/memcore/rcmem-go/mem"
	"github.com/memcore/rcmem-go/ut"
)

func main() {
	goroutines := flag.Int("goroutines", 8, "Concurrent owners per shared block")
	rounds := flag.Int("rounds", 10000, "Acquire/release rounds per goroutine")
	blocks := flag.Int("blocks", 16, "Number of shared blocks")
	verbose := flag.Bool("v", false, "Enable trace output from the engine")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	counting := alloc.NewCounting(alloc.Arrow())
	sys := mem.NewSystem()
	sys.SetAllocator(counting)
	if *verbose {
		sys.SetLogger(log.Level(zerolog.TraceLevel))
	}

	shared := make([]*mem.Block, *blocks)
	for i := range shared {
		size := ut.PowerUp(64 + i)
		if i%2 == 0 {
			shared[i] = sys.AllocSafe(size)
		} else {
			shared[i] = sys.AllocAligned(size, 64)
		}
		if shared[i] == nil {
			log.Fatal().Int("block", i).Msg("allocation failed")
		}
	}

	var wg sync.WaitGroup
	wg.Add(*goroutines)
	for g := 0; g < *goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < *rounds; i++ {
				b := shared[i%len(shared)]
				b.Acquire()
				b.Release()
			}
		}()
	}
	wg.Wait()

	varsizeCycle(log, sys)

	for _, b := range shared {
		b.Release()
	}

	ok := true
	if a, f := sys.StatsRawAllocs(), sys.StatsRawFrees(); a != f {
		log.Error().Uint64("allocs", a).Uint64("frees", f).
			Msg("raw regions leaked")
		ok = false
	}
	if a, f := sys.StatsBlockAllocs(), sys.StatsBlockFrees(); a != f {
		log.Error().Uint64("allocs", a).Uint64("frees", f).
			Msg("block headers leaked")
		ok = false
	}
	if used := counting.BytesUsed(); used != 0 {
		log.Error().Int64("bytes", used).Msg("bytes outstanding")
		ok = false
	}
	if !ok {
		os.Exit(1)
	}
	log.Info().
		Uint64("raw", sys.StatsRawAllocs()).
		Uint64("blocks", sys.StatsBlockAllocs()).
		Msg("all counters balanced")
}

// varsizeCycle grows and shrinks a resizable buffer, checking that the
// content survives each move.
func varsizeCycle(log zerolog.Logger, sys *mem.System) {
	b := sys.VarsizeAlloc(50)
	if b == nil {
		log.Fatal().Msg("varsize allocation failed")
	}
	for i := range b.Data() {
		b.Data()[i] = byte(i)
	}
	for _, size := range []int{100, 400, 25, 4096} {
		keep := ut.MinInt(b.Size(), size)
		if b.VarsizeRealloc(size) == nil {
			log.Fatal().Int("size", size).Msg("varsize realloc failed")
		}
		for i := 0; i < ut.MinInt(keep, 50); i++ {
			if b.Data()[i] != byte(i) {
				log.Fatal().Int("offset", i).Msg("varsize content lost")
			}
		}
	}
	b.Release()
}
