// Package parallel splits host kernel loops across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4096,
	}
}

// Sequential returns a config that never fans out.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// Workers returns the default config fanned out to n goroutines.
// n <= 1 is Sequential.
func Workers(n int) Config {
	if n <= 1 {
		return Sequential()
	}
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.NumWorkers = n
	return cfg
}

// ForRange calls f(start, end) over consecutive chunks covering [0, n) and
// waits for all of them. Falls back to a single f(0, n) call if parallelism
// is disabled or n is too small to split.
func ForRange(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2*cfg.MinChunkSize {
		f(0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}
