// Package parallel provides a bounded worker pool for data-parallel loops
// over index ranges. All operations are synchronous: the caller blocks until
// every worker finishes its chunk.
package parallel

import (
	"runtime"
	"sync"
)

// Pool executes index-range loops across a fixed number of workers.
type Pool struct {
	workers int
}

// New creates a pool with the given worker count.
// A count of zero or less uses runtime.NumCPU().
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Pool{workers: workers}
}

// Workers returns the pool's worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// For runs fn(i) for every i in [0, n), fanning out across the pool's
// workers in contiguous chunks. fn must not share mutable state across
// distinct indices.
func (p *Pool) For(n int, fn func(i int)) {
	p.ForRange(0, n, fn)
}

// ForChunks splits [begin, end) into at most one contiguous chunk per worker
// and runs fn(chunk, lo, hi) for each. chunk indices are dense starting at 0,
// so callers can accumulate per-chunk partials without locking.
func (p *Pool) ForChunks(begin, end int, fn func(chunk, lo, hi int)) int {
	n := end - begin
	if n <= 0 {
		return 0
	}

	workers := p.workers
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers
	chunks := (n + chunk - 1) / chunk

	if chunks == 1 {
		fn(0, begin, end)

		return 1
	}

	var wg sync.WaitGroup

	for c := 0; c < chunks; c++ {
		lo := begin + c*chunk
		hi := lo + chunk

		if hi > end {
			hi = end
		}

		wg.Add(1)

		go func(c, lo, hi int) {
			defer wg.Done()
			fn(c, lo, hi)
		}(c, lo, hi)
	}

	wg.Wait()

	return chunks
}

// ForRange runs fn(i) for every i in [begin, end) in contiguous chunks.
// Small ranges run inline on the calling goroutine.
func (p *Pool) ForRange(begin, end int, fn func(i int)) {
	n := end - begin
	if n <= 0 {
		return
	}

	workers := p.workers
	if workers > n {
		workers = n
	}

	if workers == 1 {
		for i := begin; i < end; i++ {
			fn(i)
		}

		return
	}

	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		lo := begin + w*chunk
		hi := lo + chunk

		if hi > end {
			hi = end
		}

		if lo >= hi {
			break
		}

		wg.Add(1)

		go func(lo, hi int) {
			defer wg.Done()

			for i := lo; i < hi; i++ {
				fn(i)
			}
		}(lo, hi)
	}

	wg.Wait()
}
