// Package parallel provides a bounded fork-join worker pool used to fan out
// move generation and move evaluation across a fixed number of goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Pool runs a fixed number of tasks concurrently and joins on completion.
// There is no dynamic scaling and no queue: every call to Map/MapIndexed
// blocks until all of its own tasks finish, matching the fork-join-only
// concurrency model used during move generation and evaluation (tasks
// touch only read-only model state and write into their own result slot).
type Pool struct {
	workers int
}

// New returns a Pool with the given worker budget. workers <= 0 defaults
// to runtime.NumCPU().
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the pool's worker budget.
func (p *Pool) Workers() int { return p.workers }

// MapIndexed runs fn(i) for i in [0, n) and returns once every call has
// completed. Work is sliced into contiguous chunks, one per worker, so
// that result ordering (when fn writes into a pre-allocated slot) does not
// depend on goroutine finish order.
func (p *Pool) MapIndexed(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := p.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// Map runs fn(task) for every task in tasks and returns once every call
// has completed.
func (p *Pool) Map(tasks []func()) {
	p.MapIndexed(len(tasks), func(i int) { tasks[i]() })
}
