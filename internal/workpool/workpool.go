// Package workpool provides a bounded-concurrency task runner built on
// panjf2000/ants, used by the group deduplicator for the parallel per-file
// MinHash reads and the 256-way per-split index emit sweeps. The
// cross-group merger does not use it.
package workpool

import (
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Pool runs bounded-concurrency batches of tasks that may fail independently;
// the first error observed is retained and returned once every task has run.
type Pool struct {
	size int
}

// New returns a Pool capped at size concurrent goroutines. A non-positive
// size disables the cap: Run then sizes the pool to its task count n.
func New(size int) *Pool {
	return &Pool{size: size}
}

// Run submits n independent tasks (indices [0,n)) to a bounded worker pool
// and blocks until all have completed, returning the first error any task
// returned.
func (p *Pool) Run(n int, task func(i int) error) error {
	if n <= 0 {
		return nil
	}
	size := p.size
	if size <= 0 || size > n {
		size = n
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		firstErr error
	)
	wg.Add(n)

	pool, err := ants.NewPool(size, ants.WithPreAlloc(true))
	if err != nil {
		return fmt.Errorf("workpool: create pool: %w", err)
	}
	defer pool.Release()

	for i := 0; i < n; i++ {
		i := i
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := task(i); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("workpool: submit task %d: %w", i, submitErr)
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	return firstErr
}
