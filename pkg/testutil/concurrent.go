package testutil

import (
	"sync"
	"sync/atomic"
)

// ConcurrentResult tallies goroutine outcomes.
type ConcurrentResult struct {
	Successes int32
	Failures  int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Failures
}

// RunConcurrent runs fn in n goroutines at once. fn reports success by
// returning true.
func RunConcurrent(n int, fn func(idx int) bool) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, failures atomic.Int32
	start := make(chan struct{})

	for i := range n {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			if fn(idx) {
				successes.Add(1)
			} else {
				failures.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{Successes: successes.Load(), Failures: failures.Load()}
}
