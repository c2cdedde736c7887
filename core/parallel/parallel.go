// Package parallel runs independent per-member work on a bounded goroutine pool.
package parallel

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Workers normalises a requested worker count: values below 1 mean one worker
// per CPU, and the result never exceeds items.
func Workers(requested, items int) int {
	n := requested
	if n < 1 {
		n = runtime.NumCPU()
	}
	if n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ForEach calls fn(i) for i in [0, n) using at most workers goroutines and
// returns the per-index errors. With workers == 1 every call runs sequentially
// on the calling goroutine.
//
// Each goroutine writes only its own slot, so the caller can apply the results
// in index order after ForEach returns.
func ForEach(n, workers int, fn func(i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}
	if workers == 1 || n == 1 {
		for i := 0; i < n; i++ {
			errs[i] = fn(i)
		}
		return errs
	}
	p := pool.New().WithMaxGoroutines(Workers(workers, n))
	for i := 0; i < n; i++ {
		i := i
		p.Go(func() { errs[i] = fn(i) })
	}
	p.Wait()
	return errs
}
