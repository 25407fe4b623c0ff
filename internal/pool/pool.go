// Package pool provides a bounded-concurrency executor for batch work.
package pool

import (
	"context"
	"sync"
)

// Run executes fn for every item with at most limit invocations in flight.
// Results are index-tagged so the returned slice preserves the relative input
// order of successful items; failed items are omitted entirely. Run returns
// only after every item has settled. It performs no cancellation of its own:
// fn is responsible for honouring ctx.
func Run[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (R, error)) []R {
	if limit < 1 {
		limit = 1
	}

	type slot struct {
		val R
		ok  bool
	}

	results := make([]slot, len(items))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()

			val, err := fn(ctx, item)
			if err != nil {
				return
			}
			results[i] = slot{val: val, ok: true}
		}(i, item)
	}

	wg.Wait()

	out := make([]R, 0, len(items))
	for _, s := range results {
		if s.ok {
			out = append(out, s.val)
		}
	}
	return out
}
