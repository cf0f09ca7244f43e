package sim

import (
	"context"
	"sync"
)

// Factory returns a fresh simulator. Integrators and metrics keep scratch
// state, so every concurrent run needs its own instance.
type Factory func() *Simulator

// Sweep runs one simulation per initial state concurrently and returns the
// results in input order.
func Sweep(ctx context.Context, factory Factory, inits []State, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(inits))
	errs := make([]error, len(inits))

	var wg sync.WaitGroup
	for i := range inits {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = factory().Run(ctx, inits[idx], cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
