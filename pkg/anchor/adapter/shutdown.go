package adapter

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Shutdown closes every cached adapter concurrently and empties the cache.
// A failing close does not stop the others; all failures are returned together.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]*Adapter)
	r.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for key, a := range instances {
		wg.Add(1)
		go func(key string, a *Adapter) {
			defer wg.Done()
			if err := a.Close(ctx); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("adapter %s: %w", key, err))
				mu.Unlock()
			}
		}(key, a)
	}
	wg.Wait()

	if errs != nil {
		r.safeLog("error", "shutdown finished with errors: %v", errs)
	} else {
		r.safeLog("info", "closed %d adapters", len(instances))
	}
	return errs
}
