package persist

import (
	"context"
	"sync"
)

// initGate runs a setup step until it first succeeds. A failed attempt is
// returned to the caller and tried again on the next call.
type initGate struct {
	mu   sync.Mutex
	done bool
}

func (g *initGate) do(ctx context.Context, fn func(context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.done {
		return nil
	}
	if err := fn(ctx); err != nil {
		return err
	}
	g.done = true
	return nil
}
