// internal/app/bootstrap/background.go
package bootstrap

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// background tracks goroutines started by BuildHandler so Shutdown can stop
// them and wait for them to return.
type background struct {
	mu     sync.Mutex
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	n      int
}

var workers background

// Go runs fn in its own goroutine with a context cancelled by Stop.
func (b *background) Go(fn func(context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.group == nil {
		ctx, cancel := context.WithCancel(context.Background())
		b.group, b.ctx = errgroup.WithContext(ctx)
		b.cancel = cancel
	}
	ctx := b.ctx
	b.group.Go(func() error {
		fn(ctx)
		return nil
	})
	b.n++
}

// Stop cancels every running goroutine and waits until they have returned.
func (b *background) Stop() {
	b.mu.Lock()
	group, cancel := b.group, b.cancel
	b.group, b.ctx, b.cancel, b.n = nil, nil, nil, 0
	b.mu.Unlock()

	if group == nil {
		return
	}
	cancel()
	_ = group.Wait()
}

// Len reports how many goroutines have been started since the last Stop.
func (b *background) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}
