// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"os"
	"sync"
)

// CloseGroup runs background goroutines that share a common lifetime
// context. Closing the group cancels the context and waits for all
// goroutines to return.
type CloseGroup struct {
	closeCtx  context.Context
	causeFunc context.CancelCauseFunc

	wg sync.WaitGroup

	once sync.Once
}

func (cg *CloseGroup) init() {
	cg.closeCtx, cg.causeFunc = context.WithCancelCause(context.Background())
}

// Close cancels the group context with os.ErrClosed and waits.
func (cg *CloseGroup) Close() {
	cg.CloseCause(os.ErrClosed)
}

// CloseCause cancels the group context with the input cause and waits.
func (cg *CloseGroup) CloseCause(cause error) {
	cg.once.Do(cg.init)
	cg.causeFunc(cause)
	cg.wg.Wait()
}

func (cg *CloseGroup) Context() context.Context {
	cg.once.Do(cg.init)
	return cg.closeCtx
}

// Go runs f in a new goroutine. The context passed to f is canceled when the
// group is closed or when the parent context is canceled.
func (cg *CloseGroup) Go(parent context.Context, f func(ctx context.Context)) {
	cg.once.Do(cg.init)

	cg.wg.Add(1)
	go func() {
		defer cg.wg.Done()

		ctx, cancel := context.WithCancelCause(parent)
		defer cancel(nil)

		stop := context.AfterFunc(cg.closeCtx, func() {
			cancel(context.Cause(cg.closeCtx))
		})
		defer stop()

		f(ctx)
	}()
}
