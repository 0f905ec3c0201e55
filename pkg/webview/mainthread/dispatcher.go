// Package mainthread runs work on the thread that owns the UI toolkit.
package mainthread

import (
	"context"
	"errors"
)

var (
	ErrClosed       = errors.New("mainthread: loop closed")
	ErrTaskPanicked = errors.New("mainthread: task panicked")
)

// Dispatcher executes closures on the UI thread.
type Dispatcher interface {
	// Dispatch runs fn on the UI thread and blocks until it returned.
	// A nil error means fn ran to completion.
	Dispatch(ctx context.Context, fn func()) error
	// OnMainThread reports whether the caller already is the UI thread.
	OnMainThread() bool
}

// Poster queues work on the UI thread without waiting for it.
type Poster interface {
	Post(fn func()) error
}

// Inline is the dispatcher for platforms without a designated UI thread:
// every closure runs on the caller.
type Inline struct{}

func (Inline) Dispatch(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

func (Inline) OnMainThread() bool { return true }

// Post runs fn immediately.
func (Inline) Post(fn func()) error {
	fn()
	return nil
}

// RunOnMainThread runs fn on the dispatcher's thread and returns its result.
// When the caller already is that thread, fn runs inline.
func RunOnMainThread[R any](ctx context.Context, d Dispatcher, fn func() (R, error)) (R, error) {
	if d == nil || d.OnMainThread() {
		return fn()
	}

	type result struct {
		val R
		err error
	}
	out := make(chan result, 1)
	if err := d.Dispatch(ctx, func() {
		val, err := fn()
		out <- result{val: val, err: err}
	}); err != nil {
		var zero R
		return zero, err
	}
	res := <-out
	return res.val, res.err
}
