//go:build webkit_cgo

package gtkview

import (
	"context"
	"sync/atomic"

	"github.com/diamondburned/gotk4/pkg/glib/v2"

	"github.com/bnema/webviewhost/pkg/webview"
	"github.com/bnema/webviewhost/pkg/webview/mainthread"
)

// IdleDispatcher schedules work on the GTK main loop through glib idle
// sources. It must be created on the thread that runs the main loop.
type IdleDispatcher struct {
	thread webview.ThreadID
	closed atomic.Bool
}

var (
	_ mainthread.Dispatcher = (*IdleDispatcher)(nil)
	_ mainthread.Poster     = (*IdleDispatcher)(nil)
)

// NewIdleDispatcher binds a dispatcher to the calling thread.
func NewIdleDispatcher() *IdleDispatcher {
	return &IdleDispatcher{thread: webview.CurrentThread()}
}

// OnMainThread reports whether the caller is the GTK thread.
func (d *IdleDispatcher) OnMainThread() bool {
	return webview.CurrentThread() == d.thread
}

// Post queues fn on the main loop.
func (d *IdleDispatcher) Post(fn func()) error {
	if d.closed.Load() {
		return mainthread.ErrClosed
	}
	glib.IdleAdd(func() bool {
		fn()
		return false
	})
	return nil
}

// Dispatch runs fn on the main loop and waits for it. Called from the main
// thread it runs fn immediately. If ctx ends before fn started, fn is
// skipped; once started, Dispatch waits for it regardless of ctx.
func (d *IdleDispatcher) Dispatch(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.OnMainThread() {
		fn()
		return nil
	}

	var claimed atomic.Bool
	done := make(chan struct{})
	err := d.Post(func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(done)
		fn()
	})
	if err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		<-done
		return nil
	}
}

// Close rejects further work. Idle sources already queued still run.
func (d *IdleDispatcher) Close() {
	d.closed.Store(true)
}
