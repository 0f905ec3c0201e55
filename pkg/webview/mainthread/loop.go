package mainthread

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/bnema/webviewhost/pkg/webview"
)

const defaultQueueSize = 64

// Loop is a goroutine locked to its own OS thread that executes queued
// closures one at a time. Handles registered from a Loop task are owned by
// the loop thread for their whole life.
type Loop struct {
	tasks  chan func()
	quit   chan struct{}
	done   chan struct{}
	thread webview.ThreadID
	logger zerolog.Logger

	mu        sync.Mutex
	closed    bool
	senders   sync.WaitGroup
	closeOnce sync.Once
}

// NewLoop starts a loop with room for queueSize pending tasks.
func NewLoop(logger zerolog.Logger, queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	l := &Loop{
		tasks:  make(chan func(), queueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "mainthread").Logger(),
	}

	ready := make(chan webview.ThreadID)
	go l.run(ready)
	l.thread = <-ready

	l.logger.Debug().Uint64("thread", uint64(l.thread)).Int("queue_size", queueSize).Msg("main loop started")
	return l
}

func (l *Loop) run(ready chan<- webview.ThreadID) {
	// Never unlocked: the thread exits with the goroutine and is not reused.
	runtime.LockOSThread()
	ready <- webview.CurrentThread()
	defer close(l.done)

	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-l.quit:
			// Finish what was accepted before Close.
			for {
				select {
				case fn := <-l.tasks:
					l.exec(fn)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("main loop task panicked")
		}
	}()
	fn()
}

// Thread returns the OS thread the loop runs on.
func (l *Loop) Thread() webview.ThreadID {
	return l.thread
}

// OnMainThread reports whether the caller is the loop's thread.
func (l *Loop) OnMainThread() bool {
	return webview.CurrentThread() == l.thread
}

// Post queues fn without waiting for it. A nil error means fn will run.
func (l *Loop) Post(fn func()) error {
	return l.enqueue(context.Background(), fn)
}

// enqueue hands fn to the loop unless Close has begun. Close waits for
// enqueues in flight, so an accepted task is always drained.
func (l *Loop) enqueue(ctx context.Context, fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.senders.Add(1)
	l.mu.Unlock()
	defer l.senders.Done()

	select {
	case l.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch runs fn on the loop and waits for it. Called from the loop itself,
// fn runs inline. If ctx ends before fn started, fn is skipped and ctx.Err()
// is returned; once fn started, Dispatch waits for it regardless of ctx.
func (l *Loop) Dispatch(ctx context.Context, fn func()) error {
	if l.OnMainThread() {
		return runGuarded(fn)
	}

	var (
		claimed  atomic.Bool
		finished = make(chan error, 1)
	)
	task := func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		finished <- runGuarded(fn)
	}

	if err := l.enqueue(ctx, task); err != nil {
		return err
	}

	select {
	case err := <-finished:
		return err
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		return <-finished
	}
}

// Close stops accepting work, runs what is queued and waits for the loop to exit.
// Close must not be called from a loop task.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		l.senders.Wait()
		close(l.quit)
	})
	<-l.done
	l.logger.Debug().Msg("main loop stopped")
}

func runGuarded(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	fn()
	return nil
}
