package mainthread

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/webviewhost/pkg/webview"
)

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop(zerolog.Nop(), 8)
	t.Cleanup(l.Close)
	return l
}

func TestLoop_RunsTasksOnItsOwnThread(t *testing.T) {
	l := newTestLoop(t)

	var seen webview.ThreadID
	require.NoError(t, l.Dispatch(context.Background(), func() {
		seen = webview.CurrentThread()
	}))
	assert.Equal(t, l.Thread(), seen)
	assert.False(t, l.OnMainThread())
}

func TestLoop_DispatchFromLoopRunsInline(t *testing.T) {
	l := newTestLoop(t)

	var inner bool
	require.NoError(t, l.Dispatch(context.Background(), func() {
		assert.True(t, l.OnMainThread())
		// A nested Dispatch would deadlock if it queued.
		err := l.Dispatch(context.Background(), func() { inner = true })
		assert.NoError(t, err)
	}))
	assert.True(t, inner)
}

func TestLoop_TasksRunInOrder(t *testing.T) {
	l := newTestLoop(t)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, l.Post(func() { order = append(order, i) }))
	}
	require.NoError(t, l.Dispatch(context.Background(), func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLoop_ConcurrentDispatchers(t *testing.T) {
	l := newTestLoop(t)

	var (
		eg      errgroup.Group
		counter int
	)
	for i := 0; i < 16; i++ {
		eg.Go(func() error {
			return l.Dispatch(context.Background(), func() { counter++ })
		})
	}
	require.NoError(t, eg.Wait())
	assert.Equal(t, 16, counter)
}

func TestLoop_PanickingTaskIsReportedAndLoopSurvives(t *testing.T) {
	l := newTestLoop(t)

	err := l.Dispatch(context.Background(), func() { panic("bad task") })
	require.ErrorIs(t, err, ErrTaskPanicked)

	require.NoError(t, l.Post(func() { panic("posted") }))
	require.NoError(t, l.Dispatch(context.Background(), func() {}))
}

func TestLoop_CancelledDispatchSkipsQueuedTask(t *testing.T) {
	l := newTestLoop(t)

	release := make(chan struct{})
	require.NoError(t, l.Post(func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var ran atomic.Bool
	err := l.Dispatch(ctx, func() { ran.Store(true) })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, l.Dispatch(context.Background(), func() {}))
	assert.False(t, ran.Load())
}

func TestLoop_DispatchWaitsForStartedTaskAfterCancel(t *testing.T) {
	l := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var finished atomic.Bool
	err := l.Dispatch(ctx, func() {
		cancel()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
	})
	require.NoError(t, err)
	assert.True(t, finished.Load())
}

func TestLoop_AcceptedPostsRunDespiteConcurrentClose(t *testing.T) {
	for round := 0; round < 20; round++ {
		l := NewLoop(zerolog.Nop(), 2)

		var (
			accepted atomic.Int32
			ran      atomic.Int32
			eg       errgroup.Group
		)
		for w := 0; w < 4; w++ {
			eg.Go(func() error {
				for i := 0; i < 50; i++ {
					err := l.Post(func() { ran.Add(1) })
					if err == nil {
						accepted.Add(1)
						continue
					}
					if !errors.Is(err, ErrClosed) {
						return err
					}
				}
				return nil
			})
		}
		l.Close()
		require.NoError(t, eg.Wait())
		assert.Equal(t, accepted.Load(), ran.Load())
	}
}

func TestLoop_Close(t *testing.T) {
	l := NewLoop(zerolog.Nop(), 4)

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Post(func() { ran.Add(1) }))
	}
	l.Close()
	l.Close()

	assert.Equal(t, int32(3), ran.Load())
	assert.ErrorIs(t, l.Post(func() {}), ErrClosed)
	assert.ErrorIs(t, l.Dispatch(context.Background(), func() {}), ErrClosed)
}

func TestRunOnMainThread(t *testing.T) {
	l := newTestLoop(t)

	thread, err := RunOnMainThread(context.Background(), l, func() (webview.ThreadID, error) {
		return webview.CurrentThread(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, l.Thread(), thread)

	boom := errors.New("boom")
	_, err = RunOnMainThread(context.Background(), l, func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
}

func TestRunOnMainThread_InlineDispatcher(t *testing.T) {
	got, err := RunOnMainThread(context.Background(), Inline{}, func() (string, error) {
		return "inline", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Inline{}.Dispatch(ctx, func() {}), context.Canceled)
}

func TestLoop_OwnsRegisteredHandles(t *testing.T) {
	l := newTestLoop(t)
	reg := webview.NewRegistry()

	id, err := RunOnMainThread(context.Background(), l, func() (uint64, error) {
		return reg.Register(nopHandle{}, webview.NewState("about:blank"))
	})
	require.NoError(t, err)

	err = reg.WithResource(id, func(webview.Handle) error { return nil })
	require.ErrorIs(t, err, webview.ErrWrongThread)

	err = l.Dispatch(context.Background(), func() {
		assert.NoError(t, reg.Unregister(id))
	})
	require.NoError(t, err)
}

type nopHandle struct{}

func (nopHandle) Destroy() {}
