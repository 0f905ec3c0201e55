package host_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/webviewhost/internal/bridge"
	"github.com/bnema/webviewhost/internal/host"
	"github.com/bnema/webviewhost/internal/infrastructure/headless"
	"github.com/bnema/webviewhost/pkg/webview"
	"github.com/bnema/webviewhost/pkg/webview/mainthread"
)

type memorySnapshots struct {
	mu    sync.Mutex
	snaps map[string]webview.Snapshot
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{snaps: make(map[string]webview.Snapshot)}
}

func (m *memorySnapshots) Save(_ context.Context, key string, snap webview.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[key] = snap
	return nil
}

func (m *memorySnapshots) Find(_ context.Context, key string) (*webview.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[key]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

type scriptLog struct {
	mu      sync.Mutex
	scripts []string
}

func (l *scriptLog) add(s string) {
	l.mu.Lock()
	l.scripts = append(l.scripts, s)
	l.mu.Unlock()
}

func (l *scriptLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.scripts...)
}

func newLoopHost(t *testing.T, opts host.Options) (*host.Host, *mainthread.Loop) {
	t.Helper()
	loop := mainthread.NewLoop(zerolog.Nop(), 0)
	t.Cleanup(loop.Close)
	opts.Dispatcher = loop
	if opts.Registry == nil {
		opts.Registry = webview.NewRegistry()
	}
	return host.New(context.Background(), opts), loop
}

func TestHost_OpenRegistersOnOwningThread(t *testing.T) {
	h, loop := newLoopHost(t, host.Options{})
	ctx := context.Background()

	id, err := h.Open(ctx, headless.Factory(nil), "https://a.test", "")
	require.NoError(t, err)
	assert.NotZero(t, id)

	owner, err := h.Registry().Owner(id)
	require.NoError(t, err)
	assert.Equal(t, loop.Thread(), owner)

	state, err := h.State(id)
	require.NoError(t, err)
	url, err := state.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://a.test", url)

	// Direct unregistration from the test goroutine must be refused.
	err = h.Registry().Unregister(id)
	assert.True(t, webview.IsWrongThread(err))

	require.NoError(t, h.Close(ctx, id))
	_, err = h.State(id)
	assert.True(t, webview.IsNotFound(err))
}

func TestHost_OpenFactoryError(t *testing.T) {
	h, _ := newLoopHost(t, host.Options{})
	boom := errors.New("boom")

	_, err := h.Open(context.Background(), func(context.Context, *webview.State, string) (webview.Handle, error) {
		return nil, boom
	}, "https://a.test", "")
	require.ErrorIs(t, err, boom)

	n, err := h.Registry().Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHost_NavigationThroughLoop(t *testing.T) {
	h, _ := newLoopHost(t, host.Options{})
	ctx := context.Background()

	id, err := h.Open(ctx, headless.Factory(nil), "https://a.test", "")
	require.NoError(t, err)

	assert.ErrorIs(t, h.GoBack(ctx, id), host.ErrCannotGoBack)
	assert.ErrorIs(t, h.GoForward(ctx, id), host.ErrCannotGoForward)

	require.NoError(t, h.Navigate(ctx, id, "https://b.test"))
	require.NoError(t, h.Navigate(ctx, id, "https://c.test"))
	require.NoError(t, h.GoBack(ctx, id))
	require.NoError(t, h.Reload(ctx, id))

	state, err := h.State(id)
	require.NoError(t, err)
	entries, index, err := state.History()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test", "https://b.test", "https://c.test"}, entries)
	assert.Equal(t, 1, index)

	fwd, err := state.CanGoForward()
	require.NoError(t, err)
	assert.True(t, fwd)

	require.NoError(t, h.GoForward(ctx, id))
	url, err := state.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://c.test", url)
}

func TestHost_UnknownView(t *testing.T) {
	h, _ := newLoopHost(t, host.Options{})
	ctx := context.Background()

	assert.True(t, webview.IsNotFound(h.Navigate(ctx, 999, "https://a.test")))
	assert.True(t, webview.IsNotFound(h.GoBack(ctx, 999)))
	assert.True(t, webview.IsNotFound(h.EvaluateScript(ctx, 999, "1")))
	assert.NoError(t, h.Close(ctx, 999))
}

type bareHandle struct{}

func (bareHandle) Destroy() {}

func TestHost_UnsupportedHandle(t *testing.T) {
	h, _ := newLoopHost(t, host.Options{})
	ctx := context.Background()

	id, err := h.Open(ctx, func(context.Context, *webview.State, string) (webview.Handle, error) {
		return bareHandle{}, nil
	}, "https://a.test", "")
	require.NoError(t, err)

	assert.ErrorIs(t, h.Navigate(ctx, id, "https://b.test"), host.ErrUnsupported)
	assert.ErrorIs(t, h.EvaluateScript(ctx, id, "1"), host.ErrUnsupported)
}

func TestHost_PollDispatchesAndReplies(t *testing.T) {
	var scripts scriptLog
	br := bridge.NewDispatcher()
	br.Register("echo", bridge.HandlerFunc(func(_ context.Context, _ uint64, msg bridge.Message) (string, error) {
		return msg.Params, nil
	}))

	var changes []webview.Snapshot
	h, _ := newLoopHost(t, host.Options{
		Bridge:     br,
		BridgeName: "testBridge",
		OnChange:   func(_ uint64, snap webview.Snapshot) { changes = append(changes, snap) },
	})
	ctx := context.Background()

	id, err := h.Open(ctx, headless.Factory(scripts.add), "https://a.test", "")
	require.NoError(t, err)

	state, err := h.State(id)
	require.NoError(t, err)
	require.NoError(t, state.PushIPCMessage(`{"callbackId":3,"methodName":"echo","params":"hi"}`))
	require.NoError(t, state.PushIPCMessage(`{"methodName":"echo","params":"silent"}`))
	require.NoError(t, state.PushIPCMessage(`not json`))

	require.NoError(t, h.Poll(ctx))

	assert.Equal(t, []string{`window.testBridge.onCallback(3, "hi");`}, scripts.all())
	pending, err := state.PendingCount()
	require.NoError(t, err)
	assert.Zero(t, pending)

	require.Len(t, changes, 1)
	assert.Equal(t, "https://a.test", changes[0].URL)

	// Nothing changed: no second report.
	require.NoError(t, h.Poll(ctx))
	assert.Len(t, changes, 1)

	require.NoError(t, state.UpdatePageTitle("A"))
	require.NoError(t, h.Poll(ctx))
	require.Len(t, changes, 2)
	assert.Equal(t, "A", changes[1].Title)
}

func TestHost_NotifyMessagePumpsOnLoop(t *testing.T) {
	var scripts scriptLog
	br := bridge.NewDispatcher()
	br.Register("ping", bridge.HandlerFunc(func(context.Context, uint64, bridge.Message) (string, error) {
		return "pong", nil
	}))

	h, _ := newLoopHost(t, host.Options{Bridge: br})
	ctx := context.Background()

	id, err := h.Open(ctx, headless.Factory(scripts.add), "https://a.test", "")
	require.NoError(t, err)
	state, err := h.State(id)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, state.PushIPCMessage(`{"callbackId":1,"methodName":"ping"}`))
		h.NotifyMessage(id)
	}

	require.Eventually(t, func() bool {
		n, err := state.PendingCount()
		return err == nil && n == 0 && len(scripts.all()) == 5
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, `window.jsBridge.onCallback(1, "pong");`, scripts.all()[0])
}

func TestHost_SnapshotRoundTrip(t *testing.T) {
	store := newMemorySnapshots()
	ctx := context.Background()

	h, _ := newLoopHost(t, host.Options{Snapshots: store})
	id, err := h.Open(ctx, headless.Factory(nil), "https://a.test", "work")
	require.NoError(t, err)
	require.NoError(t, h.Navigate(ctx, id, "https://b.test"))
	require.NoError(t, h.Navigate(ctx, id, "https://c.test"))
	require.NoError(t, h.GoBack(ctx, id))
	require.NoError(t, h.Close(ctx, id))

	saved, err := store.Find(ctx, "work")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "https://b.test", saved.URL)
	assert.Equal(t, 1, saved.HistoryIndex)

	h2, _ := newLoopHost(t, host.Options{Snapshots: store})
	id2, err := h2.Open(ctx, headless.Factory(nil), "https://ignored.test", "work")
	require.NoError(t, err)

	state, err := h2.State(id2)
	require.NoError(t, err)
	entries, index, err := state.History()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test", "https://b.test", "https://c.test"}, entries)
	assert.Equal(t, 1, index)

	url, err := state.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://b.test", url)

	require.NoError(t, h2.GoForward(ctx, id2))
	url, err = state.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://c.test", url)
}

func TestHost_ShutdownDestroysAndSaves(t *testing.T) {
	store := newMemorySnapshots()
	ctx := context.Background()
	h, _ := newLoopHost(t, host.Options{Snapshots: store})

	var views []*headless.View
	factory := func(ctx context.Context, state *webview.State, url string) (webview.Handle, error) {
		v, err := headless.New(state, url)
		if err == nil {
			views = append(views, v)
		}
		return v, err
	}

	_, err := h.Open(ctx, factory, "https://a.test", "one")
	require.NoError(t, err)
	_, err = h.Open(ctx, factory, "https://b.test", "")
	require.NoError(t, err)

	require.NoError(t, h.Shutdown(ctx))

	n, err := h.Registry().Len()
	require.NoError(t, err)
	assert.Zero(t, n)
	for _, v := range views {
		assert.True(t, v.Destroyed())
	}

	saved, err := store.Find(ctx, "one")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "https://a.test", saved.URL)
}

func TestHost_RunStopsOnCancel(t *testing.T) {
	h := host.New(context.Background(), host.Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHost_InlineDispatcherDefaults(t *testing.T) {
	// Inline dispatch makes the test goroutine the owner.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h := host.New(context.Background(), host.Options{Registry: webview.NewRegistry()})
	ctx := context.Background()

	id, err := h.Open(ctx, headless.Factory(nil), "https://a.test", "")
	require.NoError(t, err)
	require.NoError(t, h.Navigate(ctx, id, "https://b.test"))
	require.NoError(t, h.Close(ctx, id))
}

func TestHost_OpenKeepsViewWhenCancelledMidCreate(t *testing.T) {
	h, _ := newLoopHost(t, host.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := h.Open(ctx, func(ctx context.Context, state *webview.State, url string) (webview.Handle, error) {
		cancel()
		return headless.New(state, url)
	}, "https://a.test", "")
	require.NoError(t, err)
	require.NotZero(t, id)

	n, err := h.Registry().Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, h.Close(context.Background(), id))
	n, err = h.Registry().Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHost_PollAndNotifiedPumpKeepArrivalOrder(t *testing.T) {
	var (
		mu      sync.Mutex
		order   []string
		started = make(chan struct{})
		release = make(chan struct{})
	)
	br := bridge.NewDispatcher()
	br.Register("record", bridge.HandlerFunc(func(_ context.Context, _ uint64, msg bridge.Message) (string, error) {
		if msg.Params == "1" {
			close(started)
			<-release
		}
		mu.Lock()
		order = append(order, msg.Params)
		mu.Unlock()
		return "", nil
	}))

	h, _ := newLoopHost(t, host.Options{Bridge: br})
	ctx := context.Background()
	id, err := h.Open(ctx, headless.Factory(nil), "https://a.test", "")
	require.NoError(t, err)
	state, err := h.State(id)
	require.NoError(t, err)

	require.NoError(t, state.PushIPCMessage(`{"methodName":"record","params":"1"}`))
	h.NotifyMessage(id)
	<-started

	require.NoError(t, state.PushIPCMessage(`{"methodName":"record","params":"2"}`))
	require.NoError(t, state.PushIPCMessage(`{"methodName":"record","params":"3"}`))

	polled := make(chan error, 1)
	go func() { polled <- h.Poll(ctx) }()

	time.Sleep(20 * time.Millisecond)
	close(release)
	require.NoError(t, <-polled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "2", "3"}, order)
}
