// Package host drives views through the registry from arbitrary goroutines:
// handle work is marshalled to the owning thread, state is read directly.
package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/webviewhost/internal/bridge"
	"github.com/bnema/webviewhost/internal/logging"
	"github.com/bnema/webviewhost/pkg/webview"
	"github.com/bnema/webviewhost/pkg/webview/mainthread"
)

// Options configures a Host. Zero values select an own registry, inline
// dispatch, an empty bridge and no persistence.
type Options struct {
	Registry   *webview.Registry
	Dispatcher mainthread.Dispatcher
	Bridge     *bridge.Dispatcher
	BridgeName string
	Snapshots  SnapshotStore
	// OnChange receives a view's snapshot whenever a poll finds it changed.
	OnChange func(id uint64, snap webview.Snapshot)
}

// Host owns the views it opens until they are closed.
type Host struct {
	baseCtx    context.Context
	registry   *webview.Registry
	dispatcher mainthread.Dispatcher
	bridge     *bridge.Dispatcher
	bridgeName string
	snapshots  SnapshotStore
	onChange   func(uint64, webview.Snapshot)
	pumps      *mainthread.Coalescer
	pumpMu     sync.Mutex

	mu   sync.Mutex
	keys map[uint64]string
	last map[uint64]webview.Snapshot
}

// New creates a host. ctx carries the logger used for background work.
func New(ctx context.Context, opts Options) *Host {
	if ctx == nil {
		ctx = context.Background()
	}
	h := &Host{
		baseCtx:    logging.WithComponent(ctx, "host"),
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		bridge:     opts.Bridge,
		bridgeName: opts.BridgeName,
		snapshots:  opts.Snapshots,
		onChange:   opts.OnChange,
		keys:       make(map[uint64]string),
		last:       make(map[uint64]webview.Snapshot),
	}
	if h.registry == nil {
		h.registry = webview.NewRegistry(webview.WithLogger(*logging.FromContext(ctx)))
	}
	if h.dispatcher == nil {
		h.dispatcher = mainthread.Inline{}
	}
	if h.bridge == nil {
		h.bridge = bridge.NewDispatcher()
	}
	if h.bridgeName == "" {
		h.bridgeName = "jsBridge"
	}

	post := mainthread.Inline{}.Post
	if poster, ok := h.dispatcher.(mainthread.Poster); ok {
		post = poster.Post
	}
	h.pumps = mainthread.NewCoalescer(post)
	return h
}

// Registry returns the registry holding the host's views.
func (h *Host) Registry() *webview.Registry {
	return h.registry
}

// Bridge returns the dispatcher serving script messages.
func (h *Host) Bridge() *bridge.Dispatcher {
	return h.bridge
}

// Open creates a view on the owning thread and registers it. When key is set
// and a snapshot exists under it, the view resumes that snapshot's history
// and URL; the snapshot is saved again on Close.
func (h *Host) Open(ctx context.Context, factory Factory, url, key string) (uint64, error) {
	log := logging.FromContext(ctx)
	state := webview.NewState(url)

	if key != "" && h.snapshots != nil {
		snap, err := h.snapshots.Find(ctx, key)
		if err != nil {
			return 0, err
		}
		if snap != nil {
			if err := state.Restore(*snap); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("ignoring unusable snapshot")
			} else if snap.URL != "" {
				url = snap.URL
			}
		}
	}

	id, err := mainthread.RunOnMainThread(ctx, h.dispatcher, func() (uint64, error) {
		handle, err := factory(ctx, state, url)
		if err != nil {
			return 0, fmt.Errorf("host: create view: %w", err)
		}
		id, err := h.registry.Register(handle, state)
		if err != nil {
			handle.Destroy()
			return 0, err
		}
		return id, nil
	})
	if err != nil {
		return 0, err
	}

	if key != "" {
		h.mu.Lock()
		h.keys[id] = key
		h.mu.Unlock()
	}
	log.Debug().Uint64("view_id", id).Str("url", url).Msg("view opened")
	return id, nil
}

// State returns the shared state of a view.
func (h *Host) State(id uint64) (*webview.State, error) {
	return h.registry.GetState(id)
}

// Close saves the view's snapshot if it was opened with a key, then destroys
// it on the owning thread. Closing an unknown view succeeds.
func (h *Host) Close(ctx context.Context, id uint64) error {
	if err := h.saveSnapshot(ctx, id); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Uint64("view_id", id).Msg("failed to save view snapshot")
	}

	_, err := mainthread.RunOnMainThread(ctx, h.dispatcher, func() (struct{}, error) {
		return struct{}{}, h.registry.Unregister(id)
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	delete(h.keys, id)
	delete(h.last, id)
	h.mu.Unlock()
	return nil
}

// Navigate loads url in the view.
func (h *Host) Navigate(ctx context.Context, id uint64, url string) error {
	return withHandle(ctx, h, id, func(n Navigator) error { return n.LoadURL(url) })
}

// Reload reloads the current page.
func (h *Host) Reload(ctx context.Context, id uint64) error {
	return withHandle(ctx, h, id, func(n Navigator) error { return n.Reload() })
}

// GoBack steps back when the view's history allows it.
func (h *Host) GoBack(ctx context.Context, id uint64) error {
	state, err := h.registry.GetState(id)
	if err != nil {
		return err
	}
	ok, err := state.CanGoBack()
	if err != nil {
		return err
	}
	if !ok {
		return ErrCannotGoBack
	}
	return withHandle(ctx, h, id, func(n Navigator) error { return n.GoBack() })
}

// GoForward steps forward when the view's history allows it.
func (h *Host) GoForward(ctx context.Context, id uint64) error {
	state, err := h.registry.GetState(id)
	if err != nil {
		return err
	}
	ok, err := state.CanGoForward()
	if err != nil {
		return err
	}
	if !ok {
		return ErrCannotGoForward
	}
	return withHandle(ctx, h, id, func(n Navigator) error { return n.GoForward() })
}

// EvaluateScript runs script in the view's page.
func (h *Host) EvaluateScript(ctx context.Context, id uint64, script string) error {
	return withHandle(ctx, h, id, func(e ScriptEvaluator) error { return e.EvaluateScript(script) })
}

// NotifyMessage schedules delivery of the view's pending messages. Bursts of
// notifications for one view collapse into a single pump.
func (h *Host) NotifyMessage(id uint64) {
	err := h.pumps.Post("pump:"+strconv.FormatUint(id, 10), func() {
		if _, err := h.pumpView(h.baseCtx, id); err != nil && !webview.IsNotFound(err) {
			logging.FromContext(h.baseCtx).Warn().Err(err).Uint64("view_id", id).Msg("message pump failed")
		}
	})
	if err != nil {
		logging.FromContext(h.baseCtx).Debug().Err(err).Uint64("view_id", id).Msg("message pump not scheduled")
	}
}

// Poll pumps pending messages of every view and reports changed snapshots.
func (h *Host) Poll(ctx context.Context) error {
	ids, err := h.registry.IDs()
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if _, err := h.pumpView(ctx, id); err != nil && !webview.IsNotFound(err) {
			errs = append(errs, err)
		}
		if err := h.reportChange(id); err != nil && !webview.IsNotFound(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run polls every interval until ctx is done.
func (h *Host) Run(ctx context.Context, interval time.Duration) error {
	log := logging.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := h.Poll(ctx); err != nil {
				log.Warn().Err(err).Msg("poll failed")
			}
		}
	}
}

// Shutdown saves keyed snapshots and destroys every view owned by the
// dispatcher's thread.
func (h *Host) Shutdown(ctx context.Context) error {
	h.pumps.Destroy()

	h.mu.Lock()
	keyed := make([]uint64, 0, len(h.keys))
	for id := range h.keys {
		keyed = append(keyed, id)
	}
	h.mu.Unlock()
	slices.Sort(keyed)

	var errs []error
	for _, id := range keyed {
		if err := h.saveSnapshot(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	_, err := mainthread.RunOnMainThread(ctx, h.dispatcher, func() (struct{}, error) {
		return struct{}{}, h.registry.Close()
	})
	if err != nil {
		errs = append(errs, err)
	}

	h.mu.Lock()
	clear(h.keys)
	clear(h.last)
	h.mu.Unlock()
	return errors.Join(errs...)
}

// pumpView drains and dispatches a view's messages on the owning thread.
// Pumps never overlap, so handlers see messages in arrival order.
func (h *Host) pumpView(ctx context.Context, id uint64) (int, error) {
	state, err := h.registry.GetState(id)
	if err != nil {
		return 0, err
	}
	return mainthread.RunOnMainThread(ctx, h.dispatcher, func() (int, error) {
		h.pumpMu.Lock()
		defer h.pumpMu.Unlock()
		return h.bridge.Pump(logging.WithViewID(ctx, id), id, state, h.reply)
	})
}

func (h *Host) reply(ctx context.Context, id uint64, callbackID int, result string) error {
	script, err := bridge.CallbackScript(h.bridgeName, callbackID, result)
	if err != nil {
		return err
	}
	return h.EvaluateScript(ctx, id, script)
}

func (h *Host) reportChange(id uint64) error {
	if h.onChange == nil {
		return nil
	}
	state, err := h.registry.GetState(id)
	if err != nil {
		return err
	}
	snap, err := state.Snapshot()
	if err != nil {
		return err
	}

	h.mu.Lock()
	prev, seen := h.last[id]
	changed := !seen || !snapshotsEqual(prev, snap)
	if changed {
		h.last[id] = snap
	}
	h.mu.Unlock()

	if changed {
		h.onChange(id, snap)
	}
	return nil
}

func (h *Host) saveSnapshot(ctx context.Context, id uint64) error {
	if h.snapshots == nil {
		return nil
	}
	h.mu.Lock()
	key, ok := h.keys[id]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	state, err := h.registry.GetState(id)
	if err != nil {
		if webview.IsNotFound(err) {
			return nil
		}
		return err
	}
	snap, err := state.Snapshot()
	if err != nil {
		return err
	}
	return h.snapshots.Save(ctx, key, snap)
}

// withHandle runs fn on the owning thread with the view's handle as T.
func withHandle[T any](ctx context.Context, h *Host, id uint64, fn func(T) error) error {
	_, err := mainthread.RunOnMainThread(ctx, h.dispatcher, func() (struct{}, error) {
		return struct{}{}, h.registry.WithResource(id, func(handle webview.Handle) error {
			impl, ok := handle.(T)
			if !ok {
				return ErrUnsupported
			}
			return fn(impl)
		})
	})
	return err
}

func snapshotsEqual(a, b webview.Snapshot) bool {
	return a.URL == b.URL &&
		a.Title == b.Title &&
		a.Loading == b.Loading &&
		a.HistoryIndex == b.HistoryIndex &&
		slices.Equal(a.History, b.History)
}
