package webview

import (
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

//go:generate mockgen -destination=mocks/mock_handle.go -package=mocks github.com/bnema/webviewhost/pkg/webview Handle

// Handle is a native view owned by the toolkit. It may only be used and
// destroyed on the thread that registered it.
type Handle interface {
	Destroy()
}

// entry is cheap to copy: the map lock is only held long enough to copy it out.
type entry struct {
	handle Handle
	owner  ThreadID
	state  *State
}

// Registry maps view identifiers to their thread-affine handles and shared state.
type Registry struct {
	ids           IDGenerator
	views         guard[map[uint64]entry]
	currentThread func() ThreadID
	logger        zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger.With().Str("component", "webview-registry").Logger()
	}
}

// WithThreadFunc overrides how the calling thread is identified.
func WithThreadFunc(fn func() ThreadID) Option {
	return func(r *Registry) {
		if fn != nil {
			r.currentThread = fn
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		currentThread: CurrentThread,
		logger:        zerolog.Nop(),
	}
	r.views.init("webview registry", make(map[uint64]entry))
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry { return NewRegistry() })

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry()
}

// Register takes ownership of handle, records the calling thread as its owner
// and returns a fresh identifier. It must be called from the thread that will
// destroy the handle.
func (r *Registry) Register(handle Handle, state *State) (uint64, error) {
	if handle == nil {
		return 0, invalidArgument("nil handle")
	}
	if state == nil {
		return 0, invalidArgument("nil state")
	}

	id := r.ids.Next()
	owner := r.currentThread()
	err := r.views.with(func(m *map[uint64]entry) {
		(*m)[id] = entry{handle: handle, owner: owner, state: state}
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug().Uint64("view_id", id).Uint64("owner_thread", uint64(owner)).Msg("view registered")
	return id, nil
}

// Unregister removes the view and destroys its handle on the calling thread.
// Unknown identifiers are ignored so closing twice is harmless.
func (r *Registry) Unregister(id uint64) error {
	caller := r.currentThread()

	var (
		removed entry
		found   bool
		denied  bool
	)
	err := r.views.with(func(m *map[uint64]entry) {
		e, ok := (*m)[id]
		if !ok {
			return
		}
		if e.owner != caller {
			denied = true
			return
		}
		delete(*m, id)
		removed, found = e, true
	})
	if err != nil {
		return err
	}
	if denied {
		r.logger.Warn().Uint64("view_id", id).Uint64("caller_thread", uint64(caller)).Msg("unregister from non-owner thread")
		return wrongThread(id)
	}
	if !found {
		return nil
	}

	removed.handle.Destroy()
	r.logger.Debug().Uint64("view_id", id).Msg("view destroyed")
	return nil
}

// WithResource runs fn with the view's handle. fn runs on the calling thread,
// which must be the owner, after the registry lock has been released.
func (r *Registry) WithResource(id uint64, fn func(Handle) error) error {
	_, err := WithResourceValue(r, id, func(h Handle) (struct{}, error) {
		return struct{}{}, fn(h)
	})
	return err
}

// WithResourceValue is WithResource for callbacks that produce a value.
func WithResourceValue[R any](r *Registry, id uint64, fn func(Handle) (R, error)) (R, error) {
	var zero R

	e, err := r.lookup(id)
	if err != nil {
		return zero, err
	}
	if caller := r.currentThread(); e.owner != caller {
		r.logger.Warn().Uint64("view_id", id).Uint64("caller_thread", uint64(caller)).Msg("handle access from non-owner thread")
		return zero, wrongThread(id)
	}
	return fn(e.handle)
}

// GetState returns the view's shared state. Any goroutine may call it.
func (r *Registry) GetState(id uint64) (*State, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.state, nil
}

// Owner returns the thread that owns the view's handle.
func (r *Registry) Owner(id uint64) (ThreadID, error) {
	e, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	return e.owner, nil
}

// Len returns the number of live views.
func (r *Registry) Len() (int, error) {
	var n int
	err := r.views.with(func(m *map[uint64]entry) { n = len(*m) })
	return n, err
}

// IDs returns the live identifiers in ascending order.
func (r *Registry) IDs() ([]uint64, error) {
	var ids []uint64
	err := r.views.with(func(m *map[uint64]entry) {
		ids = make([]uint64, 0, len(*m))
		for id := range *m {
			ids = append(ids, id)
		}
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// Close destroys every view owned by the calling thread. Views owned by
// other threads are kept and reported as ErrWrongThread.
func (r *Registry) Close() error {
	ids, err := r.IDs()
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if err := r.Unregister(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) lookup(id uint64) (entry, error) {
	var (
		e  entry
		ok bool
	)
	err := r.views.with(func(m *map[uint64]entry) { e, ok = (*m)[id] })
	if err != nil {
		return entry{}, err
	}
	if !ok {
		return entry{}, notFound(id)
	}
	return e, nil
}
