package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/webviewhost/internal/logging"
	"github.com/bnema/webviewhost/pkg/webview"
)

// Handler serves one method.
type Handler interface {
	Handle(ctx context.Context, viewID uint64, msg Message) (string, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, viewID uint64, msg Message) (string, error)

// Handle calls f(ctx, viewID, msg).
func (f HandlerFunc) Handle(ctx context.Context, viewID uint64, msg Message) (string, error) {
	return f(ctx, viewID, msg)
}

// ReplyFunc delivers a handler result to the page that sent msg.
type ReplyFunc func(ctx context.Context, viewID uint64, callbackID int, result string) error

// Dispatcher maps method names to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register installs h for method, replacing any previous handler.
func (d *Dispatcher) Register(method string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[method] = h
}

// Unregister removes the handler for method.
func (d *Dispatcher) Unregister(method string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, method)
}

// Clear removes every handler.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[string]Handler)
}

// Methods returns the number of registered handlers.
func (d *Dispatcher) Methods() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// Dispatch runs the handler for msg and sends its result through reply when
// the page asked for one. Messages for unknown methods are ignored and
// reported with handled == false.
func (d *Dispatcher) Dispatch(ctx context.Context, viewID uint64, msg Message, reply ReplyFunc) (handled bool, err error) {
	d.mu.RLock()
	h, ok := d.handlers[msg.Method]
	d.mu.RUnlock()
	if !ok {
		return false, nil
	}

	result, err := h.Handle(ctx, viewID, msg)
	if err != nil {
		return true, fmt.Errorf("bridge: %s: %w", msg.Method, err)
	}
	if msg.WantsReply() && reply != nil {
		if err := reply(ctx, viewID, msg.CallbackID, result); err != nil {
			return true, fmt.Errorf("bridge: reply to %s: %w", msg.Method, err)
		}
	}
	return true, nil
}

// Pump drains the view's pending messages and dispatches them in arrival
// order. Malformed messages and handler failures are logged and skipped so
// one bad message does not block the rest. It returns how many were handled.
func (d *Dispatcher) Pump(ctx context.Context, viewID uint64, state *webview.State, reply ReplyFunc) (int, error) {
	log := logging.FromContext(ctx)

	raw, err := state.DrainIPCMessages()
	if err != nil {
		return 0, err
	}

	handled := 0
	var errs []error
	for _, text := range raw {
		msg, err := ParseMessage(text)
		if err != nil {
			log.Debug().Err(err).Uint64("view_id", viewID).Msg("dropping ipc message")
			continue
		}
		ok, err := d.Dispatch(ctx, viewID, msg, reply)
		if err != nil {
			log.Warn().Err(err).Uint64("view_id", viewID).Str("method", msg.Method).Msg("ipc handler failed")
			errs = append(errs, err)
		}
		if ok {
			handled++
		}
	}
	return handled, errors.Join(errs...)
}
