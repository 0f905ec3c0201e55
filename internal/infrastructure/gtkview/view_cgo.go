//go:build webkit_cgo

package gtkview

import (
	"context"
	"errors"
	"sync"

	"github.com/diamondburned/gotk4-webkitgtk/pkg/javascriptcore/v6"
	webkit "github.com/diamondburned/gotk4-webkitgtk/pkg/webkit/v6"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/rs/zerolog"

	"github.com/bnema/webviewhost/internal/host"
	"github.com/bnema/webviewhost/internal/logging"
	"github.com/bnema/webviewhost/pkg/webview"
)

var (
	ErrNotInitialized = errors.New("gtkview: webkit view could not be created")
	ErrDestroyed      = errors.New("gtkview: view destroyed")
)

// View wraps a WebKitGTK web view and mirrors its events into webview.State.
type View struct {
	view   *webkit.WebView
	state  *webview.State
	logger zerolog.Logger

	mu        sync.Mutex
	destroyed bool
	onMessage func()
}

var (
	_ webview.Handle       = (*View)(nil)
	_ host.Navigator       = (*View)(nil)
	_ host.ScriptEvaluator = (*View)(nil)
)

// Options configures views created by Factory.
type Options struct {
	// BridgeName is the script message handler pages post to, as in
	// window.webkit.messageHandlers.<BridgeName>.postMessage(...).
	BridgeName string
	// OnMessage is called on the main thread after a message was queued,
	// typically Host.NotifyMessage for the view.
	OnMessage func(state *webview.State)
	// Attach places the new widget, for example into a window.
	Attach func(widget gtk.Widgetter)
}

// Factory returns a host.Factory creating WebKit views.
func Factory(opts Options) host.Factory {
	return func(ctx context.Context, state *webview.State, url string) (webview.Handle, error) {
		v, err := New(ctx, state, opts)
		if err != nil {
			return nil, err
		}
		if opts.Attach != nil {
			opts.Attach(v.Widget())
		}
		if url != "" {
			if err := v.LoadURL(url); err != nil {
				v.Destroy()
				return nil, err
			}
		}
		return v, nil
	}
}

// New creates a view bound to state. It must run on the GTK main thread.
func New(ctx context.Context, state *webview.State, opts Options) (*View, error) {
	wk := webkit.NewWebView()
	if wk == nil {
		return nil, ErrNotInitialized
	}
	v := &View{
		view:   wk,
		state:  state,
		logger: logging.FromContext(ctx).With().Str("component", "gtkview").Logger(),
	}
	if opts.OnMessage != nil {
		v.onMessage = func() { opts.OnMessage(state) }
	}
	v.connectSignals()

	if opts.BridgeName != "" {
		ucm := wk.UserContentManager()
		if !ucm.RegisterScriptMessageHandler(opts.BridgeName, "") {
			v.logger.Warn().Str("bridge", opts.BridgeName).Msg("failed to register script message handler")
		}
		ucm.ConnectScriptMessageReceived(func(value *javascriptcore.Value) {
			v.receiveMessage(value)
		})
	}
	return v, nil
}

func (v *View) connectSignals() {
	v.view.Connect("notify::uri", func() {
		if err := v.state.UpdateCurrentURL(v.view.URI()); err != nil {
			v.logger.Error().Err(err).Msg("failed to record url")
		}
	})
	v.view.Connect("notify::title", func() {
		if err := v.state.UpdatePageTitle(v.view.Title()); err != nil {
			v.logger.Error().Err(err).Msg("failed to record title")
		}
	})
	v.view.ConnectLoadChanged(func(event webkit.LoadEvent) {
		switch event {
		case webkit.LoadStarted:
			v.state.SetLoading(true)
		case webkit.LoadFinished:
			v.state.SetLoading(false)
		}
	})
}

func (v *View) receiveMessage(value *javascriptcore.Value) {
	if value == nil {
		return
	}
	var raw string
	if value.IsString() {
		raw = value.String()
	} else {
		raw = value.ToJSON(0)
	}
	if err := v.state.PushIPCMessage(raw); err != nil {
		v.logger.Error().Err(err).Msg("failed to queue script message")
		return
	}
	if v.onMessage != nil {
		v.onMessage()
	}
}

// Widget returns the GTK widget to place in a container.
func (v *View) Widget() gtk.Widgetter {
	return v.view
}

// LoadURL starts loading url.
func (v *View) LoadURL(url string) error {
	if err := v.alive(); err != nil {
		return err
	}
	v.view.LoadURI(url)
	return nil
}

// GoBack steps back in WebKit's own history.
func (v *View) GoBack() error {
	if err := v.alive(); err != nil {
		return err
	}
	v.view.GoBack()
	return nil
}

// GoForward steps forward in WebKit's own history.
func (v *View) GoForward() error {
	if err := v.alive(); err != nil {
		return err
	}
	v.view.GoForward()
	return nil
}

// Reload reloads the page.
func (v *View) Reload() error {
	if err := v.alive(); err != nil {
		return err
	}
	v.view.Reload()
	return nil
}

// EvaluateScript runs script in the main world without waiting for a result.
func (v *View) EvaluateScript(script string) error {
	if err := v.alive(); err != nil {
		return err
	}
	v.view.EvaluateJavascript(context.Background(), script, -1, "", "", nil)
	return nil
}

// Destroy stops loading and detaches the widget from its parent.
func (v *View) Destroy() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	v.mu.Unlock()

	v.view.StopLoading()
	v.view.Unparent()
}

func (v *View) alive() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return ErrDestroyed
	}
	return nil
}
