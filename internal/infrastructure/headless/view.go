// Package headless provides a view without a toolkit. It feeds the same
// events into webview.State that a native view would and records the
// scripts evaluated in it, which makes it usable for replays and tests.
package headless

import (
	"context"
	"errors"
	"sync"

	"github.com/bnema/webviewhost/internal/host"
	"github.com/bnema/webviewhost/pkg/webview"
)

// ErrDestroyed is returned by calls on a destroyed view.
var ErrDestroyed = errors.New("headless: view destroyed")

// View is a webview.Handle that implements host.Navigator and
// host.ScriptEvaluator.
type View struct {
	state *webview.State

	mu        sync.Mutex
	scripts   []string
	destroyed bool
	onScript  func(string)
}

var (
	_ webview.Handle       = (*View)(nil)
	_ host.Navigator       = (*View)(nil)
	_ host.ScriptEvaluator = (*View)(nil)
)

// New creates a view bound to state and loads url if it is not empty.
func New(state *webview.State, url string) (*View, error) {
	v := &View{state: state}
	if url != "" {
		if err := v.LoadURL(url); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Factory returns a host.Factory creating headless views. onScript, when
// set, observes every script evaluated in any of them.
func Factory(onScript func(string)) host.Factory {
	return func(_ context.Context, state *webview.State, url string) (webview.Handle, error) {
		v, err := New(state, url)
		if err != nil {
			return nil, err
		}
		v.onScript = onScript
		return v, nil
	}
}

// LoadURL commits a navigation to url.
func (v *View) LoadURL(url string) error {
	if err := v.alive(); err != nil {
		return err
	}
	v.state.SetLoading(true)
	defer v.state.SetLoading(false)
	return v.state.UpdateCurrentURL(url)
}

// GoBack navigates to the previous history entry.
func (v *View) GoBack() error {
	if err := v.alive(); err != nil {
		return err
	}
	url, ok, err := v.state.BackURL()
	if err != nil || !ok {
		return err
	}
	return v.LoadURL(url)
}

// GoForward navigates to the next history entry.
func (v *View) GoForward() error {
	if err := v.alive(); err != nil {
		return err
	}
	url, ok, err := v.state.ForwardURL()
	if err != nil || !ok {
		return err
	}
	return v.LoadURL(url)
}

// Reload re-commits the current URL.
func (v *View) Reload() error {
	if err := v.alive(); err != nil {
		return err
	}
	url, err := v.state.CurrentURL()
	if err != nil {
		return err
	}
	return v.LoadURL(url)
}

// SetTitle simulates the page changing its title.
func (v *View) SetTitle(title string) error {
	if err := v.alive(); err != nil {
		return err
	}
	return v.state.UpdatePageTitle(title)
}

// PostMessage simulates the page posting raw to the script bridge.
func (v *View) PostMessage(raw string) error {
	if err := v.alive(); err != nil {
		return err
	}
	return v.state.PushIPCMessage(raw)
}

// EvaluateScript records script.
func (v *View) EvaluateScript(script string) error {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return ErrDestroyed
	}
	v.scripts = append(v.scripts, script)
	observe := v.onScript
	v.mu.Unlock()

	if observe != nil {
		observe(script)
	}
	return nil
}

// Scripts returns the scripts evaluated so far.
func (v *View) Scripts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.scripts))
	copy(out, v.scripts)
	return out
}

// Destroy marks the view destroyed. It is safe to call more than once.
func (v *View) Destroy() {
	v.mu.Lock()
	v.destroyed = true
	v.mu.Unlock()
}

// Destroyed reports whether Destroy was called.
func (v *View) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

func (v *View) alive() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return ErrDestroyed
	}
	return nil
}
