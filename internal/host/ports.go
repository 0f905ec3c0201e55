package host

import (
	"context"
	"errors"

	"github.com/bnema/webviewhost/pkg/webview"
)

var (
	ErrUnsupported     = errors.New("host: view does not support this operation")
	ErrCannotGoBack    = errors.New("host: no back history")
	ErrCannotGoForward = errors.New("host: no forward history")
)

// Factory creates a native view on the owning thread. The toolkit adapter
// feeds navigation, title, loading and script-message events into state.
type Factory func(ctx context.Context, state *webview.State, url string) (webview.Handle, error)

// Navigator is implemented by handles that can load pages.
type Navigator interface {
	LoadURL(url string) error
	GoBack() error
	GoForward() error
	Reload() error
}

// ScriptEvaluator is implemented by handles that can run page scripts.
type ScriptEvaluator interface {
	EvaluateScript(script string) error
}

// SnapshotStore persists view state between runs.
type SnapshotStore interface {
	Save(ctx context.Context, key string, snap webview.Snapshot) error
	Find(ctx context.Context, key string) (*webview.Snapshot, error)
}
