package replay

import (
	"context"
	"time"

	"github.com/bnema/webviewhost/internal/bridge"
)

// RegisterBuiltins installs the handlers replays can call: echo returns its
// params, ping answers "pong" and time returns the host clock in RFC 3339.
func RegisterBuiltins(d *bridge.Dispatcher, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	d.Register("echo", bridge.HandlerFunc(func(_ context.Context, _ uint64, msg bridge.Message) (string, error) {
		return msg.Params, nil
	}))
	d.Register("ping", bridge.HandlerFunc(func(context.Context, uint64, bridge.Message) (string, error) {
		return "pong", nil
	}))
	d.Register("time", bridge.HandlerFunc(func(context.Context, uint64, bridge.Message) (string, error) {
		return now().UTC().Format(time.RFC3339), nil
	}))
}
