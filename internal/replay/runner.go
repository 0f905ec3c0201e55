package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/webviewhost/internal/host"
	"github.com/bnema/webviewhost/internal/logging"
	"github.com/bnema/webviewhost/pkg/webview"
)

// Result is the state of the view after a run.
type Result struct {
	ViewID   uint64
	Snapshot webview.Snapshot
	// Scripts holds every script evaluated in the view, including bridge
	// callbacks.
	Scripts []string
	// Skipped lists back/forward steps that had no history to move through.
	Skipped []Step
}

// Runner replays scripts against one view of a host.
type Runner struct {
	host    *host.Host
	factory host.Factory
	key     string
}

// NewRunner creates a runner opening its view with factory. A non-empty key
// resumes and saves the view's snapshot under that key.
func NewRunner(h *host.Host, factory host.Factory, key string) *Runner {
	return &Runner{host: h, factory: factory, key: key}
}

// Run opens a view at startURL, applies steps in order and closes the view.
func (r *Runner) Run(ctx context.Context, startURL string, steps []Step, scripts func() []string) (*Result, error) {
	log := logging.FromContext(ctx)

	id, err := r.host.Open(ctx, r.factory, startURL, r.key)
	if err != nil {
		return nil, err
	}
	state, err := r.host.State(id)
	if err != nil {
		return nil, err
	}

	res := &Result{ViewID: id}
	for _, step := range steps {
		log.Debug().Int("line", step.Line).Str("step", step.String()).Msg("replaying")
		skipped, err := r.apply(ctx, id, state, step)
		if err != nil {
			_ = r.host.Close(ctx, id)
			return nil, fmt.Errorf("line %d (%s): %w", step.Line, step.Op, err)
		}
		if skipped {
			res.Skipped = append(res.Skipped, step)
		}
	}

	if err := r.host.Poll(ctx); err != nil {
		log.Warn().Err(err).Msg("final poll reported errors")
	}
	if res.Snapshot, err = state.Snapshot(); err != nil {
		return nil, err
	}
	if scripts != nil {
		res.Scripts = scripts()
	}
	return res, r.host.Close(ctx, id)
}

func (r *Runner) apply(ctx context.Context, id uint64, state *webview.State, step Step) (skipped bool, err error) {
	switch step.Op {
	case OpNavigate:
		return false, r.host.Navigate(ctx, id, step.Arg)
	case OpBack:
		err = r.host.GoBack(ctx, id)
		if errors.Is(err, host.ErrCannotGoBack) {
			return true, nil
		}
		return false, err
	case OpForward:
		err = r.host.GoForward(ctx, id)
		if errors.Is(err, host.ErrCannotGoForward) {
			return true, nil
		}
		return false, err
	case OpReload:
		return false, r.host.Reload(ctx, id)
	case OpTitle:
		return false, state.UpdatePageTitle(step.Arg)
	case OpMessage:
		return false, state.PushIPCMessage(step.Arg)
	case OpEval:
		return false, r.host.EvaluateScript(ctx, id, step.Arg)
	case OpPoll:
		return false, r.host.Poll(ctx)
	default:
		return false, fmt.Errorf("%w: unknown command %q", ErrSyntax, step.Op)
	}
}
