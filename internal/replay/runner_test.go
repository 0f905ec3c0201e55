package replay_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/webviewhost/internal/bridge"
	"github.com/bnema/webviewhost/internal/host"
	"github.com/bnema/webviewhost/internal/infrastructure/headless"
	"github.com/bnema/webviewhost/internal/replay"
	"github.com/bnema/webviewhost/pkg/webview"
	"github.com/bnema/webviewhost/pkg/webview/mainthread"
)

func newRunner(t *testing.T, scripts *[]string) *replay.Runner {
	t.Helper()
	loop := mainthread.NewLoop(zerolog.Nop(), 0)
	t.Cleanup(loop.Close)

	br := bridge.NewDispatcher()
	replay.RegisterBuiltins(br, func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) })

	h := host.New(context.Background(), host.Options{
		Registry:   webview.NewRegistry(),
		Dispatcher: loop,
		Bridge:     br,
	})

	var mu sync.Mutex
	factory := headless.Factory(func(s string) {
		mu.Lock()
		*scripts = append(*scripts, s)
		mu.Unlock()
	})
	return replay.NewRunner(h, factory, "")
}

func TestRunner_Run(t *testing.T) {
	script := `
nav https://b.test
nav https://c.test
back
back
back
forward
title Page B
msg {"callbackId":7,"methodName":"ping"}
msg {"callbackId":8,"methodName":"time"}
msg {"methodName":"echo","params":"ignored"}
nav https://d.test
forward
`
	steps, err := replay.Parse(strings.NewReader(script))
	require.NoError(t, err)

	var scripts []string
	runner := newRunner(t, &scripts)

	res, err := runner.Run(context.Background(), "https://a.test", steps, func() []string { return scripts })
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.test", "https://b.test", "https://d.test"}, res.Snapshot.History)
	assert.Equal(t, 2, res.Snapshot.HistoryIndex)
	assert.Equal(t, "https://d.test", res.Snapshot.URL)
	assert.Equal(t, "Page B", res.Snapshot.Title)
	assert.False(t, res.Snapshot.Loading)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, replay.OpBack, res.Skipped[0].Op)
	assert.Equal(t, replay.OpForward, res.Skipped[1].Op)

	assert.Equal(t, []string{
		`window.jsBridge.onCallback(7, "pong");`,
		`window.jsBridge.onCallback(8, "2024-05-01T12:00:00Z");`,
	}, res.Scripts)
}

func TestRunner_EvalIsRecorded(t *testing.T) {
	var scripts []string
	runner := newRunner(t, &scripts)

	res, err := runner.Run(context.Background(), "https://a.test", []replay.Step{
		{Line: 1, Op: replay.OpEval, Arg: "document.title"},
	}, func() []string { return scripts })
	require.NoError(t, err)
	assert.Equal(t, []string{"document.title"}, res.Scripts)
}

func TestRunner_FailingStepNamesLine(t *testing.T) {
	var scripts []string
	runner := newRunner(t, &scripts)

	_, err := runner.Run(context.Background(), "https://a.test", []replay.Step{
		{Line: 4, Op: replay.Op("jump")},
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, replay.ErrSyntax)
	assert.Contains(t, err.Error(), "line 4")
}
