package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/webviewhost/internal/cli/styles"
	"github.com/bnema/webviewhost/internal/replay"
	"github.com/bnema/webviewhost/pkg/webview"
)

func TestReadSteps_Stdin(t *testing.T) {
	steps, err := readSteps(strings.NewReader("nav https://a.test\nback\n"), "-")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, replay.OpNavigate, steps[0].Op)
	assert.Equal(t, replay.OpBack, steps[1].Op)
}

func TestReadSteps_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nreload\n"), 0o600))

	steps, err := readSteps(nil, path)
	require.NoError(t, err)
	assert.Equal(t, []replay.Step{{Line: 2, Op: replay.OpReload}}, steps)

	_, err = readSteps(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "open script")
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, styles.NewTheme(), &replay.Result{
		ViewID: 3,
		Snapshot: webview.Snapshot{
			URL:          "https://a.test",
			History:      []string{"https://a.test"},
			HistoryIndex: 0,
		},
		Scripts: []string{`window.jsBridge.onCallback(1, "pong");`},
		Skipped: []replay.Step{{Line: 2, Op: replay.OpBack}},
	})

	out := buf.String()
	assert.Contains(t, out, "view 3")
	assert.Contains(t, out, "line 2: back skipped")
	assert.Contains(t, out, `window.jsBridge.onCallback(1, "pong");`)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "github.com/bnema/webviewhost")
}
