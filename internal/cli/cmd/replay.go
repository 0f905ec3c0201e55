package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/spf13/cobra"

	"github.com/bnema/webviewhost/internal/bridge"
	"github.com/bnema/webviewhost/internal/cli"
	"github.com/bnema/webviewhost/internal/cli/styles"
	"github.com/bnema/webviewhost/internal/host"
	"github.com/bnema/webviewhost/internal/infrastructure/headless"
	"github.com/bnema/webviewhost/internal/logging"
	"github.com/bnema/webviewhost/internal/replay"
	"github.com/bnema/webviewhost/pkg/webview"
	"github.com/bnema/webviewhost/pkg/webview/mainthread"
)

var (
	replayStartURL string
	replayKey      string
)

var replayCmd = &cobra.Command{
	Use:   "replay <script|->",
	Short: "Drive a headless view from a script",
	Long: `Open a headless view, apply each command of the script and print the
resulting state and the scripts the host evaluated in the page.

Commands, one per line ('#' starts a comment):
  nav <url>      commit a navigation
  back, forward  move through history (skipped when impossible)
  reload         reload the current page
  title [text]   set the page title
  msg <json>     post {"callbackId","methodName","params"} to the bridge
  eval <script>  evaluate a script in the page
  poll           deliver pending bridge messages now

Built-in bridge methods: echo, ping, time.

With --key the view resumes the snapshot stored under that key and saves
its state back when the replay ends.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayStartURL, "start", "", "URL the view opens at")
	replayCmd.Flags().StringVar(&replayKey, "key", "", "snapshot key to resume and save")
}

func runReplay(cmd *cobra.Command, args []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}
	ctx := logging.WithComponent(app.Ctx(), "replay")
	cfg := app.Config.Get()

	steps, err := readSteps(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	dispatcher, stop := newDispatcher(app, cfg.Dispatch.MarshalToMain, cfg.Dispatch.QueueSize)
	defer stop()

	br := bridge.NewDispatcher()
	replay.RegisterBuiltins(br, nil)

	opts := host.Options{
		Registry:   webview.NewRegistry(webview.WithLogger(app.Logger)),
		Dispatcher: dispatcher,
		Bridge:     br,
		BridgeName: cfg.Bridge.Name,
	}
	if replayKey != "" {
		repo, err := app.Snapshots()
		if err != nil {
			return err
		}
		opts.Snapshots = repo
	}
	h := host.New(ctx, opts)

	var (
		mu      sync.Mutex
		scripts []string
	)
	factory := headless.Factory(func(s string) {
		mu.Lock()
		scripts = append(scripts, s)
		mu.Unlock()
	})
	collect := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), scripts...)
	}

	res, err := replay.NewRunner(h, factory, replayKey).Run(ctx, replayStartURL, steps, collect)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), app.Theme, res)
	return nil
}

func readSteps(stdin io.Reader, path string) ([]replay.Step, error) {
	if path == "-" {
		return replay.Parse(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return replay.Parse(f)
}

// newDispatcher returns the main loop views are owned by. Without
// marshalling the command goroutine itself becomes the owner.
func newDispatcher(app *cli.App, marshal bool, queueSize int) (mainthread.Dispatcher, func()) {
	if marshal {
		loop := mainthread.NewLoop(app.Logger, queueSize)
		return loop, loop.Close
	}
	runtime.LockOSThread()
	return mainthread.Inline{}, runtime.UnlockOSThread
}

func printResult(w io.Writer, theme *styles.Theme, res *replay.Result) {
	r := styles.NewViewRenderer(theme)
	fmt.Fprintln(w, r.Render(fmt.Sprintf("view %d", res.ViewID), res.Snapshot))

	for _, step := range res.Skipped {
		fmt.Fprintln(w, theme.Subtle.Render(fmt.Sprintf("line %d: %s skipped, no history", step.Line, step.Op)))
	}
	if len(res.Scripts) > 0 {
		fmt.Fprintln(w, theme.Title.Render("Evaluated scripts"))
		for _, s := range res.Scripts {
			fmt.Fprintln(w, theme.Normal.Render("  "+s))
		}
	}
}
