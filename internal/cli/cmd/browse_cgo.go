//go:build webkit_cgo

package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/diamondburned/gotk4/pkg/gio/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bnema/webviewhost/internal/bridge"
	"github.com/bnema/webviewhost/internal/config"
	"github.com/bnema/webviewhost/internal/host"
	"github.com/bnema/webviewhost/internal/infrastructure/gtkview"
	"github.com/bnema/webviewhost/internal/logging"
	"github.com/bnema/webviewhost/internal/replay"
	"github.com/bnema/webviewhost/pkg/webview"
)

const applicationID = "io.github.bnema.webviewhost"

func runBrowse(_ *cobra.Command, args []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ctx, cancel := context.WithCancel(logging.WithComponent(app.Ctx(), "browse"))
	defer cancel()
	log := logging.FromContext(ctx)
	cfg := app.Config.Get()

	url := "about:blank"
	if len(args) == 1 {
		url = args[0]
	}

	if err := app.Config.Watch(); err != nil {
		log.Warn().Err(err).Msg("config watch unavailable")
	}
	app.Config.OnConfigChange(func(c *config.Config) {
		zerolog.SetGlobalLevel(logging.ParseLevel(c.Logging.Level))
	})

	br := bridge.NewDispatcher()
	replay.RegisterBuiltins(br, nil)

	var snapshots host.SnapshotStore
	if browseKey != "" || cfg.Snapshot.Enabled {
		repo, err := app.Snapshots()
		if err != nil {
			return err
		}
		snapshots = repo
	}

	var runErr error
	gtkApp := gtk.NewApplication(applicationID, gio.ApplicationFlagsNone)
	gtkApp.ConnectActivate(func() {
		dispatcher := gtkview.NewIdleDispatcher()
		h := host.New(ctx, host.Options{
			Registry:   webview.NewRegistry(webview.WithLogger(app.Logger)),
			Dispatcher: dispatcher,
			Bridge:     br,
			BridgeName: cfg.Bridge.Name,
			Snapshots:  snapshots,
		})

		win := gtk.NewApplicationWindow(gtkApp)
		win.SetDefaultSize(1024, 768)

		var id uint64
		factory := gtkview.Factory(gtkview.Options{
			BridgeName: cfg.Bridge.Name,
			OnMessage:  func(*webview.State) { h.NotifyMessage(id) },
			Attach:     win.SetChild,
		})
		var err error
		id, err = h.Open(ctx, factory, url, browseKey)
		if err != nil {
			runErr = err
			gtkApp.Quit()
			return
		}

		go func() {
			if err := h.Run(ctx, cfg.Bridge.PollInterval); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("poll loop stopped")
			}
		}()

		win.ConnectCloseRequest(func() bool {
			cancel()
			if err := h.Shutdown(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("shutdown reported errors")
			}
			dispatcher.Close()
			return false
		})
		win.Show()
	})

	if code := gtkApp.Run(os.Args[:1]); code != 0 && runErr == nil {
		runErr = fmt.Errorf("gtk application exited with status %d", code)
	}
	return runErr
}
