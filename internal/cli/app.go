// Package cli holds the dependencies shared by CLI commands.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bnema/webviewhost/internal/cli/styles"
	"github.com/bnema/webviewhost/internal/config"
	"github.com/bnema/webviewhost/internal/domain/build"
	"github.com/bnema/webviewhost/internal/infrastructure/persistence/sqlite"
	"github.com/bnema/webviewhost/internal/logging"
)

// App holds CLI dependencies.
type App struct {
	Config    *config.Manager
	Theme     *styles.Theme
	BuildInfo build.Info
	Logger    zerolog.Logger

	ctx       context.Context
	db        *sql.DB
	snapshots *sqlite.SnapshotRepository
}

// NewApp loads configuration from configDir (XDG when empty) and builds the
// logger from it.
func NewApp(configDir string) (*App, error) {
	mgr, err := config.NewManager(configDir)
	if err != nil {
		return nil, err
	}
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	logger := logging.NewFromConfigValues(cfg.Logging.Level, cfg.Logging.Format)
	return &App{
		Config: mgr,
		Theme:  styles.NewTheme(),
		Logger: logger,
		ctx:    logging.WithContext(context.Background(), logger),
	}, nil
}

// Ctx returns the context carrying the app logger.
func (a *App) Ctx() context.Context {
	return a.ctx
}

// Snapshots opens the snapshot database on first use.
func (a *App) Snapshots() (*sqlite.SnapshotRepository, error) {
	if a.snapshots != nil {
		return a.snapshots, nil
	}
	db, err := sqlite.NewConnection(a.ctx, a.Config.Get().Snapshot.Path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	a.db = db
	a.snapshots = sqlite.NewSnapshotRepository(db)
	return a.snapshots, nil
}

// Close releases resources.
func (a *App) Close() error {
	if a.db != nil {
		return sqlite.Close(a.db)
	}
	return nil
}
