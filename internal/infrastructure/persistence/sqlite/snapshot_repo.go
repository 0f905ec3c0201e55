package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/webviewhost/internal/logging"
	"github.com/bnema/webviewhost/pkg/webview"
)

// SnapshotRepository persists view state snapshots under a caller-chosen key.
type SnapshotRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotRepository creates a SQLite-backed snapshot repository.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: time.Now}
}

// Save stores snap under key, replacing any previous snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, key string, snap webview.Snapshot) error {
	if key == "" {
		return fmt.Errorf("snapshot key cannot be empty")
	}
	history := snap.History
	if history == nil {
		history = []string{}
	}
	encoded, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO view_snapshots (view_key, url, title, loading, history, history_index, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(view_key) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			loading = excluded.loading,
			history = excluded.history,
			history_index = excluded.history_index,
			updated_at = excluded.updated_at`,
		key, snap.URL, snap.Title, snap.Loading, string(encoded), snap.HistoryIndex, r.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %q: %w", key, err)
	}

	logging.FromContext(ctx).Debug().Str("key", key).Int("entries", len(history)).Msg("view snapshot saved")
	return nil
}

// Find returns the snapshot stored under key, or nil when there is none.
func (r *SnapshotRepository) Find(ctx context.Context, key string) (*webview.Snapshot, error) {
	var (
		snap    webview.Snapshot
		history string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT url, title, loading, history, history_index FROM view_snapshots WHERE view_key = ?`, key,
	).Scan(&snap.URL, &snap.Title, &snap.Loading, &history, &snap.HistoryIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(history), &snap.History); err != nil {
		return nil, fmt.Errorf("failed to decode history of %q: %w", key, err)
	}
	return &snap, nil
}

// Delete removes the snapshot stored under key.
func (r *SnapshotRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM view_snapshots WHERE view_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete snapshot %q: %w", key, err)
	}
	return nil
}

// Keys returns stored keys, most recently saved first.
func (r *SnapshotRepository) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT view_key FROM view_snapshots ORDER BY updated_at DESC, view_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
