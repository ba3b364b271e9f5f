// CLAUDE:SUMMARY cover_pages table: load, upsert, disable, and a data_version poller for hot reload.
package config

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Schema for the cover_pages table.
const Schema = `
CREATE TABLE IF NOT EXISTS cover_pages (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	updated_at INTEGER NOT NULL
);
`

// LoadPages reads all active pages from the database.
func LoadPages(ctx context.Context, db *sql.DB) ([]PageConfig, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, url FROM cover_pages
		WHERE status = 'active'
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("config: load pages: %w", err)
	}
	defer rows.Close()

	var pages []PageConfig
	for rows.Next() {
		var p PageConfig
		if err := rows.Scan(&p.ID, &p.URL); err != nil {
			return nil, fmt.Errorf("config: scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// UpsertPage adds or re-activates a page.
func UpsertPage(ctx context.Context, db *sql.DB, p PageConfig) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO cover_pages (id, url, status, updated_at)
		VALUES (?, ?, 'active', ?)
		ON CONFLICT(id) DO UPDATE SET url = excluded.url, status = 'active', updated_at = excluded.updated_at
	`, p.ID, p.URL, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("config: upsert page %s: %w", p.ID, err)
	}
	return nil
}

// DisablePage marks a page inactive. LoadPages skips it afterwards.
func DisablePage(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE cover_pages SET status = 'disabled', updated_at = ? WHERE id = ?
	`, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("config: disable page %s: %w", id, err)
	}
	return nil
}

// MergePages appends db pages whose id is not already configured.
func MergePages(file, db []PageConfig) []PageConfig {
	seen := make(map[string]bool, len(file))
	out := append([]PageConfig(nil), file...)
	for _, p := range file {
		seen[p.ID] = true
	}
	for _, p := range db {
		if !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out
}

// WatchPages polls PRAGMA data_version and calls reload with the fresh page
// list after another connection changed the database. Blocks until ctx is
// done. A failed reload is retried on the next change.
func WatchPages(ctx context.Context, db *sql.DB, interval time.Duration, logger *slog.Logger, reload func([]PageConfig)) {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	last, err := dataVersion(ctx, db)
	if err != nil {
		logger.Warn("config: initial data_version failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v, err := dataVersion(ctx, db)
		if err != nil {
			logger.Warn("config: data_version failed", "error", err)
			continue
		}
		if v == last {
			continue
		}
		pages, err := LoadPages(ctx, db)
		if err != nil {
			logger.Error("config: reload pages", "error", err)
			continue
		}
		last = v
		logger.Info("config: pages reloaded", "count", len(pages))
		reload(pages)
	}
}

func dataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}
