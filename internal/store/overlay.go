package store

import (
	"context"
	"fmt"

	"github.com/hazyhaar/adcover/dbopen"
	"github.com/hazyhaar/adcover/event"
)

// PageSummary aggregates overlay events for one page.
type PageSummary struct {
	PageID   string `json:"page_id"`
	PageURL  string `json:"page_url"`
	Attached int    `json:"attached"`
	Removed  int    `json:"removed"`
	LastSeq  uint64 `json:"last_seq"`
	LastSeen int64  `json:"last_seen"`
}

// InsertOverlay stores one overlay event. Duplicate ids are ignored.
func (s *Store) InsertOverlay(ctx context.Context, o event.Overlay) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT OR IGNORE INTO overlay_events
		(id, page_id, page_url, seq, action, source, reason, tag, xpath, width, height, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.PageID, o.PageURL, o.Seq, string(o.Action), string(o.Source),
		o.Reason, o.Tag, o.XPath, o.Width, o.Height, o.Timestamp)
	if err != nil {
		return fmt.Errorf("store: insert overlay: %w", err)
	}
	return nil
}

// ListOverlays returns the newest events for a page, newest first.
// limit <= 0 means 100.
func (s *Store) ListOverlays(ctx context.Context, pageID string, limit int) ([]event.Overlay, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, page_id, page_url, seq, action, source, reason, tag, xpath, width, height, ts
		FROM overlay_events WHERE page_id = ?
		ORDER BY seq DESC LIMIT ?`, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list overlays: %w", err)
	}
	defer rows.Close()

	var out []event.Overlay
	for rows.Next() {
		var o event.Overlay
		var action, source string
		if err := rows.Scan(&o.ID, &o.PageID, &o.PageURL, &o.Seq, &action, &source,
			&o.Reason, &o.Tag, &o.XPath, &o.Width, &o.Height, &o.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan overlay: %w", err)
		}
		o.Action = event.Action(action)
		o.Source = event.Source(source)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Pages summarises every page that produced overlay events.
func (s *Store) Pages(ctx context.Context) ([]PageSummary, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT page_id, MAX(page_url),
		       SUM(CASE WHEN action = 'attached' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN action = 'removed' THEN 1 ELSE 0 END),
		       MAX(seq), MAX(ts)
		FROM overlay_events
		GROUP BY page_id
		ORDER BY page_id`)
	if err != nil {
		return nil, fmt.Errorf("store: pages: %w", err)
	}
	defer rows.Close()

	var out []PageSummary
	for rows.Next() {
		var p PageSummary
		if err := rows.Scan(&p.PageID, &p.PageURL, &p.Attached, &p.Removed, &p.LastSeq, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("store: scan page: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
