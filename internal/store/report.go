package store

import (
	"context"
	"fmt"

	"github.com/hazyhaar/adcover/dbopen"
	"github.com/hazyhaar/adcover/event"
)

// InsertReport stores a scan report and its overlay events. The covered
// HTML itself is not stored, only its hash.
func (s *Store) InsertReport(ctx context.Context, r event.Report) error {
	sparse := 0
	if r.Sparse {
		sparse = 1
	}
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT OR REPLACE INTO scan_reports
		(id, url, title, status_code, candidates, covered, html_hash, sparse, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.URL, r.Title, r.StatusCode, r.Candidates, len(r.Overlays), r.HTMLHash, sparse, r.Timestamp)
	if err != nil {
		return fmt.Errorf("store: insert report: %w", err)
	}
	for _, o := range r.Overlays {
		if err := s.InsertOverlay(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// RecentReports returns the newest reports, without HTML or overlays.
func (s *Store) RecentReports(ctx context.Context, limit int) ([]event.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, url, title, status_code, candidates, html_hash, sparse, ts
		FROM scan_reports ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent reports: %w", err)
	}
	defer rows.Close()

	var out []event.Report
	for rows.Next() {
		var r event.Report
		var sparse int
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.StatusCode, &r.Candidates,
			&r.HTMLHash, &sparse, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan report: %w", err)
		}
		r.Sparse = sparse != 0
		out = append(out, r)
	}
	return out, rows.Err()
}
