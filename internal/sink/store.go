package sink

import (
	"context"

	"github.com/hazyhaar/adcover/event"
	"github.com/hazyhaar/adcover/internal/store"
)

// Store persists events to SQLite. Close does not close the database,
// which the caller owns.
type Store struct {
	st *store.Store
}

// NewStore creates a Store sink over an open store.
func NewStore(st *store.Store) *Store {
	return &Store{st: st}
}

func (s *Store) SendOverlay(ctx context.Context, o event.Overlay) error {
	return s.st.InsertOverlay(ctx, o)
}

// SendReport stores the report without its HTML.
func (s *Store) SendReport(ctx context.Context, r event.Report) error {
	return s.st.InsertReport(ctx, r)
}

func (s *Store) Close() error { return nil }
