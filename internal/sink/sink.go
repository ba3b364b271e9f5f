// Package sink defines output backends for adcover events.
package sink

import (
	"context"

	"github.com/hazyhaar/adcover/event"
)

// Sink delivers overlay events and scan reports to a backend (stdout,
// webhook, SQLite, in-process callback).
type Sink interface {
	SendOverlay(ctx context.Context, o event.Overlay) error
	SendReport(ctx context.Context, r event.Report) error
	Close() error
}
