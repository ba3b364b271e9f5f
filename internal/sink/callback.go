// CLAUDE:SUMMARY In-process callback sink delivering events via Go function calls.
package sink

import (
	"context"

	"github.com/hazyhaar/adcover/event"
)

// OverlayFunc is called for each overlay event.
type OverlayFunc func(ctx context.Context, o event.Overlay) error

// ReportFunc is called for each report.
type ReportFunc func(ctx context.Context, r event.Report) error

// Callback delivers events as Go function calls, for embedding adcover in
// another binary.
type Callback struct {
	onOverlay OverlayFunc
	onReport  ReportFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onOverlay OverlayFunc, onReport ReportFunc) *Callback {
	return &Callback{onOverlay: onOverlay, onReport: onReport}
}

func (c *Callback) SendOverlay(ctx context.Context, o event.Overlay) error {
	if c.onOverlay != nil {
		return c.onOverlay(ctx, o)
	}
	return nil
}

func (c *Callback) SendReport(ctx context.Context, r event.Report) error {
	if c.onReport != nil {
		return c.onReport(ctx, r)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
