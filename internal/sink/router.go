package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/adcover/event"
)

// Router fans events out to every sink. One failing sink does not stop
// the others: errors are logged and the first one is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) SendOverlay(ctx context.Context, o event.Overlay) error {
	return r.each(func(s Sink) error { return s.SendOverlay(ctx, o) }, "overlay")
}

func (r *Router) SendReport(ctx context.Context, rep event.Report) error {
	return r.each(func(s Sink) error { return s.SendReport(ctx, rep) }, "report")
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) each(send func(Sink) error, what string) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := send(s); err != nil {
			r.logger.Warn("sink: send failed", "type", what, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
