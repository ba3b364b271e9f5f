package adcover

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hazyhaar/adcover/event"
	"github.com/hazyhaar/adcover/internal/sink"
	"github.com/hazyhaar/adcover/internal/store"
)

// Sink is the output interface for overlay events and scan reports.
type Sink = sink.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process sink. Either function may be nil.
func NewCallbackSink(
	onOverlay func(ctx context.Context, o event.Overlay) error,
	onReport func(ctx context.Context, r event.Report) error,
) Sink {
	return sink.NewCallback(onOverlay, onReport)
}

// BuildSinks creates the sinks named in cfg. st backs the "store" type and
// may be nil when no store sink is configured.
func BuildSinks(cfg []SinkConfig, st *store.Store, logger *slog.Logger) ([]Sink, error) {
	out := make([]Sink, 0, len(cfg))
	for i, sc := range cfg {
		switch sc.Type {
		case "stdout":
			out = append(out, NewStdoutSink(os.Stdout))
		case "webhook":
			out = append(out, NewWebhookSink(sc.URL, logger))
		case "store":
			if st == nil {
				return nil, fmt.Errorf("adcover: sinks[%d]: store sink without an open store", i)
			}
			out = append(out, sink.NewStore(st))
		default:
			return nil, fmt.Errorf("adcover: sinks[%d]: unknown type %q", i, sc.Type)
		}
	}
	return out, nil
}
