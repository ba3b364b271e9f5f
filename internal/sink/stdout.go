// CLAUDE:SUMMARY Writes adcover events as JSON-lines envelopes to an io.Writer (defaults to stdout).
package sink

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/adcover/event"
)

// Stdout writes one envelope per line to an io.Writer (default os.Stdout).
type Stdout struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{w: w}
}

func (s *Stdout) SendOverlay(_ context.Context, o event.Overlay) error {
	return s.write(event.TypeOverlay, o)
}

func (s *Stdout) SendReport(_ context.Context, r event.Report) error {
	return s.write(event.TypeReport, r)
}

func (s *Stdout) write(typ string, v any) error {
	line, err := event.Wrap(typ, v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(line, '\n'))
	return err
}

func (s *Stdout) Close() error { return nil }
