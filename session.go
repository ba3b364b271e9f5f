package adcover

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hazyhaar/adcover/event"
	"github.com/hazyhaar/adcover/internal/browser"
	"github.com/hazyhaar/adcover/internal/pagedom"
	"github.com/hazyhaar/adcover/internal/sink"
)

// eventBuffer bounds overlay events waiting for the sinks per page.
const eventBuffer = 1024

// session is one covered browser tab.
type session struct {
	page   PageConfig
	tab    *browser.Tab
	doc    *pagedom.Document
	engine atomic.Pointer[Engine]
	logger *slog.Logger

	events  chan event.Overlay
	sent    chan struct{}
	dropped atomic.Uint64
}

func (a *Adcover) openSession(ctx context.Context, page PageConfig) (*session, error) {
	tab, err := a.mgr.OpenTab(ctx, page.URL, page.ID, browser.TabOptions{
		NavigateTimeout: a.cfg.Browser.NavigateTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("adcover: open tab: %w", err)
	}

	s := &session{
		page:   page,
		tab:    tab,
		logger: a.logger.With("page", page.ID),
		events: make(chan event.Overlay, eventBuffer),
		sent:   make(chan struct{}),
	}

	doc, err := pagedom.Open(ctx, pagedom.Config{
		Page:           tab.Page,
		DebounceWindow: a.cfg.Debounce.Window,
		DebounceMax:    a.cfg.Debounce.MaxBuffer,
		OnReset:        s.rescan,
		Logger:         s.logger,
	})
	if err != nil {
		tab.Close()
		return nil, fmt.Errorf("adcover: %w", err)
	}
	s.doc = doc

	go s.forward(ctx, a.sinkR)

	eng := NewEngine(EngineConfig{
		Doc:     doc,
		PageID:  page.ID,
		PageURL: page.URL,
		Rules:   a.cfg.Detect.Rules,
		MinArea: a.cfg.Detect.MinArea,
		Asset:   a.cfg.Overlay.Asset,
		Emit:    s.emit,
		Logger:  a.logger,
	})
	s.engine.Store(eng)
	if err := eng.Start(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// rescan covers a replaced document. Runs on the page loop.
func (s *session) rescan() {
	eng := s.engine.Load()
	if eng == nil {
		return
	}
	s.logger.Info("adcover: document replaced, rescanning")
	if err := eng.Reset(); err != nil {
		s.logger.Warn("adcover: recount overlays", "error", err)
	}
	if err := eng.Rescan(); err != nil {
		s.logger.Warn("adcover: rescan failed", "error", err)
	}
}

// emit queues o for the sinks without blocking the page loop.
func (s *session) emit(o event.Overlay) {
	select {
	case s.events <- o:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			s.logger.Warn("adcover: event buffer full, dropping", "dropped", n)
		}
	}
}

func (s *session) forward(ctx context.Context, out sink.Sink) {
	defer close(s.sent)
	for o := range s.events {
		if err := out.SendOverlay(ctx, o); err != nil {
			s.logger.Warn("adcover: send overlay", "seq", o.Seq, "error", err)
		}
	}
}

func (s *session) status() PageStatus {
	st := PageStatus{ID: s.page.ID, URL: s.page.URL, State: "opening"}
	if eng := s.engine.Load(); eng != nil {
		st.State = eng.State().String()
		st.Covered = eng.Covered()
		st.Batches = eng.Batches()
	}
	select {
	case <-s.doc.Done():
		st.State = "closed"
	default:
	}
	return st
}

// close stops the page loop, drains queued events and closes the tab.
func (s *session) close() {
	s.doc.Close()
	close(s.events)
	<-s.sent
	if err := s.tab.Close(); err != nil {
		s.logger.Debug("adcover: close tab", "error", err)
	}
}
