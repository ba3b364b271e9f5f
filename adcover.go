// CLAUDE:SUMMARY Top-level orchestrator: browser manager, one session per page, recycle reconnect, page-list reconcile, HTTP scans.
// Package adcover covers likely advertisements with a neutral overlay
// image, on live Chrome tabs and on fetched HTML. Detection and overlay
// attachment run against the dom.Document contract; this package wires
// them to a browser, the sinks and the page list.
package adcover

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/adcover/event"
	"github.com/hazyhaar/adcover/internal/api"
	"github.com/hazyhaar/adcover/internal/browser"
	"github.com/hazyhaar/adcover/internal/fetcher"
	"github.com/hazyhaar/adcover/internal/sink"
)

// PageStatus describes a live page session.
type PageStatus = api.PageStatus

// Adcover manages the browser, one session per page and the sinks.
type Adcover struct {
	cfg      *Config
	mgr      *browser.Manager
	fetch    *fetcher.Fetcher
	sinkR    *sink.Router
	sessions map[string]*session // keyed by page ID
	mu       sync.Mutex
	logger   *slog.Logger
}

// New creates an Adcover. cfg should have been through ApplyDefaults.
func New(cfg *Config, logger *slog.Logger, sinks ...Sink) *Adcover {
	if logger == nil {
		logger = slog.Default()
	}
	asset := cfg.Overlay.Asset
	if asset == "" {
		asset = DefaultAsset
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		Mode:            browser.ParseMode(cfg.Browser.Mode),
		MemoryLimit:     cfg.Browser.MemoryLimit,
		RecycleInterval: cfg.Browser.RecycleInterval,
		BlockResources:  cfg.Browser.BlockResources,
		XvfbDisplay:     cfg.Browser.XvfbDisplay,
		Logger:          logger,
	})

	fetchOpts := []fetcher.Option{
		fetcher.WithDetect(cfg.Detect.Rules, cfg.Detect.MinArea),
		fetcher.WithAsset(asset),
		fetcher.WithLogger(logger),
	}
	if cfg.Scan.PublicOnly {
		fetchOpts = append(fetchOpts, fetcher.WithPublicOnly())
	}

	return &Adcover{
		cfg:      cfg,
		mgr:      mgr,
		fetch:    fetcher.New(fetchOpts...),
		sinkR:    sink.NewRouter(logger, sinks...),
		sessions: make(map[string]*session),
		logger:   logger,
	}
}

// Start launches the browser and covers every configured page. A page
// that fails to open is logged and skipped.
func (a *Adcover) Start(ctx context.Context) error {
	if _, err := a.mgr.Start(ctx); err != nil {
		return fmt.Errorf("adcover: start browser: %w", err)
	}
	a.mgr.OnRecycle(func(*rod.Browser) { a.reopen(ctx) })

	for _, page := range a.cfg.Pages {
		if err := a.CoverPage(ctx, page); err != nil {
			a.logger.Error("adcover: failed to cover page", "url", page.URL, "error", err)
		}
	}
	return nil
}

// CoverPage opens page in a tab and keeps it covered. Covering a page ID
// that is already open replaces its session.
func (a *Adcover) CoverPage(ctx context.Context, page PageConfig) error {
	if page.ID == "" {
		page.ID = page.URL
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.coverLocked(ctx, page)
}

func (a *Adcover) coverLocked(ctx context.Context, page PageConfig) error {
	if old, ok := a.sessions[page.ID]; ok {
		old.close()
		delete(a.sessions, page.ID)
	}
	s, err := a.openSession(ctx, page)
	if err != nil {
		return err
	}
	a.sessions[page.ID] = s
	a.logger.Info("adcover: covering page", "id", page.ID, "url", page.URL)
	return nil
}

// Uncover closes the session of a page. Overlays already placed stay in
// the tab until it closes.
func (a *Adcover) Uncover(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[id]
	if !ok {
		return false
	}
	s.close()
	delete(a.sessions, id)
	a.logger.Info("adcover: page uncovered", "id", id)
	return true
}

// SetPages reconciles sessions with pages: unknown IDs are opened, IDs no
// longer listed are closed, IDs whose URL changed are reopened.
func (a *Adcover) SetPages(ctx context.Context, pages []PageConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()

	want := make(map[string]PageConfig, len(pages))
	for _, p := range pages {
		if p.ID == "" {
			p.ID = p.URL
		}
		want[p.ID] = p
	}
	for id, s := range a.sessions {
		if _, ok := want[id]; !ok {
			s.close()
			delete(a.sessions, id)
			a.logger.Info("adcover: page dropped", "id", id)
		}
	}
	for id, p := range want {
		if s, ok := a.sessions[id]; ok && s.page.URL == p.URL {
			continue
		}
		if err := a.coverLocked(ctx, p); err != nil {
			a.logger.Error("adcover: failed to cover page", "url", p.URL, "error", err)
		}
	}
}

// Status lists live sessions ordered by page ID.
func (a *Adcover) Status() []PageStatus {
	a.mu.Lock()
	out := make([]PageStatus, 0, len(a.sessions))
	for _, s := range a.sessions {
		out = append(out, s.status())
	}
	a.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Scan fetches pageURL over HTTP, covers the parsed document and sends
// the report to the sinks.
func (a *Adcover) Scan(ctx context.Context, pageURL string) (*event.Report, error) {
	rep, err := a.fetch.Scan(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if err := a.sinkR.SendReport(ctx, *rep); err != nil {
		a.logger.Error("adcover: send report failed", "url", pageURL, "error", err)
	}
	return rep, nil
}

// Stop closes every session, the sinks and the browser.
func (a *Adcover) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, s := range a.sessions {
		s.close()
		a.logger.Info("adcover: stopped page", "id", id)
	}
	a.sessions = make(map[string]*session)

	a.sinkR.Close()
	a.mgr.Close()
}

// reopen recreates every session on the fresh browser after a recycle.
func (a *Adcover) reopen(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pages := make([]PageConfig, 0, len(a.sessions))
	for _, s := range a.sessions {
		pages = append(pages, s.page)
	}
	for _, p := range pages {
		if err := a.coverLocked(ctx, p); err != nil {
			a.logger.Error("adcover: reopen after recycle failed", "url", p.URL, "error", err)
			delete(a.sessions, p.ID)
		}
	}
}
