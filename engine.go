// CLAUDE:SUMMARY Per-document engine: initial detect+attach pass on the task queue, mutation watcher, overlay events.
package adcover

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/adcover/dom"
	"github.com/hazyhaar/adcover/event"
	"github.com/hazyhaar/adcover/idgen"
	"github.com/hazyhaar/adcover/internal/detect"
	"github.com/hazyhaar/adcover/internal/observer"
	"github.com/hazyhaar/adcover/internal/overlay"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	Doc     dom.Document
	PageID  string
	PageURL string

	Rules   []detect.Rule
	MinArea float64
	// Asset is the overlay image. Empty means DefaultAsset.
	Asset string

	// Emit receives every overlay event. It runs on the document's task
	// queue and must not block.
	Emit func(event.Overlay)

	// IDs generates event ids. Default: UUIDv7.
	IDs    idgen.Generator
	Logger *slog.Logger
}

// Engine covers one document: a full pass at start, then the watcher.
type Engine struct {
	doc     dom.Document
	pageID  string
	pageURL string
	emit    func(event.Overlay)
	ids     idgen.Generator
	logger  *slog.Logger

	detector *detect.Detector
	overlays *overlay.Manager
	watcher  *observer.Observer

	// Task-queue owned: the candidate being attached right now.
	reason string
	source event.Source

	seq     atomic.Uint64
	covered atomic.Int64
}

// NewEngine wires detector, overlay manager and watcher over cfg.Doc.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Asset == "" {
		cfg.Asset = DefaultAsset
	}
	if cfg.IDs == nil {
		cfg.IDs = idgen.Default
	}
	if cfg.Emit == nil {
		cfg.Emit = func(event.Overlay) {}
	}
	if cfg.PageID == "" {
		cfg.PageID = cfg.PageURL
	}

	e := &Engine{
		doc:     cfg.Doc,
		pageID:  cfg.PageID,
		pageURL: cfg.PageURL,
		emit:    cfg.Emit,
		ids:     cfg.IDs,
		logger:  cfg.Logger.With("page", cfg.PageID),
	}
	e.detector = detect.New(detect.Config{
		Doc:     cfg.Doc,
		Rules:   cfg.Rules,
		MinArea: cfg.MinArea,
		Logger:  e.logger,
	})
	e.overlays = overlay.New(overlay.Config{
		Doc:      cfg.Doc,
		Asset:    cfg.Asset,
		OnAttach: e.attached,
		OnDetach: e.detached,
		Logger:   e.logger,
	})
	e.watcher = observer.New(observer.Config{
		Doc:      cfg.Doc,
		Detector: e.detector,
		Overlays: e.overlays,
		OnCandidate: func(_ dom.Element, reason string) {
			e.reason, e.source = reason, event.SourceWatch
		},
		Logger: e.logger,
	})
	return e
}

// Start runs the initial pass on the task queue, then subscribes the
// watcher. Must not be called from inside a document callback.
func (e *Engine) Start() error {
	var err error
	e.doc.Do(func() { err = e.Rescan() })
	if err != nil {
		return err
	}
	if err := e.watcher.Start(); err != nil {
		return fmt.Errorf("adcover: %w", err)
	}
	return nil
}

// Rescan runs a full detection pass and attaches every candidate. It must
// run on the task queue: inside Do or a document callback.
func (e *Engine) Rescan() error {
	root, err := e.doc.Root()
	if err != nil {
		return fmt.Errorf("adcover: root: %w", err)
	}
	found := e.detector.Detect(root)
	attached := 0
	for _, m := range found.Matches() {
		e.reason, e.source = m.Rule, event.SourceScan
		if e.overlays.Attach(m.Element) {
			attached++
		}
	}
	e.logger.Debug("adcover: scan done", "candidates", found.Len(), "attached", attached)
	return nil
}

// Reset recounts the overlays from the markers present in the current
// document. The host calls it when the document was replaced, before
// Rescan. Task queue only.
func (e *Engine) Reset() error {
	e.reason, e.source = "", ""
	root, err := e.doc.Root()
	if err != nil {
		e.covered.Store(0)
		return fmt.Errorf("adcover: root: %w", err)
	}
	marked, err := e.doc.QueryAll(root, "["+overlay.MarkerAttr+"]")
	if err != nil {
		e.covered.Store(0)
		return fmt.Errorf("adcover: count overlays: %w", err)
	}
	e.covered.Store(int64(len(marked)))
	return nil
}

// Covered returns the number of overlays currently in place.
func (e *Engine) Covered() int { return int(e.covered.Load()) }

// Batches returns how many mutation batches the watcher handled.
func (e *Engine) Batches() uint64 { return e.watcher.Batches() }

// State returns the watcher state.
func (e *Engine) State() observer.State { return e.watcher.State() }

func (e *Engine) attached(el dom.Element) {
	e.covered.Add(1)
	e.emit(e.event(el, event.Attached, e.source, e.reason))
}

func (e *Engine) detached(el dom.Element) {
	e.covered.Add(-1)
	e.emit(e.event(el, event.Removed, "", ""))
}

func (e *Engine) event(el dom.Element, action event.Action, source event.Source, reason string) event.Overlay {
	o := event.Overlay{
		ID:        e.ids(),
		PageID:    e.pageID,
		PageURL:   e.pageURL,
		Seq:       e.seq.Add(1),
		Action:    action,
		Source:    source,
		Reason:    reason,
		Tag:       el.Tag(),
		XPath:     el.Path(),
		Timestamp: time.Now().UnixMilli(),
	}
	if r, err := el.Rect(); err == nil {
		o.Width, o.Height = r.Width, r.Height
	}
	return o
}
