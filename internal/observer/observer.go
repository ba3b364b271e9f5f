// Package observer implements the mutation watcher: it subscribes once to
// subtree child-list notifications and covers qualifying inserted nodes.
//
// Inserted nodes only get the cheap checks (iframe, size) and the selector
// rules. The size-and-keyword heuristic stays an initial-pass-only tool.
package observer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hazyhaar/adcover/dom"
	"github.com/hazyhaar/adcover/internal/detect"
	"github.com/hazyhaar/adcover/internal/overlay"
)

// ErrAlreadyWatching is returned by a second Start.
var ErrAlreadyWatching = errors.New("observer: already watching")

// State is the watcher lifecycle state.
type State int32

const (
	Idle State = iota
	Watching
)

func (s State) String() string {
	if s == Watching {
		return "watching"
	}
	return "idle"
}

// Attacher is the overlay side of the watcher.
type Attacher interface {
	Attach(el dom.Element) bool
}

// Config for creating an Observer.
type Config struct {
	Doc      dom.Document
	Detector *detect.Detector
	Overlays Attacher
	// OnCandidate runs for every inserted candidate before it is attached.
	// reason is "iframe", "size" or the matching rule name.
	OnCandidate func(el dom.Element, reason string)
	Logger      *slog.Logger
}

// Observer watches a document for inserted nodes.
type Observer struct {
	doc         dom.Document
	detector    *detect.Detector
	overlays    Attacher
	onCandidate func(dom.Element, string)
	logger      *slog.Logger

	state   atomic.Int32
	batches atomic.Uint64
}

// New creates an idle Observer.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Observer{
		doc:         cfg.Doc,
		detector:    cfg.Detector,
		overlays:    cfg.Overlays,
		onCandidate: cfg.OnCandidate,
		logger:      cfg.Logger,
	}
}

// State returns the lifecycle state.
func (o *Observer) State() State { return State(o.state.Load()) }

// Batches returns how many notification batches were handled.
func (o *Observer) Batches() uint64 { return o.batches.Load() }

// Start subscribes to the whole document. It runs once; there is no Stop,
// the subscription lives as long as the document.
func (o *Observer) Start() error {
	if !o.state.CompareAndSwap(int32(Idle), int32(Watching)) {
		return ErrAlreadyWatching
	}
	root, err := o.doc.Root()
	if err != nil {
		o.state.Store(int32(Idle))
		return fmt.Errorf("observer: root: %w", err)
	}
	err = o.doc.Observe(root, dom.ObserveOptions{Subtree: true, ChildList: true}, o.Handle)
	if err != nil {
		o.state.Store(int32(Idle))
		return fmt.Errorf("observer: subscribe: %w", err)
	}
	o.logger.Debug("observer: watching")
	return nil
}

// Handle processes one notification batch in delivery order.
func (o *Observer) Handle(records []dom.MutationRecord) {
	o.batches.Add(1)
	for _, rec := range records {
		for _, n := range rec.Added {
			o.handleNode(n)
		}
	}
}

func (o *Observer) handleNode(n dom.Node) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Debug("observer: inserted node skipped", "panic", p)
		}
	}()

	el, ok := dom.AsElement(n)
	if !ok || overlay.IsOverlay(el) || !el.Connected() {
		return
	}

	switch {
	case el.Tag() == "iframe":
		o.cover(el, "iframe")
		return
	case o.detector.LargeEnough(el):
		o.cover(el, "size")
		return
	}

	for _, m := range o.detector.DetectSelectors(el).Matches() {
		o.cover(m.Element, m.Rule)
	}
}

func (o *Observer) cover(el dom.Element, reason string) {
	if o.onCandidate != nil {
		o.onCandidate(el, reason)
	}
	o.overlays.Attach(el)
}
