// Package overlay attaches decorative, non-interactive overlays on top of
// candidate elements. The marker attribute on the candidate is the only
// record of an attached overlay.
package overlay

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/adcover/dom"
)

const (
	// MarkerAttr is set on a candidate that carries an overlay.
	MarkerAttr = "data-adcover"
	// NodeAttr identifies the overlay container itself.
	NodeAttr = "data-adcover-node"
	// RemoveEvent is the input that removes an overlay.
	RemoveEvent = "contextmenu"
)

const containerStyle = "position: absolute; inset: 0; width: 100%; height: 100%; " +
	"z-index: 2147483647; margin: 0; padding: 0; border: 0; overflow: hidden; " +
	"background: #e8e8e8"

const imageStyle = "display: block; width: 100%; height: 100%; object-fit: cover; " +
	"margin: 0; padding: 0; border: 0"

// Config for creating a Manager.
type Config struct {
	Doc dom.Document
	// Asset is the opaque image reference placed in the overlay.
	Asset string
	// OnAttach runs after a new overlay is in place.
	OnAttach func(el dom.Element)
	// OnDetach runs after the removal trigger tore an overlay down.
	OnDetach func(el dom.Element)
	Logger   *slog.Logger
}

// Manager attaches and removes overlays.
type Manager struct {
	doc      dom.Document
	asset    string
	onAttach func(dom.Element)
	onDetach func(dom.Element)
	logger   *slog.Logger
}

// New creates a Manager.
func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		doc:      cfg.Doc,
		asset:    cfg.Asset,
		onAttach: cfg.OnAttach,
		onDetach: cfg.OnDetach,
		logger:   cfg.Logger,
	}
}

// Has reports whether el carries the overlay marker.
func (m *Manager) Has(el dom.Element) bool {
	if el == nil {
		return false
	}
	_, ok := el.Attr(MarkerAttr)
	return ok
}

// IsOverlay reports whether n is an overlay container.
func IsOverlay(n dom.Node) bool {
	el, ok := dom.AsElement(n)
	if !ok {
		return false
	}
	_, ok = el.Attr(NodeAttr)
	return ok
}

// Attach covers el with an overlay unless it already has one. It reports
// whether a new overlay was created. Invalid targets and host failures are
// no-ops.
func (m *Manager) Attach(el dom.Element) bool {
	if el == nil || el.Type() != dom.ElementNode || m.Has(el) {
		return false
	}

	// Marker first, so re-entrant calls see it.
	if err := el.SetAttr(MarkerAttr, "1"); err != nil {
		m.logger.Debug("overlay: set marker failed", "path", el.Path(), "error", err)
		return false
	}

	node, err := m.build(el)
	if err != nil {
		m.logger.Debug("overlay: attach failed", "path", el.Path(), "error", err)
		el.RemoveAttr(MarkerAttr)
		return false
	}

	if err := m.doc.Listen(node, RemoveEvent, dom.ListenOptions{PreventDefault: true}, func() {
		m.detach(el, node)
	}); err != nil {
		m.logger.Debug("overlay: removal trigger not registered", "path", el.Path(), "error", err)
	}

	if m.onAttach != nil {
		m.onAttach(el)
	}
	return true
}

func (m *Manager) build(el dom.Element) (dom.Element, error) {
	if pos, err := el.Position(); err == nil && (pos == "static" || pos == "") {
		if err := el.SetStyle("position", "relative"); err != nil {
			return nil, err
		}
	}

	node, err := m.doc.CreateElement("div")
	if err != nil {
		return nil, err
	}
	if err := setAttrs(node, NodeAttr, "", "aria-hidden", "true", "style", containerStyle); err != nil {
		return nil, err
	}

	img, err := m.doc.CreateElement("img")
	if err != nil {
		return nil, err
	}
	if err := setAttrs(img, "src", m.asset, "alt", "", "style", imageStyle); err != nil {
		return nil, err
	}

	if err := m.doc.Append(node, img); err != nil {
		return nil, err
	}
	if err := m.doc.Prepend(el, node); err != nil {
		return nil, err
	}
	return node, nil
}

// setAttrs sets name/value pairs in order and stops at the first failure.
func setAttrs(el dom.Element, kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := el.SetAttr(kv[i], kv[i+1]); err != nil {
			return fmt.Errorf("overlay: set %s: %w", kv[i], err)
		}
	}
	return nil
}

// detach is the removal trigger: overlay gone, marker cleared, position
// mode left as is.
func (m *Manager) detach(el, node dom.Element) {
	if !m.Has(el) {
		return
	}
	if err := m.doc.Remove(node); err != nil {
		m.logger.Debug("overlay: remove node failed", "path", el.Path(), "error", err)
	}
	el.RemoveAttr(MarkerAttr)
	if m.onDetach != nil {
		m.onDetach(el)
	}
}
