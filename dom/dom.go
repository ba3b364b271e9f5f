// Package dom defines the host document contract the adcover engine runs
// against. Two hosts implement it: dom/htmldoc (in-memory, x/net/html) and
// internal/pagedom (a live Chrome tab over CDP).
//
// Implementations must deliver every observer and listener callback on a
// single task queue, and Do must run on that same queue. The engine relies
// on this and takes no locks of its own.
package dom

import "errors"

var (
	// ErrDetached is returned when measuring or mutating a node that is no
	// longer part of the document.
	ErrDetached = errors.New("dom: node detached")
	// ErrNotElement is returned when an element operation targets a
	// non-element node.
	ErrNotElement = errors.New("dom: not an element")
)

// NodeType mirrors the DOM nodeType values the engine cares about.
type NodeType int

const (
	ElementNode  NodeType = 1
	TextNode     NodeType = 3
	CommentNode  NodeType = 8
	DocumentNode NodeType = 9
)

// ID identifies a node for the lifetime of its document.
type ID uint64

// Node is any node reported by the host.
type Node interface {
	ID() ID
	Type() NodeType
}

// Element is a live element handle. Handles are not copies: every call
// reads or writes the underlying document.
type Element interface {
	Node
	// Tag returns the lower-case tag name.
	Tag() string
	Attr(name string) (string, bool)
	SetAttr(name, value string) error
	RemoveAttr(name string) error
	// Rect returns the on-screen bounding box.
	Rect() (Rect, error)
	// Position returns the computed CSS position mode.
	Position() (string, error)
	SetStyle(prop, value string) error
	Connected() bool
	// Path returns an XPath locating the element, for reporting only.
	Path() string
}

// Rect is a bounding box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns width × height, or 0 for degenerate boxes.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// MutationRecord reports children added to or removed from Target.
type MutationRecord struct {
	Target  Element
	Added   []Node
	Removed []Node
}

// ObserveOptions configures a mutation subscription.
type ObserveOptions struct {
	Subtree   bool
	ChildList bool
}

// ListenOptions configures an event listener.
type ListenOptions struct {
	// PreventDefault cancels the platform's default handling before the
	// callback runs.
	PreventDefault bool
}

// Document is the host environment.
type Document interface {
	// Root returns the document element.
	Root() (Element, error)
	// QueryAll returns the descendants of scope matching selector, in
	// document order. scope itself is never included.
	QueryAll(scope Element, selector string) ([]Element, error)
	// Matches reports whether el itself matches selector.
	Matches(el Element, selector string) (bool, error)
	CreateElement(tag string) (Element, error)
	// Prepend inserts child as the first child of parent.
	Prepend(parent, child Element) error
	Append(parent, child Element) error
	Remove(node Element) error
	Listen(el Element, event string, opts ListenOptions, fn func()) error
	Observe(root Element, opts ObserveOptions, fn func([]MutationRecord)) error
	// Do runs fn on the document's task queue and waits for it. It must not
	// be called from inside a callback.
	Do(fn func())
}

// AsElement returns n as an Element when it is one.
func AsElement(n Node) (Element, bool) {
	if n == nil || n.Type() != ElementNode {
		return nil, false
	}
	el, ok := n.(Element)
	return el, ok
}
