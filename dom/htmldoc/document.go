// Package htmldoc is an in-memory dom.Document built on golang.org/x/net/html.
// Selector rules are evaluated with cascadia. Layout is approximated from
// inline styles and width/height attributes, which is enough for offline
// scans of fetched pages and for exercising the engine in tests.
//
// Mutation records are queued and delivered by Flush, listeners run from
// Dispatch. Both run on the caller's goroutine, which makes the caller the
// document's task queue.
package htmldoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/adcover/dom"
)

// Document is a parsed HTML document.
type Document struct {
	root      *html.Node
	ids       map[*html.Node]dom.ID
	next      dom.ID
	selectors map[string]cascadia.SelectorGroup
	observers []*subscription
	listeners map[*html.Node][]listener
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{
		root:      n,
		ids:       make(map[*html.Node]dom.ID),
		selectors: make(map[string]cascadia.SelectorGroup),
		listeners: make(map[*html.Node][]listener),
	}, nil
}

// ParseString parses an HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Render writes the document, overlays included, as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// HTML returns the rendered document.
func (d *Document) HTML() []byte {
	var buf bytes.Buffer
	html.Render(&buf, d.root)
	return buf.Bytes()
}

// Root returns the <html> element.
func (d *Document) Root() (dom.Element, error) {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return d.wrap(c), nil
		}
	}
	return nil, fmt.Errorf("htmldoc: no document element")
}

// First returns the first element in the document matching selector.
func (d *Document) First(selector string) (dom.Element, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	n := cascadia.Query(d.root, sel)
	if n == nil {
		return nil, fmt.Errorf("htmldoc: no element matches %q", selector)
	}
	return d.wrap(n), nil
}

// QueryAll implements dom.Document.
func (d *Document) QueryAll(scope dom.Element, selector string) ([]dom.Element, error) {
	n, err := d.unwrap(scope)
	if err != nil {
		return nil, err
	}
	if !d.attached(n) {
		return nil, dom.ErrDetached
	}
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	found := cascadia.QueryAll(n, sel)
	out := make([]dom.Element, 0, len(found))
	for _, f := range found {
		out = append(out, d.wrap(f))
	}
	return out, nil
}

// Matches implements dom.Document.
func (d *Document) Matches(el dom.Element, selector string) (bool, error) {
	n, err := d.unwrap(el)
	if err != nil {
		return false, err
	}
	sel, err := d.compile(selector)
	if err != nil {
		return false, err
	}
	return sel.Match(n), nil
}

// CreateElement implements dom.Document. The element starts detached.
func (d *Document) CreateElement(tag string) (dom.Element, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return nil, fmt.Errorf("htmldoc: empty tag name")
	}
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return d.wrap(n), nil
}

// Prepend implements dom.Document.
func (d *Document) Prepend(parent, child dom.Element) error {
	p, c, err := d.pair(parent, child)
	if err != nil {
		return err
	}
	d.detach(c)
	p.InsertBefore(c, p.FirstChild)
	d.record(p, []*html.Node{c}, nil)
	return nil
}

// Append implements dom.Document.
func (d *Document) Append(parent, child dom.Element) error {
	p, c, err := d.pair(parent, child)
	if err != nil {
		return err
	}
	d.detach(c)
	p.AppendChild(c)
	d.record(p, []*html.Node{c}, nil)
	return nil
}

// Remove implements dom.Document.
func (d *Document) Remove(node dom.Element) error {
	n, err := d.unwrap(node)
	if err != nil {
		return err
	}
	if n.Parent == nil {
		return dom.ErrDetached
	}
	d.detach(n)
	return nil
}

// InsertHTML parses fragment in the context of parent and appends the
// resulting nodes to it, reporting them as one mutation record. It stands
// in for a third-party script injecting markup.
func (d *Document) InsertHTML(parent dom.Element, fragment string) ([]dom.Node, error) {
	p, err := d.unwrap(parent)
	if err != nil {
		return nil, err
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), p)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse fragment: %w", err)
	}
	out := make([]dom.Node, 0, len(nodes))
	for _, n := range nodes {
		p.AppendChild(n)
		out = append(out, d.node(n))
	}
	d.record(p, nodes, nil)
	return out, nil
}

// Do implements dom.Document. The caller's goroutine is the task queue.
func (d *Document) Do(fn func()) { fn() }

// Children returns the child nodes of el.
func (d *Document) Children(el dom.Element) []dom.Node {
	n, err := d.unwrap(el)
	if err != nil {
		return nil
	}
	var out []dom.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, d.node(c))
	}
	return out
}

// HTMLNode exposes the x/net/html node behind el.
func (d *Document) HTMLNode(el dom.Element) *html.Node {
	n, _ := d.unwrap(el)
	return n
}

func (d *Document) compile(selector string) (cascadia.SelectorGroup, error) {
	if sel, ok := d.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: selector %q: %w", selector, err)
	}
	d.selectors[selector] = sel
	return sel, nil
}

func (d *Document) pair(parent, child dom.Element) (*html.Node, *html.Node, error) {
	p, err := d.unwrap(parent)
	if err != nil {
		return nil, nil, err
	}
	c, err := d.unwrap(child)
	if err != nil {
		return nil, nil, err
	}
	if c == p || isAncestor(c, p) {
		return nil, nil, fmt.Errorf("htmldoc: cannot insert a node into itself")
	}
	return p, c, nil
}

func (d *Document) detach(n *html.Node) {
	p := n.Parent
	if p == nil {
		return
	}
	p.RemoveChild(n)
	d.record(p, nil, []*html.Node{n})
}

func (d *Document) attached(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

func (d *Document) id(n *html.Node) dom.ID {
	if id, ok := d.ids[n]; ok {
		return id
	}
	d.next++
	d.ids[n] = d.next
	return d.next
}

func (d *Document) wrap(n *html.Node) *element {
	return &element{doc: d, n: n}
}

func (d *Document) node(n *html.Node) dom.Node {
	if n.Type == html.ElementNode {
		return d.wrap(n)
	}
	return &leaf{id: d.id(n), typ: nodeType(n.Type)}
}

func (d *Document) unwrap(el dom.Element) (*html.Node, error) {
	e, ok := el.(*element)
	if !ok || e == nil || e.doc != d {
		return nil, dom.ErrNotElement
	}
	return e.n, nil
}

func isAncestor(a, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

func nodeType(t html.NodeType) dom.NodeType {
	switch t {
	case html.ElementNode:
		return dom.ElementNode
	case html.TextNode:
		return dom.TextNode
	case html.CommentNode:
		return dom.CommentNode
	case html.DocumentNode:
		return dom.DocumentNode
	}
	return 0
}

// leaf is a non-element node.
type leaf struct {
	id  dom.ID
	typ dom.NodeType
}

func (l *leaf) ID() dom.ID         { return l.id }
func (l *leaf) Type() dom.NodeType { return l.typ }
