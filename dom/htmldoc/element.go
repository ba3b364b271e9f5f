package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/adcover/dom"
)

type element struct {
	doc *Document
	n   *html.Node
}

func (e *element) ID() dom.ID         { return e.doc.id(e.n) }
func (e *element) Type() dom.NodeType { return dom.ElementNode }
func (e *element) Tag() string        { return strings.ToLower(e.n.Data) }
func (e *element) Connected() bool    { return e.doc.attached(e.n) }

func (e *element) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (e *element) SetAttr(name, value string) error {
	name = strings.ToLower(name)
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr[i].Val = value
			return nil
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

func (e *element) RemoveAttr(name string) error {
	name = strings.ToLower(name)
	kept := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	e.n.Attr = kept
	return nil
}

func (e *element) Rect() (dom.Rect, error) {
	if !e.Connected() {
		return dom.Rect{}, dom.ErrDetached
	}
	return layout(e.n), nil
}

func (e *element) Position() (string, error) {
	if !e.Connected() {
		return "", dom.ErrDetached
	}
	st, _ := e.Attr("style")
	if pos := parseStyle(st).get("position"); pos != "" {
		return pos, nil
	}
	return "static", nil
}

func (e *element) SetStyle(prop, value string) error {
	st, _ := e.Attr("style")
	decls := parseStyle(st)
	decls.set(prop, value)
	return e.SetAttr("style", decls.String())
}

// Path computes an XPath with sibling indexes where the tag repeats.
func (e *element) Path() string {
	var parts []string
	for n := e.n; n != nil && n.Type == html.ElementNode; n = n.Parent {
		name := strings.ToLower(n.Data)
		idx, total := 0, 0
		if n.Parent != nil {
			for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
				if s.Type != html.ElementNode || s.Data != n.Data {
					continue
				}
				total++
				if s == n {
					idx = total
				}
			}
		}
		if total > 1 {
			name = fmt.Sprintf("%s[%d]", name, idx)
		}
		parts = append([]string{name}, parts...)
	}
	return "/" + strings.Join(parts, "/")
}
