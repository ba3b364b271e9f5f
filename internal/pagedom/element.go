package pagedom

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/adcover/dom"
)

// element is a live handle on a page element. id and tag are filled
// lazily from DOM.describeNode.
type element struct {
	doc *Document
	el  *rod.Element
	id  dom.ID
	tag string
}

func (d *Document) wrap(el *rod.Element, id dom.ID, tag string) *element {
	return &element{doc: d, el: el, id: id, tag: strings.ToLower(tag)}
}

// ID is the backend node id, stable for the lifetime of the document.
func (e *element) ID() dom.ID {
	if e.id == 0 {
		e.describe()
	}
	return e.id
}

func (e *element) Type() dom.NodeType { return dom.ElementNode }

func (e *element) Tag() string {
	if e.tag == "" {
		e.describe()
	}
	return e.tag
}

func (e *element) describe() {
	node, err := e.el.Describe(0, false)
	if err != nil {
		// Synthetic ids live in the upper half so they cannot collide
		// with backend node ids.
		if e.id == 0 {
			e.id = dom.ID(1<<63 | e.doc.synthetic.Add(1))
		}
		return
	}
	if e.id == 0 {
		e.id = dom.ID(node.BackendNodeID)
	}
	if e.tag == "" {
		e.tag = strings.ToLower(node.NodeName)
	}
}

func (e *element) Attr(name string) (string, bool) {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (e *element) SetAttr(name, value string) error {
	if _, err := e.el.Eval(jsSetAttr, name, value); err != nil {
		return fmt.Errorf("pagedom: set %s: %w", name, err)
	}
	return nil
}

func (e *element) RemoveAttr(name string) error {
	if _, err := e.el.Eval(jsDelAttr, name); err != nil {
		return fmt.Errorf("pagedom: remove %s: %w", name, err)
	}
	return nil
}

func (e *element) Rect() (dom.Rect, error) {
	if !e.Connected() {
		return dom.Rect{}, dom.ErrDetached
	}
	res, err := e.el.Eval(jsRect)
	if err != nil {
		return dom.Rect{}, fmt.Errorf("pagedom: rect: %w", err)
	}
	v := res.Value
	return dom.Rect{
		X:      v.Get("x").Num(),
		Y:      v.Get("y").Num(),
		Width:  v.Get("width").Num(),
		Height: v.Get("height").Num(),
	}, nil
}

func (e *element) Position() (string, error) {
	if !e.Connected() {
		return "", dom.ErrDetached
	}
	res, err := e.el.Eval(jsPosition)
	if err != nil {
		return "", fmt.Errorf("pagedom: position: %w", err)
	}
	return res.Value.Str(), nil
}

func (e *element) SetStyle(prop, value string) error {
	if _, err := e.el.Eval(jsSetCSS, prop, value); err != nil {
		return fmt.Errorf("pagedom: style %s: %w", prop, err)
	}
	return nil
}

func (e *element) Connected() bool {
	res, err := e.el.Eval(jsConnected)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func (e *element) Path() string {
	res, err := e.el.Eval(jsXPath)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}
