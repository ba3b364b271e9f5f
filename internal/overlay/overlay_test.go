package overlay

import (
	"errors"
	"testing"

	"github.com/hazyhaar/adcover/dom"
	"github.com/hazyhaar/adcover/dom/htmldoc"
)

const testAsset = "data:image/svg+xml;base64,PHN2Zy8+"

const testPage = `<html><body>
<div id="slot" class="ad" data-x="1" style="width: 300px; height: 250px"><span>one</span><span>two</span></div>
<div id="placed" style="position: absolute; width: 300px; height: 250px"></div>
</body></html>`

func setup(t *testing.T) (*htmldoc.Document, *Manager) {
	t.Helper()
	doc, err := htmldoc.ParseString(testPage)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc, New(Config{Doc: doc, Asset: testAsset})
}

func first(t *testing.T, doc *htmldoc.Document, sel string) dom.Element {
	t.Helper()
	el, err := doc.First(sel)
	if err != nil {
		t.Fatalf("first %q: %v", sel, err)
	}
	return el
}

func overlays(doc *htmldoc.Document, el dom.Element) []dom.Element {
	var out []dom.Element
	for _, c := range doc.Children(el) {
		if IsOverlay(c) {
			out = append(out, c.(dom.Element))
		}
	}
	return out
}

func TestAttach_Idempotent(t *testing.T) {
	doc, m := setup(t)
	el := first(t, doc, "#slot")

	if !m.Attach(el) {
		t.Fatal("first Attach should create an overlay")
	}
	if m.Attach(el) {
		t.Error("second Attach should be a no-op")
	}
	if n := len(overlays(doc, el)); n != 1 {
		t.Errorf("overlay count: got %d, want 1", n)
	}
	if v, ok := el.Attr(MarkerAttr); !ok || v != "1" {
		t.Errorf("marker: got %q, %v", v, ok)
	}
}

func TestAttach_NonDestructive(t *testing.T) {
	doc, m := setup(t)
	el := first(t, doc, "#slot")
	before := doc.Children(el)

	m.Attach(el)

	after := doc.Children(el)
	if len(after) != len(before)+1 {
		t.Fatalf("children: got %d, want %d", len(after), len(before)+1)
	}
	if !IsOverlay(after[0]) {
		t.Error("overlay should be the first child")
	}
	for i, c := range before {
		if after[i+1].ID() != c.ID() {
			t.Errorf("child %d moved", i)
		}
	}
	if v, _ := el.Attr("class"); v != "ad" {
		t.Errorf("class: got %q", v)
	}
	if v, _ := el.Attr("data-x"); v != "1" {
		t.Errorf("data-x: got %q", v)
	}
	if pos, _ := el.Position(); pos != "relative" {
		t.Errorf("position: got %q, want relative", pos)
	}
	r, _ := el.Rect()
	if r.Width != 300 || r.Height != 250 {
		t.Errorf("size changed: %+v", r)
	}
}

func TestAttach_KeepsNonStaticPosition(t *testing.T) {
	doc, m := setup(t)
	el := first(t, doc, "#placed")

	m.Attach(el)

	if pos, _ := el.Position(); pos != "absolute" {
		t.Errorf("position: got %q, want absolute", pos)
	}
}

func TestAttach_OverlayShape(t *testing.T) {
	doc, m := setup(t)
	el := first(t, doc, "#slot")
	m.Attach(el)

	node := overlays(doc, el)[0]
	if v, _ := node.Attr("aria-hidden"); v != "true" {
		t.Errorf("aria-hidden: got %q", v)
	}
	if pos, _ := node.Position(); pos != "absolute" {
		t.Errorf("overlay position: got %q", pos)
	}
	kids := doc.Children(node)
	if len(kids) != 1 {
		t.Fatalf("overlay children: got %d, want 1", len(kids))
	}
	img, ok := dom.AsElement(kids[0])
	if !ok || img.Tag() != "img" {
		t.Fatal("overlay should hold an img")
	}
	if v, _ := img.Attr("src"); v != testAsset {
		t.Errorf("src: got %q", v)
	}
	if v, ok := img.Attr("alt"); !ok || v != "" {
		t.Errorf("alt: got %q, %v; want empty and present", v, ok)
	}
}

func TestRemovalTrigger_RoundTrip(t *testing.T) {
	doc, m := setup(t)
	el := first(t, doc, "#slot")
	m.Attach(el)

	node := overlays(doc, el)[0]
	img := doc.Children(node)[0].(dom.Element)

	if prevented := doc.Dispatch(img, RemoveEvent); !prevented {
		t.Error("removal trigger should prevent the default action")
	}
	if m.Has(el) {
		t.Error("marker should be cleared")
	}
	if n := len(overlays(doc, el)); n != 0 {
		t.Errorf("overlay count after removal: got %d, want 0", n)
	}
	if node.Connected() {
		t.Error("overlay node should be detached")
	}
	if pos, _ := el.Position(); pos != "relative" {
		t.Errorf("position should stay relative, got %q", pos)
	}

	if !m.Attach(el) {
		t.Fatal("Attach after removal should create a new overlay")
	}
	if n := len(overlays(doc, el)); n != 1 {
		t.Errorf("overlay count after re-attach: got %d, want 1", n)
	}
}

func TestRemovalTrigger_OtherEventsIgnored(t *testing.T) {
	doc, m := setup(t)
	el := first(t, doc, "#slot")
	m.Attach(el)

	if doc.Dispatch(overlays(doc, el)[0], "click") {
		t.Error("click should not be prevented")
	}
	if !m.Has(el) {
		t.Error("click should not remove the overlay")
	}
}

func TestAttach_Hooks(t *testing.T) {
	doc, err := htmldoc.ParseString(testPage)
	if err != nil {
		t.Fatal(err)
	}
	var attached, detached []dom.ID
	m := New(Config{
		Doc:      doc,
		Asset:    testAsset,
		OnAttach: func(el dom.Element) { attached = append(attached, el.ID()) },
		OnDetach: func(el dom.Element) { detached = append(detached, el.ID()) },
	})
	el := first(t, doc, "#slot")

	m.Attach(el)
	m.Attach(el)
	doc.Dispatch(overlays(doc, el)[0], RemoveEvent)

	if len(attached) != 1 || attached[0] != el.ID() {
		t.Errorf("OnAttach calls: got %v", attached)
	}
	if len(detached) != 1 || detached[0] != el.ID() {
		t.Errorf("OnDetach calls: got %v", detached)
	}
}

func TestAttach_InvalidTargets(t *testing.T) {
	_, m := setup(t)
	if m.Attach(nil) {
		t.Error("Attach(nil) should be a no-op")
	}
	if m.Has(nil) {
		t.Error("Has(nil) should be false")
	}
}

func TestAttach_DetachedTargetRollsBackMarker(t *testing.T) {
	doc, err := htmldoc.ParseString(testPage)
	if err != nil {
		t.Fatal(err)
	}
	m := New(Config{Doc: failingDoc{doc}, Asset: testAsset})
	el := first(t, doc, "#slot")

	if m.Attach(el) {
		t.Error("Attach should fail when the host refuses the insertion")
	}
	if m.Has(el) {
		t.Error("marker should be rolled back")
	}
}

// failingDoc refuses every insertion.
type failingDoc struct{ *htmldoc.Document }

func (failingDoc) Prepend(parent, child dom.Element) error { return dom.ErrDetached }

// refusingDoc creates elements that reject one attribute.
type refusingDoc struct {
	*htmldoc.Document
	attr string
}

func (d refusingDoc) CreateElement(tag string) (dom.Element, error) {
	el, err := d.Document.CreateElement(tag)
	if err != nil {
		return nil, err
	}
	return refusingElement{Element: el, attr: d.attr}, nil
}

type refusingElement struct {
	dom.Element
	attr string
}

func (e refusingElement) SetAttr(name, value string) error {
	if name == e.attr {
		return errors.New("attribute refused")
	}
	return e.Element.SetAttr(name, value)
}

func TestAttach_RefusedAttributeRollsBackMarker(t *testing.T) {
	for _, attr := range []string{NodeAttr, "style", "src"} {
		t.Run(attr, func(t *testing.T) {
			doc, err := htmldoc.ParseString(testPage)
			if err != nil {
				t.Fatal(err)
			}
			attached := 0
			m := New(Config{
				Doc:      refusingDoc{Document: doc, attr: attr},
				Asset:    testAsset,
				OnAttach: func(dom.Element) { attached++ },
			})
			el := first(t, doc, "#slot")

			if m.Attach(el) {
				t.Error("Attach should fail when an overlay attribute is refused")
			}
			if m.Has(el) {
				t.Error("marker should be rolled back")
			}
			if n := len(overlays(doc, el)); n != 0 {
				t.Errorf("overlay count: got %d, want 0", n)
			}
			if attached != 0 {
				t.Errorf("OnAttach calls: got %d, want 0", attached)
			}
		})
	}
}
