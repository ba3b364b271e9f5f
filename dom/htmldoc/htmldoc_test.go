package htmldoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/adcover/dom"
)

const testHTML = `<html><body>
<div id="a" style="width: 300px; height: 250px; left: 10px; top: 20px">
<p>one</p><p>two</p>
</div>
<img id="pic" width="120" height="60">
<div id="hidden" hidden style="width: 300px; height: 300px"></div>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(testHTML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func mustFirst(t *testing.T, doc *Document, sel string) dom.Element {
	t.Helper()
	el, err := doc.First(sel)
	if err != nil {
		t.Fatalf("first %q: %v", sel, err)
	}
	return el
}

func TestRect(t *testing.T) {
	doc := mustParse(t)

	r, err := mustFirst(t, doc, "#a").Rect()
	if err != nil {
		t.Fatal(err)
	}
	if r != (dom.Rect{X: 10, Y: 20, Width: 300, Height: 250}) {
		t.Errorf("rect: got %+v", r)
	}

	r, _ = mustFirst(t, doc, "#pic").Rect()
	if r.Area() != 7200 {
		t.Errorf("attribute size area: got %v, want 7200", r.Area())
	}

	r, _ = mustFirst(t, doc, "#hidden").Rect()
	if r.Area() != 0 {
		t.Errorf("hidden area: got %v, want 0", r.Area())
	}
}

func TestRect_Detached(t *testing.T) {
	doc := mustParse(t)
	el, _ := doc.CreateElement("div")
	if _, err := el.Rect(); !errors.Is(err, dom.ErrDetached) {
		t.Errorf("Rect on detached: got %v, want ErrDetached", err)
	}
	if _, err := el.Position(); !errors.Is(err, dom.ErrDetached) {
		t.Errorf("Position on detached: got %v, want ErrDetached", err)
	}
}

func TestSetStyleKeepsOtherDeclarations(t *testing.T) {
	doc := mustParse(t)
	el := mustFirst(t, doc, "#a")

	if pos, _ := el.Position(); pos != "static" {
		t.Errorf("default position: got %q", pos)
	}
	el.SetStyle("position", "relative")
	if pos, _ := el.Position(); pos != "relative" {
		t.Errorf("position: got %q", pos)
	}
	r, _ := el.Rect()
	if r.Width != 300 {
		t.Errorf("width lost after SetStyle: %+v", r)
	}
}

func TestQueryAllExcludesScope(t *testing.T) {
	doc := mustParse(t)
	a := mustFirst(t, doc, "#a")

	found, err := doc.QueryAll(a, "div, p")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 {
		t.Fatalf("found: got %d, want 2", len(found))
	}
	for _, el := range found {
		if el.Tag() != "p" {
			t.Errorf("unexpected %s", el.Tag())
		}
	}
}

func TestQueryAll_InvalidSelector(t *testing.T) {
	doc := mustParse(t)
	root, _ := doc.Root()
	if _, err := doc.QueryAll(root, "p[["); err == nil {
		t.Error("expected selector error")
	}
}

func TestIdentityIsStable(t *testing.T) {
	doc := mustParse(t)
	a1 := mustFirst(t, doc, "#a")
	a2 := mustFirst(t, doc, "div")
	if a1.ID() != a2.ID() {
		t.Error("same node should keep the same ID across handles")
	}
	if a1.ID() == mustFirst(t, doc, "#pic").ID() {
		t.Error("different nodes should have different IDs")
	}
}

func TestPath(t *testing.T) {
	doc := mustParse(t)
	ps, _ := doc.QueryAll(mustFirst(t, doc, "#a"), "p")
	if got := ps[1].Path(); got != "/html/body/div[1]/p[2]" {
		t.Errorf("Path: got %q", got)
	}
}

func TestObserveAndFlush(t *testing.T) {
	doc := mustParse(t)
	root, _ := doc.Root()
	a := mustFirst(t, doc, "#a")

	var got []dom.MutationRecord
	doc.Observe(root, dom.ObserveOptions{Subtree: true, ChildList: true}, func(recs []dom.MutationRecord) {
		got = append(got, recs...)
	})

	doc.InsertHTML(a, `<span>x</span> tail`)
	if len(got) != 0 {
		t.Fatal("records must wait for Flush")
	}
	if n := doc.Flush(); n != 1 {
		t.Fatalf("Flush: got %d, want 1", n)
	}
	if len(got[0].Added) != 2 {
		t.Fatalf("added: got %d, want 2", len(got[0].Added))
	}
	if got[0].Added[0].Type() != dom.ElementNode || got[0].Added[1].Type() != dom.TextNode {
		t.Error("added node types out of order")
	}
	if got[0].Target.ID() != a.ID() {
		t.Error("target should be #a")
	}
}

func TestObserve_NoSubtree(t *testing.T) {
	doc := mustParse(t)
	root, _ := doc.Root()
	calls := 0
	doc.Observe(root, dom.ObserveOptions{ChildList: true}, func([]dom.MutationRecord) { calls++ })

	doc.InsertHTML(mustFirst(t, doc, "#a"), `<span></span>`)
	doc.Flush()
	if calls != 0 {
		t.Error("deep insert should not be reported without Subtree")
	}
}

func TestDispatchBubbles(t *testing.T) {
	doc := mustParse(t)
	a := mustFirst(t, doc, "#a")
	p := mustFirst(t, doc, "p")

	fired := 0
	doc.Listen(a, "contextmenu", dom.ListenOptions{PreventDefault: true}, func() { fired++ })

	if !doc.Dispatch(p, "contextmenu") {
		t.Error("bubbled listener should prevent default")
	}
	if doc.Dispatch(p, "click") {
		t.Error("click has no listener")
	}
	if fired != 1 {
		t.Errorf("fired: got %d, want 1", fired)
	}
}

func TestRemoveAndRender(t *testing.T) {
	doc := mustParse(t)
	pic := mustFirst(t, doc, "#pic")
	if err := doc.Remove(pic); err != nil {
		t.Fatal(err)
	}
	if pic.Connected() {
		t.Error("removed node should be disconnected")
	}
	if err := doc.Remove(pic); !errors.Is(err, dom.ErrDetached) {
		t.Errorf("second Remove: got %v", err)
	}
	if strings.Contains(string(doc.HTML()), `id="pic"`) {
		t.Error("rendered HTML still contains removed node")
	}
}

func TestPrependIntoSelfRejected(t *testing.T) {
	doc := mustParse(t)
	a := mustFirst(t, doc, "#a")
	p := mustFirst(t, doc, "p")
	if err := doc.Prepend(p, a); err == nil {
		t.Error("inserting an ancestor into its descendant should fail")
	}
}
