package event

import (
	"strings"
	"testing"
)

func TestDecode_Overlay(t *testing.T) {
	line, err := Wrap(TypeOverlay, Overlay{ID: "o1", PageID: "p", Seq: 3, Action: Removed, Reason: "iframe"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(line), `{"type":"overlay","data":{`) {
		t.Errorf("frame: got %s", line)
	}

	v, err := Decode(line)
	if err != nil {
		t.Fatal(err)
	}
	o, ok := v.(*Overlay)
	if !ok {
		t.Fatalf("Decode: got %T, want *Overlay", v)
	}
	if o.Action != Removed || o.Seq != 3 || o.Reason != "iframe" {
		t.Errorf("overlay: got %+v", o)
	}
}

func TestDecode_Report(t *testing.T) {
	line, _ := Wrap(TypeReport, Report{URL: "http://a/", Candidates: 2})
	v, err := Decode(line)
	if err != nil {
		t.Fatal(err)
	}
	if r, ok := v.(*Report); !ok || r.Candidates != 2 {
		t.Errorf("Decode: got %#v", v)
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, line := range []string{`not json`, `{"type":"batch","data":{}}`, `{"type":"overlay","data":[1]}`} {
		if _, err := Decode([]byte(line)); err == nil {
			t.Errorf("Decode(%s): expected error", line)
		}
	}
}

func TestHashHTML(t *testing.T) {
	h1 := HashHTML([]byte("<html></html>"))
	if h1 != HashHTML([]byte("<html></html>")) {
		t.Error("HashHTML not deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("HashHTML length: got %d, want 64", len(h1))
	}
	if h1 == HashHTML([]byte("<html> </html>")) {
		t.Error("different input, same hash")
	}
}
