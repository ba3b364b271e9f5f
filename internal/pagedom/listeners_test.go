package pagedom

import "testing"

func TestListenerSet_DropOwner(t *testing.T) {
	ls := newListenerSet()
	calls := 0
	ls.add("1", 100, func() { calls++ })
	ls.add("2", 100, func() { calls++ })
	ls.add("3", 200, func() { calls++ })

	ls.get("1")()
	if calls != 1 {
		t.Fatalf("calls: got %d", calls)
	}

	if n := ls.dropOwner(100); n != 2 {
		t.Errorf("dropOwner: got %d, want 2", n)
	}
	if ls.get("1") != nil || ls.get("2") != nil {
		t.Error("tokens of a removed node should be gone")
	}
	if ls.get("3") == nil {
		t.Error("other nodes keep their listeners")
	}
	if ls.size() != 1 {
		t.Errorf("size: got %d, want 1", ls.size())
	}
	if n := ls.dropOwner(100); n != 0 {
		t.Errorf("second dropOwner: got %d", n)
	}
}

func TestListenerSet_Drop(t *testing.T) {
	ls := newListenerSet()
	ls.add("1", 100, func() {})
	ls.add("2", 100, func() {})
	ls.drop("1", 100)
	if ls.get("1") != nil || ls.get("2") == nil {
		t.Error("drop should only forget its token")
	}
	ls.drop("2", 100)
	if ls.size() != 0 || len(ls.byOwner) != 0 {
		t.Errorf("left: %d tokens, %d owners", ls.size(), len(ls.byOwner))
	}
}

func TestListenerSet_Reset(t *testing.T) {
	ls := newListenerSet()
	ls.add("1", 100, func() {})
	ls.reset()
	if ls.size() != 0 {
		t.Errorf("size after reset: got %d", ls.size())
	}
}
