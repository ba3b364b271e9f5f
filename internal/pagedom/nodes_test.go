package pagedom

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestNodeMap_BuildWalksTree(t *testing.T) {
	nm := newNodeMap()
	nm.build(&proto.DOMNode{
		NodeID: 1, BackendNodeID: 101, NodeType: 9, NodeName: "#document",
		Children: []*proto.DOMNode{{
			NodeID: 2, BackendNodeID: 102, NodeType: 1, NodeName: "HTML",
			Children: []*proto.DOMNode{{
				NodeID: 3, BackendNodeID: 103, NodeType: 1, NodeName: "IFRAME",
				ContentDocument: &proto.DOMNode{NodeID: 4, BackendNodeID: 104, NodeType: 9},
			}},
		}},
	})

	if nm.size() != 4 {
		t.Fatalf("size: got %d, want 4", nm.size())
	}
	info, ok := nm.get(3)
	if !ok || info.backend != 103 || info.tag != "iframe" {
		t.Errorf("iframe: got %+v, %v", info, ok)
	}
}

func TestNodeMap_Remove(t *testing.T) {
	nm := newNodeMap()
	nm.add(&proto.DOMNode{NodeID: 7, BackendNodeID: 70, NodeType: 1, NodeName: "DIV"})

	info, ok := nm.remove(7)
	if !ok || info.backend != 70 {
		t.Fatalf("remove: got %+v, %v", info, ok)
	}
	if _, ok := nm.remove(7); ok {
		t.Error("second remove should miss")
	}
}

func TestNodeMap_BuildResets(t *testing.T) {
	nm := newNodeMap()
	nm.add(&proto.DOMNode{NodeID: 7, BackendNodeID: 70})
	nm.build(&proto.DOMNode{NodeID: 1, BackendNodeID: 10})
	if _, ok := nm.get(7); ok {
		t.Error("build should drop nodes from the previous document")
	}
}

func TestNodeMap_BaselineChildrenAreNotInsertions(t *testing.T) {
	nm := newNodeMap()
	wrapper := &proto.DOMNode{NodeID: 10, BackendNodeID: 100, NodeType: 1, NodeName: "DIV"}
	nm.add(wrapper)

	if !nm.expect(10, baseline) {
		t.Fatal("first expect should ask for a request")
	}
	if nm.expect(10, refresh) {
		t.Error("a request is already outstanding")
	}

	got := nm.setChildren(10, []*proto.DOMNode{
		{NodeID: 11, BackendNodeID: 110, NodeType: 1, NodeName: "P"},
	})
	if len(got) != 0 {
		t.Errorf("baseline: got %d insertions, want 0", len(got))
	}
	if _, ok := nm.get(11); !ok {
		t.Error("baseline children should be tracked")
	}
}

func TestNodeMap_RefreshReportsUnknownChildren(t *testing.T) {
	nm := newNodeMap()
	nm.add(&proto.DOMNode{
		NodeID: 10, BackendNodeID: 100, NodeType: 1, NodeName: "DIV",
		Children: []*proto.DOMNode{{NodeID: 11, BackendNodeID: 110, NodeType: 1, NodeName: "P"}},
	})

	// A script appended an iframe below the wrapper before its children
	// were requested: Chrome only reports the count change.
	if !nm.expect(10, refresh) {
		t.Fatal("expect refresh")
	}
	got := nm.setChildren(10, []*proto.DOMNode{
		{NodeID: 11, BackendNodeID: 110, NodeType: 1, NodeName: "P"},
		{NodeID: 12, BackendNodeID: 120, NodeType: 1, NodeName: "IFRAME"},
	})
	if len(got) != 1 || got[0].NodeID != 12 {
		t.Fatalf("insertions: got %+v, want the iframe", got)
	}
	if info, ok := nm.get(12); !ok || info.tag != "iframe" {
		t.Errorf("iframe: got %+v, %v", info, ok)
	}

	// The request is settled; a later count change asks again.
	if !nm.expect(10, refresh) {
		t.Error("expect after settle should ask again")
	}
}

func TestNodeMap_UnsolicitedChildrenAreNotInsertions(t *testing.T) {
	nm := newNodeMap()
	got := nm.setChildren(5, []*proto.DOMNode{{NodeID: 6, BackendNodeID: 60, NodeType: 1, NodeName: "SPAN"}})
	if len(got) != 0 {
		t.Errorf("got %d insertions, want 0", len(got))
	}
}

func TestNodeMap_RemoveDropsPendingRequest(t *testing.T) {
	nm := newNodeMap()
	nm.add(&proto.DOMNode{NodeID: 7, BackendNodeID: 70, NodeType: 1, NodeName: "DIV"})
	nm.expect(7, baseline)
	nm.remove(7)
	if !nm.expect(7, refresh) {
		t.Error("removed node should not keep its pending request")
	}
}

func TestNodeMap_RemoveTreeReportsDescendants(t *testing.T) {
	nm := newNodeMap()
	nm.addUnder(1, &proto.DOMNode{
		NodeID: 10, BackendNodeID: 100, NodeType: 1, NodeName: "DIV",
		Children: []*proto.DOMNode{{
			NodeID: 11, BackendNodeID: 110, NodeType: 1, NodeName: "DIV",
			Children: []*proto.DOMNode{{NodeID: 12, BackendNodeID: 120, NodeType: 1, NodeName: "IMG"}},
		}},
	})
	nm.addUnder(1, &proto.DOMNode{NodeID: 20, BackendNodeID: 200, NodeType: 1, NodeName: "P"})

	info, below, ok := nm.removeTree(10)
	if !ok || info.backend != 100 {
		t.Fatalf("removeTree: got %+v, %v", info, ok)
	}
	got := map[proto.DOMBackendNodeID]bool{}
	for _, b := range below {
		got[b] = true
	}
	if len(below) != 2 || !got[110] || !got[120] {
		t.Errorf("descendants: got %v, want 110 and 120", below)
	}
	if nm.size() != 1 {
		t.Errorf("size: got %d, want 1 (the sibling)", nm.size())
	}
	if _, ok := nm.get(20); !ok {
		t.Error("sibling should survive")
	}
}
