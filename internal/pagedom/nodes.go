package pagedom

import (
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// nodeInfo is what CDP told us about a node when it was first seen.
type nodeInfo struct {
	backend proto.DOMBackendNodeID
	parent  proto.DOMNodeID
	typ     int
	tag     string
}

// request is why DOM.requestChildNodes was sent for a node.
type request uint8

const (
	// baseline: the node was just inserted; its children came with it.
	baseline request = iota + 1
	// refresh: Chrome only reported a child count change; children not
	// seen before are insertions.
	refresh
)

// nodeMap tracks CDP node ids to their backend ids. Removal events carry
// only the node id, so this is the only way to name a removed node. It
// also tracks outstanding DOM.requestChildNodes calls. Owned by the loop
// goroutine.
type nodeMap struct {
	nodes   map[proto.DOMNodeID]nodeInfo
	kids    map[proto.DOMNodeID]map[proto.DOMNodeID]struct{}
	pending map[proto.DOMNodeID]request
}

func newNodeMap() *nodeMap {
	return &nodeMap{
		nodes:   make(map[proto.DOMNodeID]nodeInfo),
		kids:    make(map[proto.DOMNodeID]map[proto.DOMNodeID]struct{}),
		pending: make(map[proto.DOMNodeID]request),
	}
}

// build replaces the map with the tree returned by DOM.getDocument.
func (nm *nodeMap) build(root *proto.DOMNode) {
	nm.nodes = make(map[proto.DOMNodeID]nodeInfo)
	nm.kids = make(map[proto.DOMNodeID]map[proto.DOMNodeID]struct{})
	nm.pending = make(map[proto.DOMNodeID]request)
	nm.add(root)
}

// expect records a child request for id. It reports false when one is
// already outstanding, in which case no new request should be sent.
func (nm *nodeMap) expect(id proto.DOMNodeID, why request) bool {
	if _, ok := nm.pending[id]; ok {
		return false
	}
	nm.pending[id] = why
	return true
}

// setChildren records the children reported by DOM.setChildNodes and
// returns the ones that are insertions: unknown children of a node whose
// request was a refresh. Unsolicited lists and baselines only feed the map.
func (nm *nodeMap) setChildren(parent proto.DOMNodeID, children []*proto.DOMNode) []*proto.DOMNode {
	why := nm.pending[parent]
	delete(nm.pending, parent)

	var inserted []*proto.DOMNode
	for _, c := range children {
		if _, known := nm.nodes[c.NodeID]; !known && why == refresh {
			inserted = append(inserted, c)
		}
		nm.addUnder(parent, c)
	}
	return inserted
}

// add records node and its known descendants, shadow roots and frame
// documents included.
func (nm *nodeMap) add(node *proto.DOMNode) {
	if node == nil {
		return
	}
	nm.addUnder(node.ParentID, node)
}

// addUnder is add for events that name the parent separately.
func (nm *nodeMap) addUnder(parent proto.DOMNodeID, node *proto.DOMNode) {
	if node == nil {
		return
	}
	nm.nodes[node.NodeID] = nodeInfo{
		backend: node.BackendNodeID,
		parent:  parent,
		typ:     node.NodeType,
		tag:     strings.ToLower(node.NodeName),
	}
	if parent != 0 {
		set := nm.kids[parent]
		if set == nil {
			set = make(map[proto.DOMNodeID]struct{})
			nm.kids[parent] = set
		}
		set[node.NodeID] = struct{}{}
	}
	for _, c := range node.Children {
		nm.addUnder(node.NodeID, c)
	}
	for _, sr := range node.ShadowRoots {
		nm.addUnder(node.NodeID, sr)
	}
	nm.addUnder(node.NodeID, node.ContentDocument)
}

func (nm *nodeMap) get(id proto.DOMNodeID) (nodeInfo, bool) {
	info, ok := nm.nodes[id]
	return info, ok
}

func (nm *nodeMap) remove(id proto.DOMNodeID) (nodeInfo, bool) {
	info, _, ok := nm.removeTree(id)
	return info, ok
}

// removeTree forgets id and every descendant still tracked under it. It
// returns the backend ids of the descendants alongside the node itself.
func (nm *nodeMap) removeTree(id proto.DOMNodeID) (nodeInfo, []proto.DOMBackendNodeID, bool) {
	info, ok := nm.nodes[id]
	if ok {
		if set := nm.kids[info.parent]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(nm.kids, info.parent)
			}
		}
	}
	var below []proto.DOMBackendNodeID
	nm.forget(id, &below)
	delete(nm.nodes, id)
	delete(nm.pending, id)
	return info, below, ok
}

func (nm *nodeMap) forget(id proto.DOMNodeID, below *[]proto.DOMBackendNodeID) {
	for kid := range nm.kids[id] {
		if info, ok := nm.nodes[kid]; ok {
			*below = append(*below, info.backend)
			delete(nm.nodes, kid)
		}
		delete(nm.pending, kid)
		nm.forget(kid, below)
	}
	delete(nm.kids, id)
}

func (nm *nodeMap) size() int { return len(nm.nodes) }
