package pagedom

import (
	"sync"

	"github.com/hazyhaar/adcover/dom"
)

// listenerSet maps binding tokens to Go callbacks, indexed by the node
// the page-side listener sits on so a removed node takes its callbacks
// with it.
type listenerSet struct {
	mu      sync.Mutex
	byToken map[string]func()
	byOwner map[dom.ID][]string
}

func newListenerSet() *listenerSet {
	return &listenerSet{
		byToken: make(map[string]func()),
		byOwner: make(map[dom.ID][]string),
	}
}

func (ls *listenerSet) add(token string, owner dom.ID, fn func()) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.byToken[token] = fn
	ls.byOwner[owner] = append(ls.byOwner[owner], token)
}

func (ls *listenerSet) get(token string) func() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.byToken[token]
}

// drop forgets one token; used when the page-side listener never got
// installed.
func (ls *listenerSet) drop(token string, owner dom.ID) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.byToken, token)
	tokens := ls.byOwner[owner]
	for i, t := range tokens {
		if t == token {
			tokens = append(tokens[:i], tokens[i+1:]...)
			break
		}
	}
	if len(tokens) == 0 {
		delete(ls.byOwner, owner)
	} else {
		ls.byOwner[owner] = tokens
	}
}

// dropOwner forgets every callback registered on owner.
func (ls *listenerSet) dropOwner(owner dom.ID) int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	tokens := ls.byOwner[owner]
	for _, t := range tokens {
		delete(ls.byToken, t)
	}
	delete(ls.byOwner, owner)
	return len(tokens)
}

func (ls *listenerSet) size() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.byToken)
}

// reset forgets everything; the page replaced its document.
func (ls *listenerSet) reset() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	clear(ls.byToken)
	clear(ls.byOwner)
}
