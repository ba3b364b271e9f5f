// CLAUDE:SUMMARY dom.Document over a live rod page: CDP child-list events, Runtime binding listeners, one task loop.
// Package pagedom implements dom.Document over a live Chrome tab driven by
// go-rod. DOM.childNodeInserted/Removed events are debounced into mutation
// records; element listeners forward events to Go through a Runtime
// binding. Records, listener callbacks and Do tasks all run on a single
// loop goroutine, which is the document's task queue.
package pagedom

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/adcover/dom"
)

// Config for opening a Document.
type Config struct {
	Page *rod.Page

	// DebounceWindow batches CDP events. Default: 50ms.
	DebounceWindow time.Duration
	// DebounceMax flushes early at this many pending events. Default: 500.
	DebounceMax int

	// OnReset runs on the task loop after the page replaced its document
	// (navigation, document.write). Element handles taken before are stale.
	OnReset func()

	Logger *slog.Logger
}

// Document is a live page.
type Document struct {
	page    *rod.Page
	logger  *slog.Logger
	onReset func()

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	rawCh   chan change
	resetCh chan struct{}
	tasks   chan func()

	// Loop-owned state.
	debouncer *debouncer
	nodes     *nodeMap
	departed  map[proto.DOMNodeID]nodeInfo

	listeners *listenerSet

	mu        sync.Mutex
	observers []*subscription

	token     atomic.Uint64
	synthetic atomic.Uint64
}

type subscription struct {
	root dom.ID
	opts dom.ObserveOptions
	fn   func([]dom.MutationRecord)
}

// Open enables DOM tracking on the page and starts the task loop. The
// document stops when ctx is cancelled or Close is called.
func Open(ctx context.Context, cfg Config) (*Document, error) {
	if cfg.Page == nil {
		return nil, fmt.Errorf("pagedom: nil page")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	d := &Document{
		page:      cfg.Page.Context(ctx),
		logger:    cfg.Logger,
		onReset:   cfg.OnReset,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		rawCh:     make(chan change, 4096),
		resetCh:   make(chan struct{}, 1),
		tasks:     make(chan func()),
		nodes:     newNodeMap(),
		departed:  make(map[proto.DOMNodeID]nodeInfo),
		listeners: newListenerSet(),
	}
	d.debouncer = newDebouncer(debounceConfig{
		Window:    cfg.DebounceWindow,
		MaxBuffer: cfg.DebounceMax,
	}, d.deliver)

	if err := (proto.DOMEnable{}).Call(d.page); err != nil {
		cancel()
		return nil, fmt.Errorf("pagedom: DOM.enable: %w", err)
	}
	if err := d.track(); err != nil {
		cancel()
		return nil, err
	}
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(d.page); err != nil {
		d.logger.Warn("pagedom: addBinding failed (may already exist)", "error", err)
	}

	go d.listen()
	go d.loop()
	return d, nil
}

// Close stops the loop. Pending records are dropped.
func (d *Document) Close() {
	d.cancel()
	<-d.done
}

// Done is closed once the loop has stopped.
func (d *Document) Done() <-chan struct{} { return d.done }

// HTML serialises the live document.
func (d *Document) HTML(ctx context.Context) ([]byte, error) {
	res, err := d.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("pagedom: get DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// track calls DOM.getDocument with depth=-1. Without it CDP only reports
// mutations under nodes the client has already seen.
func (d *Document) track() error {
	depth := -1
	doc, err := proto.DOMGetDocument{Depth: &depth, Pierce: true}.Call(d.page)
	if err != nil {
		return fmt.Errorf("pagedom: DOM.getDocument: %w", err)
	}
	d.nodes.build(doc.Root)
	d.logger.Debug("pagedom: DOM tracking initialised", "nodes", d.nodes.size())
	return nil
}

func (d *Document) listen() {
	d.page.EachEvent(
		func(e *proto.DOMChildNodeInserted) {
			d.push(change{parent: e.ParentNodeID, added: e.Node})
		},
		func(e *proto.DOMChildNodeRemoved) {
			d.push(change{parent: e.ParentNodeID, removed: e.NodeID})
		},
		func(e *proto.DOMSetChildNodes) {
			d.push(change{kind: kindChildren, parent: e.ParentID, children: e.Nodes})
		},
		func(e *proto.DOMChildNodeCountUpdated) {
			d.push(change{kind: kindCount, parent: e.NodeID})
		},
		func(e *proto.DOMDocumentUpdated) {
			select {
			case d.resetCh <- struct{}{}:
			default:
			}
		},
		func(e *proto.RuntimeBindingCalled) {
			if e.Name != bindingName {
				return
			}
			var msg struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal([]byte(e.Payload), &msg); err != nil {
				d.logger.Warn("pagedom: parse binding payload", "error", err)
				return
			}
			fn := d.listeners.get(msg.Token)
			if fn == nil {
				return
			}
			select {
			case d.tasks <- fn:
			case <-d.ctx.Done():
			}
		},
	)()
}

func (d *Document) push(c change) {
	select {
	case d.rawCh <- c:
	case <-d.ctx.Done():
	}
}

func (d *Document) loop() {
	defer close(d.done)
	for {
		select {
		case <-d.ctx.Done():
			return

		case c := <-d.rawCh:
			d.apply(c)

		case <-d.debouncer.timerC():
			d.debouncer.flush()

		case <-d.resetCh:
			d.reset()

		case fn := <-d.tasks:
			d.run(fn)
		}
	}
}

// apply feeds one raw event into the node map and the debouncer.
//
// Chrome sends an inserted node without its children and does not report
// later insertions below it until they are requested, so every inserted
// element gets a DOM.requestChildNodes. A count update means a subtree
// slipped through before the request landed; its fresh children come back
// through setChildNodes and are reported as insertions.
func (d *Document) apply(c change) {
	switch c.kind {
	case kindChildren:
		for _, n := range d.nodes.setChildren(c.parent, c.children) {
			d.debouncer.add(change{parent: c.parent, added: n})
		}
	case kindCount:
		if d.nodes.expect(c.parent, refresh) {
			d.requestChildren(c.parent)
		}
	default:
		if c.added != nil {
			d.nodes.addUnder(c.parent, c.added)
			if c.added.NodeType == int(dom.ElementNode) && d.nodes.expect(c.added.NodeID, baseline) {
				d.requestChildren(c.added.NodeID)
			}
		} else if info, below, ok := d.nodes.removeTree(c.removed); ok {
			d.departed[c.removed] = info
			d.listeners.dropOwner(dom.ID(info.backend))
			for _, b := range below {
				d.listeners.dropOwner(dom.ID(b))
			}
		}
		d.debouncer.add(c)
	}
}

// requestChildren asks Chrome for the whole subtree of id. The answer
// arrives as DOM.setChildNodes.
func (d *Document) requestChildren(id proto.DOMNodeID) {
	go func() {
		depth := -1
		err := proto.DOMRequestChildNodes{NodeID: id, Depth: &depth, Pierce: true}.Call(d.page)
		if err != nil && d.ctx.Err() == nil {
			d.logger.Debug("pagedom: request child nodes", "node", id, "error", err)
		}
	}()
}

func (d *Document) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("pagedom: task panicked", "panic", r)
		}
	}()
	fn()
}

func (d *Document) reset() {
	d.debouncer.changes = d.debouncer.changes[:0]
	d.debouncer.flush()
	clear(d.departed)
	d.listeners.reset()
	if err := d.track(); err != nil {
		d.logger.Error("pagedom: re-track after document update", "error", err)
		return
	}
	if d.onReset != nil {
		d.run(d.onReset)
	}
}

// deliver resolves a flushed batch into records and hands it to every
// subscription. Runs on the loop.
func (d *Document) deliver(entries []batchEntry) {
	defer clear(d.departed)

	records := make([]dom.MutationRecord, 0, len(entries))
	for _, e := range entries {
		rec := dom.MutationRecord{}
		if target, err := d.resolve(e.parent); err == nil {
			rec.Target = target
		}
		for _, n := range e.added {
			node, err := d.fromNode(n)
			if err != nil {
				d.logger.Debug("pagedom: resolve inserted node", "node", n.NodeID, "error", err)
				continue
			}
			rec.Added = append(rec.Added, node)
		}
		for _, id := range e.removed {
			info, ok := d.departed[id]
			if !ok {
				continue
			}
			rec.Removed = append(rec.Removed, &leaf{id: dom.ID(info.backend), typ: dom.NodeType(info.typ)})
		}
		if len(rec.Added) == 0 && len(rec.Removed) == 0 {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return
	}

	d.mu.Lock()
	subs := append([]*subscription(nil), d.observers...)
	d.mu.Unlock()

	for _, s := range subs {
		batch := records
		if !s.opts.Subtree {
			batch = nil
			for _, r := range records {
				if r.Target != nil && r.Target.ID() == s.root {
					batch = append(batch, r)
				}
			}
		}
		if len(batch) > 0 && s.opts.ChildList {
			d.run(func() { s.fn(batch) })
		}
	}
}

// Root returns the document element.
func (d *Document) Root() (dom.Element, error) {
	el, err := d.page.ElementByJS(rod.Eval(jsRoot))
	if err != nil {
		return nil, fmt.Errorf("pagedom: root: %w", err)
	}
	return d.wrap(el, 0, "html"), nil
}

// QueryAll runs querySelectorAll on scope.
func (d *Document) QueryAll(scope dom.Element, selector string) ([]dom.Element, error) {
	s, err := d.unwrap(scope)
	if err != nil {
		return nil, err
	}
	found, err := s.el.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("pagedom: query %q: %w", selector, err)
	}
	out := make([]dom.Element, 0, len(found))
	for _, el := range found {
		out = append(out, d.wrap(el, 0, ""))
	}
	return out, nil
}

// Matches calls Element.matches.
func (d *Document) Matches(el dom.Element, selector string) (bool, error) {
	e, err := d.unwrap(el)
	if err != nil {
		return false, err
	}
	ok, err := e.el.Matches(selector)
	if err != nil {
		return false, fmt.Errorf("pagedom: matches %q: %w", selector, err)
	}
	return ok, nil
}

// CreateElement creates a detached element in the page.
func (d *Document) CreateElement(tag string) (dom.Element, error) {
	obj, err := d.page.Evaluate(rod.Eval(jsCreate, tag).ByObject())
	if err != nil {
		return nil, fmt.Errorf("pagedom: create %s: %w", tag, err)
	}
	el, err := d.page.ElementFromObject(obj)
	if err != nil {
		return nil, fmt.Errorf("pagedom: create %s: %w", tag, err)
	}
	return d.wrap(el, 0, tag), nil
}

// Prepend inserts child before parent's first child.
func (d *Document) Prepend(parent, child dom.Element) error {
	return d.insert(jsPrepend, parent, child)
}

// Append inserts child after parent's last child.
func (d *Document) Append(parent, child dom.Element) error {
	return d.insert(jsAppend, parent, child)
}

func (d *Document) insert(js string, parent, child dom.Element) error {
	p, err := d.unwrap(parent)
	if err != nil {
		return err
	}
	c, err := d.unwrap(child)
	if err != nil {
		return err
	}
	if !p.Connected() {
		return dom.ErrDetached
	}
	if _, err := p.el.Eval(js, c.el.Object); err != nil {
		return fmt.Errorf("pagedom: insert: %w", err)
	}
	return nil
}

// Remove detaches node from its parent.
func (d *Document) Remove(node dom.Element) error {
	e, err := d.unwrap(node)
	if err != nil {
		return err
	}
	if !e.Connected() {
		return dom.ErrDetached
	}
	if err := e.el.Remove(); err != nil {
		return fmt.Errorf("pagedom: remove: %w", err)
	}
	return nil
}

// Listen registers fn for event on el. The page-side listener calls
// preventDefault itself when asked and then notifies Go.
func (d *Document) Listen(el dom.Element, event string, opts dom.ListenOptions, fn func()) error {
	e, err := d.unwrap(el)
	if err != nil {
		return err
	}
	token := strconv.FormatUint(d.token.Add(1), 10)

	owner := e.ID()
	d.listeners.add(token, owner, fn)

	if _, err := e.el.Eval(jsListen, event, token, opts.PreventDefault); err != nil {
		d.listeners.drop(token, owner)
		return fmt.Errorf("pagedom: listen %s: %w", event, err)
	}
	return nil
}

// Observe subscribes fn to child-list records. With Subtree set the whole
// document is reported; CDP has no cheaper way to scope events.
func (d *Document) Observe(root dom.Element, opts dom.ObserveOptions, fn func([]dom.MutationRecord)) error {
	if root == nil {
		return fmt.Errorf("pagedom: observe: nil root")
	}
	d.mu.Lock()
	d.observers = append(d.observers, &subscription{root: root.ID(), opts: opts, fn: fn})
	d.mu.Unlock()
	return nil
}

// Do runs fn on the task loop and waits. Returns early if the document
// stops first.
func (d *Document) Do(fn func()) {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case d.tasks <- task:
	case <-d.ctx.Done():
		return
	}
	select {
	case <-done:
	case <-d.ctx.Done():
	}
}

// resolve turns a CDP node id into an element handle.
func (d *Document) resolve(id proto.DOMNodeID) (dom.Element, error) {
	res, err := proto.DOMResolveNode{NodeID: id}.Call(d.page)
	if err != nil {
		return nil, err
	}
	el, err := d.page.ElementFromObject(res.Object)
	if err != nil {
		return nil, err
	}
	info, _ := d.nodes.get(id)
	return d.wrap(el, dom.ID(info.backend), info.tag), nil
}

func (d *Document) fromNode(n *proto.DOMNode) (dom.Node, error) {
	if n.NodeType != int(dom.ElementNode) {
		return &leaf{id: dom.ID(n.BackendNodeID), typ: dom.NodeType(n.NodeType)}, nil
	}
	el, err := d.page.ElementFromNode(n)
	if err != nil {
		return nil, err
	}
	return d.wrap(el, dom.ID(n.BackendNodeID), n.NodeName), nil
}

func (d *Document) unwrap(el dom.Element) (*element, error) {
	e, ok := el.(*element)
	if !ok || e == nil || e.doc != d {
		return nil, fmt.Errorf("pagedom: foreign element: %w", dom.ErrNotElement)
	}
	return e, nil
}

// leaf is a non-element node, or a node that has left the document.
type leaf struct {
	id  dom.ID
	typ dom.NodeType
}

func (l *leaf) ID() dom.ID         { return l.id }
func (l *leaf) Type() dom.NodeType { return l.typ }
