package htmldoc

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/adcover/dom"
)

type subscription struct {
	root    *html.Node
	opts    dom.ObserveOptions
	fn      func([]dom.MutationRecord)
	pending []dom.MutationRecord
}

type listener struct {
	event string
	opts  dom.ListenOptions
	fn    func()
}

// Observe implements dom.Document. Records are queued until Flush.
func (d *Document) Observe(root dom.Element, opts dom.ObserveOptions, fn func([]dom.MutationRecord)) error {
	n, err := d.unwrap(root)
	if err != nil {
		return err
	}
	d.observers = append(d.observers, &subscription{root: n, opts: opts, fn: fn})
	return nil
}

// Flush delivers queued mutation records, one batch per subscription, and
// returns how many records were delivered. Records produced by callbacks
// are queued for the next Flush.
func (d *Document) Flush() int {
	delivered := 0
	for _, s := range d.observers {
		if len(s.pending) == 0 {
			continue
		}
		batch := s.pending
		s.pending = nil
		delivered += len(batch)
		s.fn(batch)
	}
	return delivered
}

// Pending reports how many records wait for the next Flush.
func (d *Document) Pending() int {
	total := 0
	for _, s := range d.observers {
		total += len(s.pending)
	}
	return total
}

func (d *Document) record(target *html.Node, added, removed []*html.Node) {
	if len(d.observers) == 0 {
		return
	}
	var rec *dom.MutationRecord
	for _, s := range d.observers {
		if !s.opts.ChildList || !s.covers(target) {
			continue
		}
		if rec == nil {
			rec = &dom.MutationRecord{Target: d.wrap(target)}
			for _, n := range added {
				rec.Added = append(rec.Added, d.node(n))
			}
			for _, n := range removed {
				rec.Removed = append(rec.Removed, d.node(n))
			}
		}
		s.pending = append(s.pending, *rec)
	}
}

func (s *subscription) covers(target *html.Node) bool {
	if target == s.root {
		return true
	}
	return s.opts.Subtree && isAncestor(s.root, target)
}

// Listen implements dom.Document.
func (d *Document) Listen(el dom.Element, event string, opts dom.ListenOptions, fn func()) error {
	n, err := d.unwrap(el)
	if err != nil {
		return err
	}
	d.listeners[n] = append(d.listeners[n], listener{event: event, opts: opts, fn: fn})
	return nil
}

// Dispatch fires event at el and bubbles it through el's ancestors. It
// reports whether any listener prevented the default action.
func (d *Document) Dispatch(el dom.Element, event string) bool {
	n, err := d.unwrap(el)
	if err != nil {
		return false
	}
	var path []*html.Node
	for p := n; p != nil; p = p.Parent {
		path = append(path, p)
	}
	prevented := false
	for _, p := range path {
		ls := append([]listener(nil), d.listeners[p]...)
		for _, l := range ls {
			if l.event != event {
				continue
			}
			if l.opts.PreventDefault {
				prevented = true
			}
			l.fn()
		}
	}
	return prevented
}
