package pagedom

import (
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// changeKind separates mutations from the bookkeeping events that share
// the loop's queue.
type changeKind uint8

const (
	kindMutation changeKind = iota // childNodeInserted / childNodeRemoved
	kindChildren                   // setChildNodes
	kindCount                      // childNodeCountUpdated
)

// change is one raw CDP DOM event. Only kindMutation reaches the debouncer.
type change struct {
	kind     changeKind
	parent   proto.DOMNodeID
	added    *proto.DOMNode   // childNodeInserted
	removed  proto.DOMNodeID  // childNodeRemoved
	children []*proto.DOMNode // setChildNodes
}

// debounceConfig controls the batching behaviour.
type debounceConfig struct {
	// Window is the debounce time. Default: 50ms.
	Window time.Duration
	// MaxBuffer flushes immediately when this many changes accumulate. Default: 500.
	MaxBuffer int
}

func (dc *debounceConfig) defaults() {
	if dc.Window <= 0 {
		dc.Window = 50 * time.Millisecond
	}
	if dc.MaxBuffer <= 0 {
		dc.MaxBuffer = 500
	}
}

// debouncer collects CDP changes and emits one notification batch when the
// window expires or the buffer fills. It is owned by the document loop.
type debouncer struct {
	cfg     debounceConfig
	changes []change
	timer   *time.Timer
	timerCh <-chan time.Time
	flushFn func([]batchEntry)
}

func newDebouncer(cfg debounceConfig, flushFn func([]batchEntry)) *debouncer {
	cfg.defaults()
	return &debouncer{
		cfg:     cfg,
		changes: make([]change, 0, cfg.MaxBuffer),
		flushFn: flushFn,
	}
}

// add buffers a change. Returns true if the buffer filled and was flushed.
func (d *debouncer) add(c change) bool {
	d.changes = append(d.changes, c)

	if len(d.changes) >= d.cfg.MaxBuffer {
		d.flush()
		return true
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.cfg.Window)
	d.timerCh = d.timer.C
	return false
}

// timerC fires when the debounce window expires. Nil while idle.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

func (d *debouncer) flush() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
	if len(d.changes) == 0 {
		return
	}

	entries := compress(d.changes)
	d.changes = d.changes[:0]
	if len(entries) > 0 {
		d.flushFn(entries)
	}
}

// batchEntry is one mutation record before node resolution.
type batchEntry struct {
	parent  proto.DOMNodeID
	added   []*proto.DOMNode
	removed []proto.DOMNodeID
}

// compress turns raw changes into records:
//   - a node inserted and removed within the window is dropped from both sides
//   - consecutive changes under the same parent merge into one record
//   - order of everything else is kept
func compress(changes []change) []batchEntry {
	if len(changes) == 0 {
		return nil
	}

	gone := make(map[proto.DOMNodeID]bool)
	inserted := make(map[proto.DOMNodeID]bool)
	for _, c := range changes {
		if c.added != nil {
			inserted[c.added.NodeID] = true
		} else if inserted[c.removed] {
			gone[c.removed] = true
		}
	}

	var out []batchEntry
	for _, c := range changes {
		if c.added != nil && gone[c.added.NodeID] {
			continue
		}
		if c.added == nil && gone[c.removed] {
			continue
		}
		if len(out) == 0 || out[len(out)-1].parent != c.parent {
			out = append(out, batchEntry{parent: c.parent})
		}
		last := &out[len(out)-1]
		if c.added != nil {
			last.added = append(last.added, c.added)
		} else {
			last.removed = append(last.removed, c.removed)
		}
	}
	return out
}
