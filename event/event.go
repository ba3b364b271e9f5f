// Package event defines the records adcover emits. Consumers of the stdout
// and webhook sinks decode these from JSON lines.
package event

// Action is what happened to an overlay.
type Action string

const (
	Attached Action = "attached" // overlay placed on a candidate
	Removed  Action = "removed"  // overlay torn down by the removal trigger
)

// Source tells which pass produced an overlay.
type Source string

const (
	SourceScan  Source = "scan"  // initial full detection
	SourceWatch Source = "watch" // mutation watcher
)

// Overlay is one overlay lifecycle event.
type Overlay struct {
	ID      string `json:"id"` // UUIDv7
	PageID  string `json:"page_id"`
	PageURL string `json:"page_url"`
	Seq     uint64 `json:"seq"` // per page, gap detection
	Action  Action `json:"action"`
	Source  Source `json:"source,omitempty"`
	// Reason is the matching rule name, "heuristic", "iframe" or "size".
	Reason    string  `json:"reason,omitempty"`
	Tag       string  `json:"tag"`
	XPath     string  `json:"xpath"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
}

// Report summarises an HTTP-only scan.
type Report struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	StatusCode int       `json:"status_code"`
	Candidates int       `json:"candidates"`
	Overlays   []Overlay `json:"overlays"`
	// HTML is the document with overlays applied. Omitted from stored rows.
	HTML      []byte `json:"html,omitempty"`
	HTMLHash  string `json:"html_hash"` // SHA-256 hex of HTML
	Sparse    bool   `json:"sparse"`    // page body looked script-rendered
	Timestamp int64  `json:"timestamp"`
}
