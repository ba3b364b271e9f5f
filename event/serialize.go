package event

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// Envelope is the JSON-lines wire frame used by stream sinks.
type Envelope struct {
	Type string          `json:"type"` // "overlay" | "report"
	Data json.RawMessage `json:"data"`
}

// Envelope type tags.
const (
	TypeOverlay = "overlay"
	TypeReport  = "report"
)

// Wrap frames v under typ.
func Wrap(typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("event: marshal %s: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Data: data})
}

// Decode reads one frame and returns *Overlay or *Report.
func Decode(line []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("event: decode envelope: %w", err)
	}
	switch env.Type {
	case TypeOverlay:
		var o Overlay
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return nil, fmt.Errorf("event: decode overlay: %w", err)
		}
		return &o, nil
	case TypeReport:
		var r Report
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return nil, fmt.Errorf("event: decode report: %w", err)
		}
		return &r, nil
	default:
		return nil, fmt.Errorf("event: unknown type %q", env.Type)
	}
}

// HashHTML returns the SHA-256 hex digest of raw HTML bytes.
func HashHTML(html []byte) string {
	h := sha256.Sum256(html)
	return fmt.Sprintf("%x", h)
}
