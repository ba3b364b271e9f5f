// Package detect implements the candidate detector: an ordered selector pass
// plus a size-and-keyword heuristic over generic containers.
//
// Detection never mutates the document and never fails as a whole. A rule
// that cannot be evaluated, or an element that cannot be measured, simply
// contributes no candidates.
package detect

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/adcover/dom"
)

// Heuristic is the Match.Rule value for candidates found by the heuristic pass.
const Heuristic = "heuristic"

// Config for creating a Detector.
type Config struct {
	Doc     dom.Document
	Rules   []Rule
	MinArea float64
	Logger  *slog.Logger
}

// Detector finds candidate ad containers.
type Detector struct {
	doc     dom.Document
	rules   []Rule
	minArea float64
	logger  *slog.Logger
}

// New creates a Detector. Empty Rules selects DefaultRules.
func New(cfg Config) *Detector {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MinArea <= 0 {
		cfg.MinArea = DefaultMinArea
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = DefaultRules()
	}
	rules := make([]Rule, len(cfg.Rules))
	copy(rules, cfg.Rules)
	return &Detector{
		doc:     cfg.Doc,
		rules:   rules,
		minArea: cfg.MinArea,
		logger:  cfg.Logger,
	}
}

// MinArea returns the size threshold in px².
func (d *Detector) MinArea() float64 { return d.minArea }

// Detect runs the selector pass and the heuristic pass over root and its
// descendants.
func (d *Detector) Detect(root dom.Element) *Set {
	set := newSet()
	if root == nil {
		return set
	}
	d.selectorPass(root, true, set)
	d.heuristicPass(root, set)
	return set
}

// DetectSelectors runs only the selector rules, against root's descendants.
func (d *Detector) DetectSelectors(root dom.Element) *Set {
	set := newSet()
	if root == nil {
		return set
	}
	d.selectorPass(root, false, set)
	return set
}

// ruleResult is the outcome of one rule: zero or more matches, or a failure.
type ruleResult struct {
	matches []dom.Element
	err     error
}

func (d *Detector) selectorPass(root dom.Element, self bool, set *Set) {
	for _, r := range d.rules {
		res := d.evalRule(root, r, self)
		if res.err != nil {
			d.logger.Debug("detect: rule skipped", "rule", r.Name, "error", res.err)
			continue
		}
		for _, el := range res.matches {
			set.add(el, r.Name)
		}
	}
}

func (d *Detector) evalRule(root dom.Element, r Rule, self bool) (res ruleResult) {
	defer func() {
		if p := recover(); p != nil {
			res = ruleResult{err: fmt.Errorf("detect: rule %s panicked: %v", r.Name, p)}
		}
	}()

	if self {
		ok, err := d.doc.Matches(root, r.Selector)
		if err != nil {
			return ruleResult{err: err}
		}
		if ok && root.Connected() {
			res.matches = append(res.matches, root)
		}
	}
	found, err := d.doc.QueryAll(root, r.Selector)
	if err != nil {
		return ruleResult{err: err}
	}
	for _, el := range found {
		if el.Connected() {
			res.matches = append(res.matches, el)
		}
	}
	return res
}

func (d *Detector) heuristicPass(root dom.Element, set *Set) {
	sel := strings.Join(Containers, ", ")

	var containers []dom.Element
	if isContainer(root.Tag()) {
		containers = append(containers, root)
	}
	found, err := d.queryContainers(root, sel)
	if err != nil {
		d.logger.Debug("detect: container query failed", "error", err)
	}
	containers = append(containers, found...)

	for _, el := range containers {
		if d.qualifies(el) {
			set.add(el, Heuristic)
		}
	}
}

func (d *Detector) queryContainers(root dom.Element, sel string) (found []dom.Element, err error) {
	defer func() {
		if p := recover(); p != nil {
			found, err = nil, fmt.Errorf("detect: container query panicked: %v", p)
		}
	}()
	return d.doc.QueryAll(root, sel)
}

// qualifies applies the double condition: large enough and ad-like naming.
func (d *Detector) qualifies(el dom.Element) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if !hasKeyword(el) {
		return false
	}
	r, err := el.Rect()
	if err != nil {
		return false
	}
	return r.Area() >= d.minArea && el.Connected()
}

// LargeEnough reports whether el measures at least the size threshold.
// Measurement failures count as too small.
func (d *Detector) LargeEnough(el dom.Element) bool {
	r, err := el.Rect()
	if err != nil {
		return false
	}
	return r.Area() >= d.minArea
}

func hasKeyword(el dom.Element) bool {
	class, _ := el.Attr("class")
	id, _ := el.Attr("id")
	text := strings.ToLower(class + " " + id)
	for _, kw := range Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func isContainer(tag string) bool {
	for _, c := range Containers {
		if tag == c {
			return true
		}
	}
	return false
}
