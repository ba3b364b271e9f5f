package detect

import "github.com/hazyhaar/adcover/dom"

// Match is a candidate and the first rule that found it.
type Match struct {
	Element dom.Element
	Rule    string
}

// Set is a candidate set keyed by element identity. Iteration follows
// insertion order, which makes attach order deterministic.
type Set struct {
	order []Match
	seen  map[dom.ID]int
}

func newSet() *Set {
	return &Set{seen: make(map[dom.ID]int)}
}

func (s *Set) add(el dom.Element, rule string) {
	if el == nil {
		return
	}
	if _, ok := s.seen[el.ID()]; ok {
		return
	}
	s.seen[el.ID()] = len(s.order)
	s.order = append(s.order, Match{Element: el, Rule: rule})
}

// Len returns the number of candidates.
func (s *Set) Len() int { return len(s.order) }

// Has reports whether el is a candidate.
func (s *Set) Has(el dom.Element) bool {
	if el == nil {
		return false
	}
	_, ok := s.seen[el.ID()]
	return ok
}

// Rule returns the rule that matched el first.
func (s *Set) Rule(el dom.Element) (string, bool) {
	if el == nil {
		return "", false
	}
	i, ok := s.seen[el.ID()]
	if !ok {
		return "", false
	}
	return s.order[i].Rule, true
}

// Matches returns the candidates in insertion order.
func (s *Set) Matches() []Match {
	out := make([]Match, len(s.order))
	copy(out, s.order)
	return out
}

// Elements returns the candidate elements in insertion order.
func (s *Set) Elements() []dom.Element {
	out := make([]dom.Element, len(s.order))
	for i, m := range s.order {
		out[i] = m.Element
	}
	return out
}
