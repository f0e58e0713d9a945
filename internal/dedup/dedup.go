// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup tracks which paper identifiers an ingestion run has
// already accepted. A Set lives for one run and is never persisted.
package dedup

// Set is a run-scoped identifier set. The zero value is not usable; call New.
type Set struct {
	ids map[string]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Seen reports whether id has been marked.
func (s *Set) Seen(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Mark records id and reports whether it was new. Callers mark only after
// the paper's PDF has been saved.
func (s *Set) Mark(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of marked identifiers.
func (s *Set) Len() int { return len(s.ids) }
