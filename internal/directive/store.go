// Package directive holds the per-build records of extracted shebangs and
// directive prologues, keyed by host module id.
package directive

import (
	"sort"
	"sync"
)

// ModuleID is the opaque identifier a host assigns to a module. It is stable
// for the lifetime of one build.
type ModuleID string

// Store is created at build start, written by the module phase and read by
// the chunk phase. Writers for distinct modules may run concurrently.
type Store struct {
	mu         sync.RWMutex
	shebangs   map[ModuleID]string
	directives map[ModuleID]*OrderedSet
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		shebangs:   make(map[ModuleID]string),
		directives: make(map[ModuleID]*OrderedSet),
	}
}

// SetShebang records the shebang text of a module, replacing any previous one.
func (s *Store) SetShebang(id ModuleID, shebang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shebangs[id] = shebang
}

// AddDirective appends a directive to the module's set unless already present.
func (s *Store) AddDirective(id ModuleID, directive string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.directives[id]
	if !ok {
		set = NewOrderedSet()
		s.directives[id] = set
	}
	set.Add(directive)
}

// Shebang returns the recorded shebang of a module.
func (s *Store) Shebang(id ModuleID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.shebangs[id]
	return v, ok
}

// Directives returns the module's directives in first-seen order; nil when
// nothing was recorded.
func (s *Store) Directives(id ModuleID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directives[id].Values()
}

// Has reports whether any record exists for the module.
func (s *Store) Has(id ModuleID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, sb := s.shebangs[id]
	_, dr := s.directives[id]
	return sb || dr
}

// Modules lists every module with at least one record, sorted.
func (s *Store) Modules() []ModuleID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[ModuleID]struct{}, len(s.shebangs)+len(s.directives))
	for id := range s.shebangs {
		seen[id] = struct{}{}
	}
	for id := range s.directives {
		seen[id] = struct{}{}
	}
	out := make([]ModuleID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of modules with records.
func (s *Store) Len() int {
	return len(s.Modules())
}

// Reset drops every record so the store can serve a new build.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shebangs = make(map[ModuleID]string)
	s.directives = make(map[ModuleID]*OrderedSet)
}
