package relationships

import (
	"fmt"
	"sync"
)

// Set is the ordered collection of reflections declared on one type
type Set struct {
	names  []string
	byName map[string]*Reflection
	mu     sync.RWMutex
}

// NewSet creates an empty reflection set
func NewSet() *Set {
	return &Set{byName: make(map[string]*Reflection)}
}

// Add stores r, replacing an earlier reflection of the same name
func (s *Set) Add(r *Reflection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[r.Name]; !ok {
		s.names = append(s.names, r.Name)
	}
	s.byName[r.Name] = r
}

// Get returns the reflection for name
func (s *Set) Get(name string) (*Reflection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byName[name]
	return r, ok
}

// MustGet returns the reflection for name or ErrUnknownRelationship
func (s *Set) MustGet(name string) (*Reflection, error) {
	r, ok := s.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRelationship, name)
	}
	return r, nil
}

// Of returns the reflections of one macro in declaration order
func (s *Set) Of(macro Macro) []*Reflection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Reflection
	for _, name := range s.names {
		if r := s.byName[name]; r.Macro == macro {
			out = append(out, r)
		}
	}
	return out
}

// All returns every reflection in declaration order
func (s *Set) All() []*Reflection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Reflection, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.byName[name])
	}
	return out
}

// Len returns the number of reflections
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Clone copies the set for a subtype. Reflections themselves are shared.
func (s *Set) Clone() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := NewSet()
	for _, name := range s.names {
		c.names = append(c.names, name)
		c.byName[name] = s.byName[name]
	}
	return c
}
