package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iancoleman/orderedmap"
)

// Origin tells which declaration installed an accessor
type Origin int

const (
	OriginAttribute Origin = iota
	OriginExtra
	OriginAssociation
	OriginCustom
)

// String returns the string representation of the origin
func (o Origin) String() string {
	switch o {
	case OriginAttribute:
		return "attribute"
	case OriginExtra:
		return "extra"
	case OriginAssociation:
		return "association"
	case OriginCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Store is the per-instance state accessors read and write through
type Store interface {
	Attributes() *orderedmap.OrderedMap
	ExtraValues() *orderedmap.OrderedMap
	LoadExtra(ctx context.Context, names ...string) error
	LoadOptions() LoadOptions
}

// Getter reads one accessor value from a store
type Getter func(ctx context.Context, s Store) (any, error)

// Setter writes one accessor value into a store
type Setter func(s Store, value any) error

// Accessor is one named get/set pair installed on a resource type
type Accessor struct {
	Name   string
	Origin Origin
	Get    Getter
	Set    Setter
}

// Methods is the accessor table of one resource type. Reserved names model the
// record's own methods and can never be taken by an accessor.
type Methods struct {
	owner    string
	reserved map[string]bool
	byName   map[string]*Accessor
	order    []string
	mu       sync.RWMutex
}

// NewMethods creates an accessor table. A reserved name ending in "=" blocks
// only the setter of that name.
func NewMethods(owner string, reserved ...string) *Methods {
	m := &Methods{
		owner:    owner,
		reserved: make(map[string]bool, len(reserved)),
		byName:   make(map[string]*Accessor),
	}
	for _, name := range reserved {
		m.reserved[name] = true
	}
	return m
}

// Owner returns the name of the owning type
func (m *Methods) Owner() string {
	return m.owner
}

// Define installs an accessor. It fails with ErrAlreadyDefinedMethod if the
// getter or setter name is already defined on the owning type.
func (m *Methods) Define(acc Accessor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.taken(acc.Name) {
		return m.collision(acc.Name)
	}
	m.byName[acc.Name] = &acc
	m.order = append(m.order, acc.Name)
	return nil
}

// Redefine replaces an accessor, or installs it if absent. Reserved names still fail.
func (m *Methods) Redefine(acc Accessor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reserved[acc.Name] || m.reserved[acc.Name+"="] {
		return m.collision(acc.Name)
	}
	if _, ok := m.byName[acc.Name]; !ok {
		m.order = append(m.order, acc.Name)
	}
	m.byName[acc.Name] = &acc
	return nil
}

func (m *Methods) taken(name string) bool {
	_, ok := m.byName[name]
	return ok || m.reserved[name] || m.reserved[name+"="]
}

func (m *Methods) collision(name string) error {
	return fmt.Errorf("%w: `%s` or `%s=` in `%s`", ErrAlreadyDefinedMethod, name, name, m.owner)
}

// Remove deletes an accessor. Reserved names are unaffected.
func (m *Methods) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[name]; !ok {
		return false
	}
	delete(m.byName, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveOrigin deletes every accessor of the given origin and returns their names
func (m *Methods) RemoveOrigin(origin Origin) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	kept := m.order[:0]
	for _, name := range m.order {
		if m.byName[name].Origin == origin {
			delete(m.byName, name)
			removed = append(removed, name)
			continue
		}
		kept = append(kept, name)
	}
	m.order = kept
	return removed
}

// Lookup returns the accessor for name. A trailing "=" is accepted for setters.
func (m *Methods) Lookup(name string) (*Accessor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.byName[strings.TrimSuffix(name, "=")]
	return acc, ok
}

// Defined reports whether name is taken, by an accessor or a reserved method
func (m *Methods) Defined(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.taken(name)
}

// Names returns accessor names in definition order
func (m *Methods) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Clone copies the table for a subtype
func (m *Methods) Clone(owner string) *Methods {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clone := &Methods{
		owner:    owner,
		reserved: make(map[string]bool, len(m.reserved)),
		byName:   make(map[string]*Accessor, len(m.byName)),
		order:    append([]string(nil), m.order...),
	}
	for name := range m.reserved {
		clone.reserved[name] = true
	}
	for name, acc := range m.byName {
		copied := *acc
		clone.byName[name] = &copied
	}
	return clone
}
