// Package recordmap provides the bidirectional registry between wire-level type
// names and local resource types used to resolve polymorphic associations.
package recordmap

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDuplicated is returned when a non-default binding already exists for either side of a pair
	ErrDuplicated = errors.New("record map entry duplicated")

	// ErrTypeNotFound is returned by strict resolution when no type matches
	ErrTypeNotFound = errors.New("resource type not found")
)

// NamespaceSeparator separates the segments of hierarchical type names
const NamespaceSeparator = "::"

// Type is a resource type that can be bound to a wire name
type Type interface {
	TypeName() string
	ParentType() Type
}

// Instance is a value that knows its resource type
type Instance interface {
	ResourceType() Type
}

// TypeFallback resolves a name the table does not know
type TypeFallback func(name string) (Type, bool)

// NameFallback derives a wire name for a type name the table does not know
type NameFallback func(typeName string) string

type typeEntry struct {
	typ       Type
	isDefault bool
}

type nameEntry struct {
	name      string
	isDefault bool
}

// Registry maps wire type names to resource types and back
type Registry struct {
	byName       map[string]typeEntry
	byType       map[string]nameEntry
	typeFallback TypeFallback
	nameFallback NameFallback
	mu           sync.RWMutex
}

// New creates an empty registry whose name fallback is the identity
func New() *Registry {
	return &Registry{
		byName: make(map[string]typeEntry),
		byType: make(map[string]nameEntry),
	}
}

// BaseName returns the type name of t's root ancestor
func BaseName(t Type) string {
	for t.ParentType() != nil {
		t = t.ParentType()
	}
	return t.TypeName()
}

// Set binds wireName to t. A nil t records wireName as explicitly unresolvable.
func (r *Registry) Set(wireName string, t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set(wireName, t, false)
}

// SetDefault binds wireName to t in the default tier, which later Set calls may override
func (r *Registry) SetDefault(wireName string, t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set(wireName, t, true)
}

// MultiSet binds every entry, in wire name order, stopping at the first error
func (r *Registry) MultiSet(bindings map[string]Type) error {
	return r.multiSet(bindings, false)
}

// DefaultMultiSet binds every entry in the default tier
func (r *Registry) DefaultMultiSet(bindings map[string]Type) error {
	return r.multiSet(bindings, true)
}

func (r *Registry) multiSet(bindings map[string]Type, isDefault bool) error {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		if err := r.set(name, bindings[name], isDefault); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) set(wireName string, t Type, isDefault bool) error {
	if old, ok := r.byName[wireName]; ok && !old.isDefault {
		return fmt.Errorf("%w: %s already mapped on %s", ErrDuplicated, wireName, typeName(old.typ))
	}
	if t != nil {
		if old, ok := r.byType[t.TypeName()]; ok && !old.isDefault {
			return fmt.Errorf("%w: %s already mapped on %s", ErrDuplicated, t.TypeName(), old.name)
		}
	}

	r.byName[wireName] = typeEntry{typ: t, isDefault: isDefault}
	if t != nil {
		r.byType[t.TypeName()] = nameEntry{name: wireName, isDefault: isDefault}
	}
	return nil
}

func typeName(t Type) string {
	if t == nil {
		return "nil"
	}
	return t.TypeName()
}

// SetTypeFallback sets the resolver consulted when a wire name is not in the table
func (r *Registry) SetTypeFallback(fn TypeFallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typeFallback = fn
}

// SetNameFallback sets the function consulted when a type has no wire name.
// A nil fn restores the identity fallback.
func (r *Registry) SetNameFallback(fn NameFallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nameFallback = fn
}

// ResourceClass resolves a wire name, type or instance to a type: table first,
// then the type fallback. An explicit nil binding resolves to nothing.
func (r *Registry) ResourceClass(nameOrType any) (Type, bool) {
	name := normalize(nameOrType, true)

	r.mu.RLock()
	entry, ok := r.byName[name]
	fallback := r.typeFallback
	r.mu.RUnlock()

	if ok {
		return entry.typ, entry.typ != nil
	}
	if fallback == nil || name == "" {
		return nil, false
	}
	t, ok := fallback(name)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

// MustResourceClass is ResourceClass failing with ErrTypeNotFound
func (r *Registry) MustResourceClass(nameOrType any) (Type, error) {
	t, ok := r.ResourceClass(nameOrType)
	if !ok {
		return nil, fmt.Errorf("%w: record_name=%s", ErrTypeNotFound, normalize(nameOrType, true))
	}
	return t, nil
}

// ResourceClassNamespaceFallback looks the name up in the table, dropping the
// last namespace segment on each miss until a single segment is left.
// Fallback functions are not consulted.
func (r *Registry) ResourceClassNamespaceFallback(nameOrType any) (Type, bool) {
	name := normalize(nameOrType, true)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for {
		if entry, ok := r.byName[name]; ok {
			return entry.typ, entry.typ != nil
		}
		i := strings.LastIndex(name, NamespaceSeparator)
		if i < 0 {
			return nil, false
		}
		name = name[:i]
	}
}

// RecordBaseName returns the wire name of the root type of a type, instance or
// type name, consulting the name fallback on a miss.
func (r *Registry) RecordBaseName(typeOrInstance any) string {
	name := normalize(typeOrInstance, true)

	r.mu.RLock()
	entry, ok := r.byType[name]
	fallback := r.nameFallback
	r.mu.RUnlock()

	if ok {
		return entry.name
	}
	if fallback == nil {
		return name
	}
	return fallback(name)
}

// RecordName returns the wire name bound to the exact type, walking up parent
// types until one is bound. It returns "" when no ancestor is bound.
func (r *Registry) RecordName(typeOrInstance any) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t := asType(typeOrInstance)
	if t == nil {
		if entry, ok := r.byType[normalize(typeOrInstance, false)]; ok {
			return entry.name
		}
		return ""
	}
	for ; t != nil; t = t.ParentType() {
		if entry, ok := r.byType[t.TypeName()]; ok {
			return entry.name
		}
	}
	return ""
}

func asType(v any) Type {
	switch x := v.(type) {
	case Type:
		return x
	case Instance:
		return x.ResourceType()
	}
	return nil
}

// normalize reduces a type, instance or name to a type name
func normalize(v any, base bool) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	}
	if t := asType(v); t != nil {
		if base {
			return BaseName(t)
		}
		return t.TypeName()
	}

	rt := reflect.TypeOf(v)
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	return rt.String()
}

// Entry is one wire name binding
type Entry struct {
	WireName string
	TypeName string
	Default  bool
}

// Entries returns the wire name bindings sorted by wire name
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.byName))
	for name, e := range r.byName {
		entry := Entry{WireName: name, Default: e.isDefault}
		if e.typ != nil {
			entry.TypeName = e.typ.TypeName()
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].WireName < entries[j].WireName })
	return entries
}

// Bound reports whether wireName has a table entry, default or not
func (r *Registry) Bound(wireName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[wireName]
	return ok
}

// Len returns the number of wire name bindings
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Reset clears both tables. Fallbacks are kept.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]typeEntry)
	r.byType = make(map[string]nameEntry)
}
