package recordmap

import "maps"

// Snapshot is the captured state of a registry: both tables and both fallbacks
type Snapshot struct {
	byName       map[string]typeEntry
	byType       map[string]nameEntry
	typeFallback TypeFallback
	nameFallback NameFallback
}

// Backup captures the registry state
func (r *Registry) Backup() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Snapshot{
		byName:       maps.Clone(r.byName),
		byType:       maps.Clone(r.byType),
		typeFallback: r.typeFallback,
		nameFallback: r.nameFallback,
	}
}

// Restore puts back a captured state verbatim
func (r *Registry) Restore(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byName = maps.Clone(s.byName)
	r.byType = maps.Clone(s.byType)
	if r.byName == nil {
		r.byName = make(map[string]typeEntry)
	}
	if r.byType == nil {
		r.byType = make(map[string]nameEntry)
	}
	r.typeFallback = s.typeFallback
	r.nameFallback = s.nameFallback
}

// Scoped runs fn and restores the registry state afterwards
func (r *Registry) Scoped(fn func() error) error {
	snapshot := r.Backup()
	defer r.Restore(snapshot)
	return fn()
}
