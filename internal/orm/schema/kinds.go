// Package schema defines the typed attribute surface of a remote resource type.
// It covers attribute kinds and their coercion rules, the per-attribute configs for
// core and extra fields, and the accessor table each resource type exposes.
package schema

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Kind is the closed set of built-in attribute kinds
type Kind int

const (
	// Text kinds
	KindString Kind = iota
	KindText

	// Numeric kinds
	KindInteger
	KindFloat
	KindDecimal

	// Time kinds
	KindDatetime
	KindTimestamp
	KindTime
	KindDate

	// Opaque kinds
	KindBinary
	KindBoolean
	KindSerialize
	KindUUID

	// Enum validates membership in a fixed allowed-value list
	KindEnum

	// KindCustom tags every centrally registered custom type
	KindCustom
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindDatetime:
		return "datetime"
	case KindTimestamp:
		return "timestamp"
	case KindTime:
		return "time"
	case KindDate:
		return "date"
	case KindBinary:
		return "binary"
	case KindBoolean:
		return "boolean"
	case KindSerialize:
		return "serialize"
	case KindUUID:
		return "uuid"
	case KindEnum:
		return "enum"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// ParseKind converts a built-in kind name to a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "text":
		return KindText, nil
	case "integer":
		return KindInteger, nil
	case "float":
		return KindFloat, nil
	case "decimal":
		return KindDecimal, nil
	case "datetime":
		return KindDatetime, nil
	case "timestamp":
		return KindTimestamp, nil
	case "time":
		return KindTime, nil
	case "date":
		return KindDate, nil
	case "binary":
		return KindBinary, nil
	case "boolean":
		return KindBoolean, nil
	case "serialize":
		return KindSerialize, nil
	case "uuid":
		return KindUUID, nil
	case "enum":
		return KindEnum, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownAttributeKind, s)
	}
}

// IsNumeric returns true for integer, float and decimal kinds
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat || k == KindDecimal
}

// IsTemporal returns true for the time-based kinds
func (k Kind) IsTemporal() bool {
	return k == KindDatetime || k == KindTimestamp || k == KindTime || k == KindDate
}

// LoadOptions carries the context a coercion rule needs
type LoadOptions struct {
	// Location is the zone timestamps without an explicit offset are read in.
	Location *time.Location
}

func (o LoadOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// LoadFunc coerces one raw wire value into its typed form
type LoadFunc func(raw any, opts LoadOptions) (any, error)

// TypeConfig describes one coercion rule, addressable by name
type TypeConfig struct {
	Name string
	Kind Kind
	load LoadFunc
}

// NewTypeConfig creates a custom type config. A nil load stores values untouched.
func NewTypeConfig(name string, load LoadFunc) *TypeConfig {
	return &TypeConfig{Name: name, Kind: KindCustom, load: load}
}

// Load coerces raw. nil is never coerced.
func (t *TypeConfig) Load(raw any, opts LoadOptions) (any, error) {
	if raw == nil || t.load == nil {
		return raw, nil
	}
	return t.load(raw, opts)
}

var builtinTypes = map[string]*TypeConfig{
	"string":    {Name: "string", Kind: KindString, load: loadString},
	"text":      {Name: "text", Kind: KindText, load: loadString},
	"integer":   {Name: "integer", Kind: KindInteger, load: loadInteger},
	"float":     {Name: "float", Kind: KindFloat, load: loadFloat},
	"decimal":   {Name: "decimal", Kind: KindDecimal, load: loadDecimal},
	"datetime":  {Name: "datetime", Kind: KindDatetime, load: loadDatetime},
	"timestamp": {Name: "timestamp", Kind: KindTimestamp, load: loadDatetime},
	"time":      {Name: "time", Kind: KindTime, load: loadDatetime},
	"date":      {Name: "date", Kind: KindDate, load: loadDate},
	"binary":    {Name: "binary", Kind: KindBinary, load: loadBinary},
	"boolean":   {Name: "boolean", Kind: KindBoolean, load: loadBoolean},
	"serialize": {Name: "serialize", Kind: KindSerialize},
	"uuid":      {Name: "uuid", Kind: KindUUID, load: loadUUID},
	"enum":      {Name: "enum", Kind: KindEnum, load: loadEnum},
}

var (
	customMu    sync.RWMutex
	customTypes = make(map[string]*TypeConfig)
)

// RegisterType registers a custom type process-wide. Registering a name twice
// replaces the earlier definition; built-in names cannot be taken.
func RegisterType(cfg *TypeConfig) error {
	if cfg == nil || cfg.Name == "" {
		return fmt.Errorf("custom type must have a name")
	}
	if _, ok := builtinTypes[cfg.Name]; ok {
		return fmt.Errorf("%w: %s", ErrReservedType, cfg.Name)
	}

	customMu.Lock()
	defer customMu.Unlock()

	cfg.Kind = KindCustom
	customTypes[cfg.Name] = cfg
	return nil
}

// UnregisterType removes a custom type (useful for testing)
func UnregisterType(name string) {
	customMu.Lock()
	defer customMu.Unlock()
	delete(customTypes, name)
}

// LookupType returns the config for a built-in or custom type name
func LookupType(name string) (*TypeConfig, bool) {
	if cfg, ok := builtinTypes[name]; ok {
		return cfg, true
	}

	customMu.RLock()
	defer customMu.RUnlock()

	cfg, ok := customTypes[name]
	return cfg, ok
}

// KnownTypes returns every built-in and custom type name, sorted
func KnownTypes() []string {
	customMu.RLock()
	names := make([]string, 0, len(builtinTypes)+len(customTypes))
	for name := range customTypes {
		names = append(names, name)
	}
	customMu.RUnlock()

	for name := range builtinTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
