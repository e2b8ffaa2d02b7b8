package schema

import (
	"fmt"
	"reflect"
	"slices"
)

// AttributeConfig describes one attribute of a resource type
type AttributeConfig struct {
	Name     string
	WireName string
	Type     *TypeConfig

	Default     any
	DefaultFunc func() any

	// Extra attributes are fetched on demand rather than inline.
	Extra          bool
	DefaultRequest bool

	Array        bool
	SkipAccessor bool

	// In is the allowed-value list of an enum attribute.
	In []string
}

// Option configures an AttributeConfig
type Option func(*AttributeConfig)

// WireName sets the key the attribute has on the wire
func WireName(name string) Option {
	return func(c *AttributeConfig) { c.WireName = name }
}

// Default sets a literal default returned while the attribute is absent
func Default(v any) Option {
	return func(c *AttributeConfig) { c.Default = v }
}

// DefaultFunc sets a computed default
func DefaultFunc(fn func() any) Option {
	return func(c *AttributeConfig) { c.DefaultFunc = fn }
}

// Extra marks the attribute as fetched on demand
func Extra() Option {
	return func(c *AttributeConfig) { c.Extra = true }
}

// ExtraDefault marks the attribute as extra but requested with every fetch
func ExtraDefault() Option {
	return func(c *AttributeConfig) {
		c.Extra = true
		c.DefaultRequest = true
	}
}

// Array makes the attribute hold a list, each element coerced by the kind
func Array() Option {
	return func(c *AttributeConfig) { c.Array = true }
}

// SkipAccessor suppresses accessor generation
func SkipAccessor() Option {
	return func(c *AttributeConfig) { c.SkipAccessor = true }
}

// In sets the allowed values of an enum attribute
func In(values ...string) Option {
	return func(c *AttributeConfig) { c.In = append([]string(nil), values...) }
}

// NewAttributeConfig builds a config for the named type. The wire name defaults to name.
func NewAttributeConfig(name, typeName string, opts ...Option) (*AttributeConfig, error) {
	typ, ok := LookupType(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s for attribute %s", ErrUnknownAttributeKind, typeName, name)
	}

	cfg := &AttributeConfig{Name: name, Type: typ}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.WireName == "" {
		cfg.WireName = name
	}
	return cfg, nil
}

// Kind returns the kind of the attribute's type
func (c *AttributeConfig) Kind() Kind {
	return c.Type.Kind
}

// DefaultValue returns the default, computing it when a DefaultFunc is set
func (c *AttributeConfig) DefaultValue() (any, bool) {
	if c.DefaultFunc != nil {
		return c.DefaultFunc(), true
	}
	if c.Default != nil {
		return c.Default, true
	}
	return nil, false
}

// AllowedValues returns a copy of the enum's allowed-value list
func (c *AttributeConfig) AllowedValues() []string {
	return append([]string(nil), c.In...)
}

// SetAllowedValues replaces the enum's allowed-value list
func (c *AttributeConfig) SetAllowedValues(values ...string) {
	c.In = append([]string(nil), values...)
}

// Load coerces a raw wire value. On failure the raw value is returned alongside
// the error, so permissive callers can keep it. An enum value outside the
// allowed list comes back coerced together with ErrInvalidValue.
func (c *AttributeConfig) Load(raw any, opts LoadOptions) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if c.Array {
		return c.loadArray(raw, opts)
	}
	v, err := c.Type.Load(raw, opts)
	if err != nil {
		return v, fmt.Errorf("%s: %w", c.Name, err)
	}
	if err := c.Validate(v); err != nil {
		return v, err
	}
	return v, nil
}

func (c *AttributeConfig) loadArray(raw any, opts LoadOptions) (any, error) {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return raw, fmt.Errorf("%s: %w: expected a list, got %T", c.Name, ErrInvalidValue, raw)
	}

	out := make([]any, 0, rv.Len())
	var firstErr error
	for i := 0; i < rv.Len(); i++ {
		v, err := c.Type.Load(rv.Index(i).Interface(), opts)
		if err == nil {
			err = c.Validate(v)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s[%d]: %w", c.Name, i, err)
		}
		out = append(out, v)
	}
	return out, firstErr
}

// Coerce is the strict form of Load used by setters: any failure rejects the value.
func (c *AttributeConfig) Coerce(v any, opts LoadOptions) (any, error) {
	coerced, err := c.Load(v, opts)
	if err != nil {
		return nil, err
	}
	return coerced, nil
}

// Validate checks enum membership. Other kinds accept any coerced value.
func (c *AttributeConfig) Validate(v any) error {
	if c.Kind() != KindEnum || v == nil || len(c.In) == 0 {
		return nil
	}
	s, ok := v.(string)
	if !ok || !slices.Contains(c.In, s) {
		return fmt.Errorf("%w: %s must be one of %v, got %v", ErrInvalidValue, c.Name, c.In, v)
	}
	return nil
}

// Clone returns a deep copy
func (c *AttributeConfig) Clone() *AttributeConfig {
	clone := *c
	clone.In = append([]string(nil), c.In...)
	return &clone
}
