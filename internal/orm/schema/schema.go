package schema

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

// Bucket separates inline attributes from on-demand extra attributes
type Bucket int

const (
	BucketAttributes Bucket = iota
	BucketExtra
)

// String returns the string representation of the bucket
func (b Bucket) String() string {
	if b == BucketExtra {
		return "extra"
	}
	return "attributes"
}

type attrSet struct {
	names  []string
	byName map[string]*AttributeConfig
}

func newAttrSet() *attrSet {
	return &attrSet{byName: make(map[string]*AttributeConfig)}
}

func (a *attrSet) get(name string) (*AttributeConfig, bool) {
	cfg, ok := a.byName[name]
	return cfg, ok
}

func (a *attrSet) wire(wireName string) (*AttributeConfig, bool) {
	for _, name := range a.names {
		if cfg := a.byName[name]; cfg.WireName == wireName {
			return cfg, true
		}
	}
	return nil, false
}

func (a *attrSet) put(cfg *AttributeConfig) {
	if _, ok := a.byName[cfg.Name]; !ok {
		a.names = append(a.names, cfg.Name)
	}
	a.byName[cfg.Name] = cfg
}

func (a *attrSet) list() []*AttributeConfig {
	out := make([]*AttributeConfig, 0, len(a.names))
	for _, name := range a.names {
		out = append(out, a.byName[name])
	}
	return out
}

func (a *attrSet) clone() *attrSet {
	c := newAttrSet()
	for _, name := range a.names {
		c.put(a.byName[name].Clone())
	}
	return c
}

// Schema owns the attribute configs of one resource type
type Schema struct {
	owner      string
	primaryKey string
	attrs      *attrSet
	extra      *attrSet
	methods    *Methods
	children   []*Schema
}

// New creates a schema whose primary key is an integer attribute without accessor
func New(owner, primaryKey string, methods *Methods) *Schema {
	s := &Schema{
		owner:      owner,
		primaryKey: primaryKey,
		attrs:      newAttrSet(),
		extra:      newAttrSet(),
		methods:    methods,
	}
	s.injectPrimaryKey()
	return s
}

func (s *Schema) injectPrimaryKey() {
	cfg, _ := NewAttributeConfig(s.primaryKey, "integer", SkipAccessor())
	s.attrs.put(cfg)
}

// Owner returns the owning type's name
func (s *Schema) Owner() string { return s.owner }

// PrimaryKey returns the primary key attribute name
func (s *Schema) PrimaryKey() string { return s.primaryKey }

// Methods returns the accessor table the schema installs into
func (s *Schema) Methods() *Methods { return s.methods }

// Attribute declares an attribute. An Extra option routes it to the extra bucket.
func (s *Schema) Attribute(name, typeName string, opts ...Option) error {
	cfg, err := NewAttributeConfig(name, typeName, opts...)
	if err != nil {
		return err
	}
	if cfg.Extra {
		return s.add(BucketExtra, cfg)
	}
	return s.add(BucketAttributes, cfg)
}

// ExtraAttribute declares an attribute that is only fetched on demand
func (s *Schema) ExtraAttribute(name, typeName string, opts ...Option) error {
	cfg, err := NewAttributeConfig(name, typeName, opts...)
	if err != nil {
		return err
	}
	cfg.Extra = true
	return s.add(BucketExtra, cfg)
}

// Declare declares several attributes of one type, stopping at the first error
func (s *Schema) Declare(typeName string, names []string, opts ...Option) error {
	for _, name := range names {
		if err := s.Attribute(name, typeName, opts...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) String(name string, opts ...Option) error {
	return s.Attribute(name, "string", opts...)
}

func (s *Schema) Text(name string, opts ...Option) error {
	return s.Attribute(name, "text", opts...)
}

func (s *Schema) Integer(name string, opts ...Option) error {
	return s.Attribute(name, "integer", opts...)
}

func (s *Schema) Float(name string, opts ...Option) error {
	return s.Attribute(name, "float", opts...)
}

func (s *Schema) Decimal(name string, opts ...Option) error {
	return s.Attribute(name, "decimal", opts...)
}

func (s *Schema) Datetime(name string, opts ...Option) error {
	return s.Attribute(name, "datetime", opts...)
}

func (s *Schema) Timestamp(name string, opts ...Option) error {
	return s.Attribute(name, "timestamp", opts...)
}

func (s *Schema) Time(name string, opts ...Option) error {
	return s.Attribute(name, "time", opts...)
}

func (s *Schema) Date(name string, opts ...Option) error {
	return s.Attribute(name, "date", opts...)
}

func (s *Schema) Binary(name string, opts ...Option) error {
	return s.Attribute(name, "binary", opts...)
}

func (s *Schema) Boolean(name string, opts ...Option) error {
	return s.Attribute(name, "boolean", opts...)
}

func (s *Schema) Serialize(name string, opts ...Option) error {
	return s.Attribute(name, "serialize", opts...)
}

func (s *Schema) UUID(name string, opts ...Option) error {
	return s.Attribute(name, "uuid", opts...)
}

// Enum declares a string attribute restricted to values
func (s *Schema) Enum(name string, values []string, opts ...Option) error {
	return s.Attribute(name, "enum", append(opts, In(values...))...)
}

func (s *Schema) bucket(b Bucket) *attrSet {
	if b == BucketExtra {
		return s.extra
	}
	return s.attrs
}

func (s *Schema) add(b Bucket, cfg *AttributeConfig) error {
	if cfg.Name == s.primaryKey && b == BucketAttributes {
		cfg.SkipAccessor = true
	}

	set, other := s.bucket(b), s.bucket(1-b)
	if _, ok := other.get(cfg.Name); ok {
		return fmt.Errorf("%w: `%s` is already a %s attribute of `%s`",
			ErrAlreadyDefinedMethod, cfg.Name, (1 - b).String(), s.owner)
	}
	if existing, ok := set.wire(cfg.WireName); ok && existing.Name != cfg.Name {
		return fmt.Errorf("%w: %s is used by both %s and %s in `%s`",
			ErrDuplicatedWireName, cfg.WireName, existing.Name, cfg.Name, s.owner)
	}

	_, redeclared := set.get(cfg.Name)
	if !cfg.SkipAccessor {
		if err := s.methods.Define(s.accessor(b, cfg.Name)); err != nil {
			return err
		}
	} else if !redeclared && s.methods.Defined(cfg.Name) && cfg.Name != s.primaryKey {
		return s.methods.collision(cfg.Name)
	}
	set.put(cfg)

	var errs error
	for _, child := range s.children {
		if _, ok := child.bucket(b).get(cfg.Name); ok {
			continue
		}
		errs = multierr.Append(errs, child.add(b, cfg.Clone()))
	}
	return errs
}

func (s *Schema) accessor(b Bucket, name string) Accessor {
	if b == BucketExtra {
		return Accessor{Name: name, Origin: OriginExtra, Get: s.extraGetter(name), Set: s.setter(b, name)}
	}
	return Accessor{Name: name, Origin: OriginAttribute, Get: s.attributeGetter(name), Set: s.setter(b, name)}
}

func (s *Schema) attributeGetter(name string) Getter {
	return func(_ context.Context, st Store) (any, error) {
		if v, ok := st.Attributes().Get(name); ok {
			return v, nil
		}
		if cfg, ok := s.attrs.get(name); ok {
			if v, ok := cfg.DefaultValue(); ok {
				return v, nil
			}
		}
		return nil, nil
	}
}

func (s *Schema) extraGetter(name string) Getter {
	return func(ctx context.Context, st Store) (any, error) {
		v, ok := st.ExtraValues().Get(name)
		if !ok {
			if err := st.LoadExtra(ctx, name); err != nil {
				return nil, err
			}
			v, _ = st.ExtraValues().Get(name)
		}
		if v == nil {
			if cfg, ok := s.extra.get(name); ok {
				if d, ok := cfg.DefaultValue(); ok {
					return d, nil
				}
			}
		}
		return v, nil
	}
}

func (s *Schema) setter(b Bucket, name string) Setter {
	return func(st Store, value any) error {
		cfg, ok := s.bucket(b).get(name)
		if !ok {
			return fmt.Errorf("%w: %s has no attribute %s", ErrInvalidValue, s.owner, name)
		}
		v, err := cfg.Coerce(value, st.LoadOptions())
		if err != nil {
			return err
		}
		if b == BucketExtra {
			st.ExtraValues().Set(name, v)
		} else {
			st.Attributes().Set(name, v)
		}
		return nil
	}
}

// Lookup finds an attribute by local name in either bucket
func (s *Schema) Lookup(name string) (*AttributeConfig, Bucket, bool) {
	if cfg, ok := s.attrs.get(name); ok {
		return cfg, BucketAttributes, true
	}
	if cfg, ok := s.extra.get(name); ok {
		return cfg, BucketExtra, true
	}
	return nil, 0, false
}

// LookupWire finds an attribute by wire name in either bucket
func (s *Schema) LookupWire(wireName string) (*AttributeConfig, Bucket, bool) {
	if cfg, ok := s.attrs.wire(wireName); ok {
		return cfg, BucketAttributes, true
	}
	if cfg, ok := s.extra.wire(wireName); ok {
		return cfg, BucketExtra, true
	}
	return nil, 0, false
}

// Attrs returns the inline attribute configs in declaration order
func (s *Schema) Attrs() []*AttributeConfig { return s.attrs.list() }

// Extras returns the extra attribute configs in declaration order
func (s *Schema) Extras() []*AttributeConfig { return s.extra.list() }

// KnownAttributes returns the inline attribute names
func (s *Schema) KnownAttributes() []string {
	return append([]string(nil), s.attrs.names...)
}

// ExtraAttributes returns the extra attribute names
func (s *Schema) ExtraAttributes() []string {
	return append([]string(nil), s.extra.names...)
}

// DefaultExtras returns the extra attributes requested with every fetch
func (s *Schema) DefaultExtras() []*AttributeConfig {
	var out []*AttributeConfig
	for _, cfg := range s.extra.list() {
		if cfg.DefaultRequest {
			out = append(out, cfg)
		}
	}
	return out
}

// ExtraNotDefaults returns the extra attributes fetched only when asked for
func (s *Schema) ExtraNotDefaults() []*AttributeConfig {
	var out []*AttributeConfig
	for _, cfg := range s.extra.list() {
		if !cfg.DefaultRequest {
			out = append(out, cfg)
		}
	}
	return out
}

// TypeNames maps every attribute name, inline and extra, to its type name
func (s *Schema) TypeNames() map[string]string {
	out := make(map[string]string, len(s.attrs.names)+len(s.extra.names))
	for _, cfg := range s.attrs.list() {
		out[cfg.Name] = cfg.Type.Name
	}
	for _, cfg := range s.extra.list() {
		out[cfg.Name] = cfg.Type.Name
	}
	return out
}

// Subtype returns a deep copy owned by a subtype and registered as a live child.
// Accessors are rebound into methods so they resolve against the copy.
func (s *Schema) Subtype(owner string, methods *Methods) (*Schema, error) {
	child := &Schema{
		owner:      owner,
		primaryKey: s.primaryKey,
		attrs:      s.attrs.clone(),
		extra:      s.extra.clone(),
		methods:    methods,
	}
	for _, b := range []Bucket{BucketAttributes, BucketExtra} {
		for _, cfg := range child.bucket(b).list() {
			if cfg.SkipAccessor {
				continue
			}
			if err := methods.Redefine(child.accessor(b, cfg.Name)); err != nil {
				return nil, err
			}
		}
	}
	s.children = append(s.children, child)
	return child, nil
}

// Reset drops every attribute and its accessor, keeping only the primary key
func (s *Schema) Reset() {
	s.methods.RemoveOrigin(OriginAttribute)
	s.methods.RemoveOrigin(OriginExtra)
	s.attrs = newAttrSet()
	s.extra = newAttrSet()
	s.injectPrimaryKey()
}

// SetTypes resets the schema and declares one attribute per name → type name entry
func (s *Schema) SetTypes(types map[string]string) error {
	s.Reset()

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.Attribute(name, types[name]); err != nil {
			return err
		}
	}
	return nil
}
