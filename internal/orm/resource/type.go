package resource

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gobuffalo/flect"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/multierr"

	"github.com/conduit-lang/restorm/internal/format"
	"github.com/conduit-lang/restorm/internal/orm/recordmap"
	"github.com/conduit-lang/restorm/internal/orm/relationships"
	"github.com/conduit-lang/restorm/internal/orm/schema"
)

// Record methods that can never be taken by an attribute or association
var reservedMethods = []string{
	"id", "attributes", "extra", "prefix_options", "save", "destroy", "reload",
	"load", "persisted", "new_record", "to_param", "to_map", "errors",
	"known_attributes", "class",
}

var prefixParamPattern = regexp.MustCompile(`:(\w+)`)

// Type is one remote resource type: its paths, schema, accessors and associations
type Type struct {
	client *Client
	name   string
	parent *Type

	primaryKey     string
	elementName    string
	collectionName string
	prefix         string
	singleton      bool
	collectionPath string
	headers        map[string]string
	includeRoot    bool

	schema      *schema.Schema
	methods     *schema.Methods
	reflections *relationships.Set
	subtypes    []*Type
}

// TypeOption configures a Type
type TypeOption func(*Type)

// WithPrimaryKey overrides the primary key attribute (id). Subtypes always
// share their parent's key.
func WithPrimaryKey(name string) TypeOption {
	return func(t *Type) { t.primaryKey = name }
}

// WithElementName overrides the singular path segment
func WithElementName(name string) TypeOption {
	return func(t *Type) { t.elementName = name }
}

// WithCollectionName overrides the plural path segment
func WithCollectionName(name string) TypeOption {
	return func(t *Type) { t.collectionName = name }
}

// WithPrefix sets the path prefix. ":name" segments are filled from prefix
// options, e.g. "/people/:person_id/".
func WithPrefix(prefix string) TypeOption {
	return func(t *Type) {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		t.prefix = prefix
	}
}

// Singleton makes the type a single resource addressed without an id
func Singleton() TypeOption {
	return func(t *Type) { t.singleton = true }
}

// WithCollectionPath locates the collection inside list responses, as a gjson
// path for JSON or a dotted element path for XML
func WithCollectionPath(path string) TypeOption {
	return func(t *Type) { t.collectionPath = path }
}

// WithHeader sends a header with every request of the type and its subtypes
func WithHeader(key, value string) TypeOption {
	return func(t *Type) { t.headers[key] = value }
}

// WithoutRoot sends save payloads without the element name wrapper
func WithoutRoot() TypeOption {
	return func(t *Type) { t.includeRoot = false }
}

func newType(c *Client, name string, parent *Type, opts []TypeOption) (*Type, error) {
	t := &Type{
		client:      c,
		name:        name,
		parent:      parent,
		primaryKey:  "id",
		headers:     make(map[string]string),
		includeRoot: true,
	}
	if parent != nil {
		t.prefix = parent.prefix
		t.singleton = parent.singleton
		t.collectionPath = parent.collectionPath
		t.includeRoot = parent.includeRoot
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.elementName == "" {
		t.elementName = flect.Underscore(demodulize(name))
	}
	if t.collectionName == "" {
		t.collectionName = flect.Pluralize(t.elementName)
	}

	if parent == nil {
		t.methods = schema.NewMethods(name, reservedMethods...)
		t.schema = schema.New(name, t.primaryKey, t.methods)
		t.reflections = relationships.NewSet()
		return t, nil
	}

	t.primaryKey = parent.primaryKey
	t.methods = parent.methods.Clone(name)
	sch, err := parent.schema.Subtype(name, t.methods)
	if err != nil {
		return nil, fmt.Errorf("failed to derive schema of %s: %w", name, err)
	}
	t.schema = sch
	t.reflections = parent.reflections.Clone()
	parent.subtypes = append(parent.subtypes, t)
	return t, nil
}

func demodulize(name string) string {
	if i := strings.LastIndex(name, recordmap.NamespaceSeparator); i >= 0 {
		return name[i+len(recordmap.NamespaceSeparator):]
	}
	return name
}

// Subtype defines a type inheriting t's schema, accessors and associations.
// Later declarations on t propagate to the subtype.
func (t *Type) Subtype(name string, opts ...TypeOption) (*Type, error) {
	return t.client.define(name, t, opts)
}

// TypeName returns the type's name
func (t *Type) TypeName() string { return t.name }

// ParentType returns the parent type, or nil for a root type
func (t *Type) ParentType() recordmap.Type {
	if t.parent == nil {
		return nil
	}
	return t.parent
}

func (t *Type) Name() string                    { return t.name }
func (t *Type) Parent() *Type                   { return t.parent }
func (t *Type) Client() *Client                 { return t.client }
func (t *Type) PrimaryKey() string              { return t.primaryKey }
func (t *Type) ElementName() string             { return t.elementName }
func (t *Type) CollectionName() string          { return t.collectionName }
func (t *Type) IsSingleton() bool               { return t.singleton }
func (t *Type) Schema() *schema.Schema          { return t.schema }
func (t *Type) Methods() *schema.Methods        { return t.methods }
func (t *Type) Reflections() *relationships.Set { return t.reflections }

// Subtypes returns the direct subtypes in definition order
func (t *Type) Subtypes() []*Type {
	return append([]*Type(nil), t.subtypes...)
}

// Reflection returns the association declared under name
func (t *Type) Reflection(name string) (*relationships.Reflection, bool) {
	return t.reflections.Get(name)
}

// SetSchema replaces the inline schema with one attribute per name → type name
func (t *Type) SetSchema(types map[string]string) error {
	return t.schema.SetTypes(types)
}

// Headers returns the headers of t merged over those of its ancestors
func (t *Type) Headers() http.Header {
	h := make(http.Header)
	if t.parent != nil {
		maps.Copy(h, t.parent.Headers())
	}
	for key, value := range t.headers {
		h.Set(key, value)
	}
	return h
}

// Monetize declares <name>_cents and <name>_currency and an accessor combining
// them into a schema.Money
func (t *Type) Monetize(name string) error {
	cents, currency := name+"_cents", name+"_currency"
	if err := t.schema.Integer(cents); err != nil {
		return err
	}
	if err := t.schema.String(currency); err != nil {
		return err
	}

	return t.defineCustom(schema.Accessor{
		Name:   name,
		Origin: schema.OriginCustom,
		Get: func(_ context.Context, st schema.Store) (any, error) {
			raw, _ := st.Attributes().Get(cents)
			if raw == nil {
				return nil, nil
			}
			n, err := cast.ToInt64E(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", schema.ErrInvalidValue, cents, err)
			}
			cur, _ := st.Attributes().Get(currency)
			return schema.Money{Amount: decimal.New(n, -2), Currency: cast.ToString(cur)}, nil
		},
		Set: func(st schema.Store, value any) error {
			switch m := value.(type) {
			case nil:
				st.Attributes().Set(cents, nil)
			case schema.Money:
				st.Attributes().Set(cents, m.Cents())
				st.Attributes().Set(currency, m.Currency)
			default:
				return fmt.Errorf("%w: %s expects a Money, got %T", schema.ErrInvalidValue, name, value)
			}
			return nil
		},
	})
}

// defineCustom installs acc on t and every subtype below it
func (t *Type) defineCustom(acc schema.Accessor) error {
	if err := t.methods.Define(acc); err != nil {
		return err
	}
	var errs error
	for _, sub := range t.subtypes {
		errs = multierr.Append(errs, sub.defineCustom(acc))
	}
	return errs
}

func (t *Type) ext() string {
	return "." + t.client.format.Extension()
}

// PrefixParams returns the names of the ":param" placeholders in the prefix
func (t *Type) PrefixParams() []string {
	var names []string
	for _, m := range prefixParamPattern.FindAllStringSubmatch(t.prefix, -1) {
		names = append(names, m[1])
	}
	return names
}

// Prefix fills the prefix placeholders from prefixOptions
func (t *Type) Prefix(prefixOptions map[string]any) (string, error) {
	if t.prefix == "" {
		return t.client.basePath + "/", nil
	}

	var missing []string
	out := prefixParamPattern.ReplaceAllStringFunc(t.prefix, func(token string) string {
		name := token[1:]
		v, ok := prefixOptions[name]
		if !ok || v == nil {
			missing = append(missing, name)
			return token
		}
		return url.PathEscape(cast.ToString(v))
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s needs %s", ErrMissingPrefixParam, t.name, strings.Join(missing, ", "))
	}
	return out, nil
}

// SplitOptions separates prefix placeholder values from query params
func (t *Type) SplitOptions(params map[string]any) (prefixOptions, query map[string]any) {
	prefixOptions = make(map[string]any)
	query = make(map[string]any)
	names := make(map[string]bool)
	for _, name := range t.PrefixParams() {
		names[name] = true
	}
	for key, value := range params {
		if names[key] {
			prefixOptions[key] = value
		} else {
			query[key] = value
		}
	}
	return prefixOptions, query
}

// ElementPath returns the path of one record
func (t *Type) ElementPath(id any, prefixOptions, query map[string]any) (string, error) {
	prefix, err := t.Prefix(prefixOptions)
	if err != nil {
		return "", err
	}
	return prefix + t.collectionName + "/" + url.PathEscape(cast.ToString(id)) + t.ext() + format.QueryString(query), nil
}

// CollectionPath returns the path of the collection
func (t *Type) CollectionPath(prefixOptions, query map[string]any) (string, error) {
	prefix, err := t.Prefix(prefixOptions)
	if err != nil {
		return "", err
	}
	return prefix + t.collectionName + t.ext() + format.QueryString(query), nil
}

// SingletonPath returns the path of a singleton resource
func (t *Type) SingletonPath(prefixOptions, query map[string]any) (string, error) {
	prefix, err := t.Prefix(prefixOptions)
	if err != nil {
		return "", err
	}
	return prefix + t.elementName + t.ext() + format.QueryString(query), nil
}

// CustomMethodCollectionPath returns the path of a custom collection method
func (t *Type) CustomMethodCollectionPath(method string, prefixOptions, query map[string]any) (string, error) {
	prefix, err := t.Prefix(prefixOptions)
	if err != nil {
		return "", err
	}
	return prefix + t.collectionName + "/" + method + t.ext() + format.QueryString(query), nil
}
