package resource

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/iancoleman/orderedmap"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/conduit-lang/restorm/internal/connection"
	"github.com/conduit-lang/restorm/internal/format"
	"github.com/conduit-lang/restorm/internal/logging"
	"github.com/conduit-lang/restorm/internal/orm/query"
	"github.com/conduit-lang/restorm/internal/orm/recordmap"
	"github.com/conduit-lang/restorm/internal/orm/schema"
	"github.com/conduit-lang/restorm/internal/orm/tracking"
)

// Record is one instance of a resource type. It is not safe for concurrent use.
type Record struct {
	typ           *Type
	attrs         *orderedmap.OrderedMap
	extra         *orderedmap.OrderedMap
	persisted     bool
	prefixOptions map[string]any
	tracker       tracking.Tracker

	// assoc memoizes association reads; a present key with a nil value
	// means the association was fetched and is empty
	assoc map[string]any
}

func (t *Type) newRecord() *Record {
	return &Record{
		typ:           t,
		attrs:         orderedmap.New(),
		extra:         orderedmap.New(),
		prefixOptions: make(map[string]any),
		assoc:         make(map[string]any),
	}
}

// New builds an unsaved record, assigning attrs through the accessors
func (t *Type) New(attrs map[string]any) (*Record, error) {
	r := t.newRecord()
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		if err := r.Set(name, attrs[name]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewPersisted builds a persisted stub carrying only its id
func (t *Type) NewPersisted(id any) *Record {
	r := t.newRecord()
	r.attrs.Set(t.primaryKey, id)
	r.persisted = true
	r.synced()
	return r
}

// Instantiate builds a record from a decoded payload. Schema attributes are
// coerced permissively: a value that fails coercion is kept raw and reported
// to the context's warnings sink.
func (t *Type) Instantiate(ctx context.Context, raw any, persisted bool, prefixOptions map[string]any) (*Record, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects an object, got %T", ErrUnexpectedPayload, t.name, raw)
	}
	r := t.newRecord()
	r.persisted = persisted
	maps.Copy(r.prefixOptions, prefixOptions)
	r.load(ctx, m)
	if persisted {
		r.synced()
	}
	return r, nil
}

func (t *Type) instantiateCollection(ctx context.Context, data any, prefixOptions map[string]any) ([]*Record, error) {
	if data == nil {
		return []*Record{}, nil
	}
	items, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a list, got %T", ErrUnexpectedPayload, t.name, data)
	}

	records := make([]*Record, 0, len(items))
	for _, item := range items {
		r, err := t.Instantiate(ctx, item, true, prefixOptions)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (r *Record) load(ctx context.Context, m map[string]any) {
	opts := r.LoadOptions()
	for _, key := range slices.Sorted(maps.Keys(m)) {
		raw := m[key]
		if cfg, bucket, ok := r.typ.schema.LookupWire(key); ok {
			v, err := cfg.Load(raw, opts)
			if err != nil {
				r.tolerate(ctx, cfg.Name, err)
			}
			if bucket == schema.BucketExtra {
				r.extra.Set(cfg.Name, v)
			} else {
				r.attrs.Set(cfg.Name, v)
			}
			continue
		}
		if refl, ok := r.typ.reflections.Get(key); ok && refl.IsExtra() {
			r.extra.Set(key, raw)
			continue
		}
		r.attrs.Set(key, raw)
	}
}

func (r *Record) tolerate(ctx context.Context, name string, err error) {
	logging.WarningsFrom(ctx).Add(fmt.Errorf("%s.%s: %w", r.typ.name, name, err))
	r.typ.client.logger.Info("kept invalid attribute value",
		zap.String("type", r.typ.name),
		zap.String("attribute", name),
		zap.Error(err),
	)
}

// ResourceType returns the record's type
func (r *Record) ResourceType() recordmap.Type { return r.typ }

// Type returns the record's concrete type
func (r *Record) Type() *Type { return r.typ }

// Attributes returns the inline attribute store
func (r *Record) Attributes() *orderedmap.OrderedMap { return r.attrs }

// ExtraValues returns the store of loaded extra attributes
func (r *Record) ExtraValues() *orderedmap.OrderedMap { return r.extra }

// LoadOptions returns the coercion options of the record's client
func (r *Record) LoadOptions() schema.LoadOptions {
	return schema.LoadOptions{Location: r.typ.client.location}
}

// PrefixOptions returns the prefix placeholder values the record was loaded with
func (r *Record) PrefixOptions() map[string]any {
	return maps.Clone(r.prefixOptions)
}

// SetPrefixOptions sets the prefix placeholder values used for the record's paths
func (r *Record) SetPrefixOptions(opts map[string]any) {
	r.prefixOptions = maps.Clone(opts)
	if r.prefixOptions == nil {
		r.prefixOptions = make(map[string]any)
	}
}

// ID returns the primary key value
func (r *Record) ID() any {
	v, _ := r.attrs.Get(r.typ.primaryKey)
	return v
}

// IsNew reports whether the record has never been saved
func (r *Record) IsNew() bool { return !r.persisted }

// Persisted reports whether the record exists remotely
func (r *Record) Persisted() bool { return r.persisted }

// Responds reports whether name is an accessor or a loaded attribute
func (r *Record) Responds(name string) bool {
	if _, ok := r.typ.methods.Lookup(name); ok {
		return true
	}
	if _, ok := r.attrs.Get(name); ok {
		return true
	}
	_, ok := r.extra.Get(name)
	return ok
}

// Get reads name through its accessor, falling back to undeclared loaded values
func (r *Record) Get(ctx context.Context, name string) (any, error) {
	if acc, ok := r.typ.methods.Lookup(name); ok && acc.Get != nil {
		return acc.Get(ctx, r)
	}
	if v, ok := r.attrs.Get(name); ok {
		return v, nil
	}
	if v, ok := r.extra.Get(name); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s has no attribute %s", ErrUnknownAttribute, r.typ.name, name)
}

// Set writes name through its accessor. Declared attributes without an
// accessor are coerced strictly; undeclared names are stored raw.
func (r *Record) Set(name string, value any) error {
	if acc, ok := r.typ.methods.Lookup(name); ok {
		if acc.Set == nil {
			return fmt.Errorf("%w: %s.%s", ErrReadOnly, r.typ.name, name)
		}
		return acc.Set(r, value)
	}
	if cfg, bucket, ok := r.typ.schema.Lookup(name); ok {
		v, err := cfg.Coerce(value, r.LoadOptions())
		if err != nil {
			return err
		}
		if bucket == schema.BucketExtra {
			r.extra.Set(name, v)
		} else {
			r.attrs.Set(name, v)
		}
		return nil
	}
	r.attrs.Set(name, value)
	return nil
}

// attr reads a raw attribute without accessors
func (r *Record) attr(name string) any {
	v, _ := r.attrs.Get(name)
	return v
}

func (r *Record) merge(fresh *Record) {
	if fresh == nil {
		return
	}
	for _, key := range fresh.attrs.Keys() {
		v, _ := fresh.attrs.Get(key)
		r.attrs.Set(key, v)
	}
	for _, key := range fresh.extra.Keys() {
		v, _ := fresh.extra.Get(key)
		r.extra.Set(key, v)
	}
	r.persisted = true
	r.synced()
}

func (r *Record) synced() { r.tracker.Reset(r.Values()) }

// Changed reports whether name was modified since the record was last loaded or saved
func (r *Record) Changed(name string) bool {
	return r.tracker.Changed(name, r.Values())
}

// Changes returns the values modified since the record was last loaded or
// saved. Every value of a new record is a change.
func (r *Record) Changes() map[string]tracking.Change {
	return r.tracker.Changes(r.Values())
}

// Reload refetches the record and merges the result into it
func (r *Record) Reload(ctx context.Context, opts ...query.Options) error {
	if r.IsNew() {
		return fmt.Errorf("%w: reload %s", ErrNotPersisted, r.typ.name)
	}
	sources := append([]query.Options{{Params: maps.Clone(r.prefixOptions)}}, opts...)
	fresh, err := r.typ.Query(sources...).Find(ctx, r.ID())
	if err != nil {
		return err
	}
	r.merge(fresh)
	return nil
}

// LoadExtra fetches the named extra attributes or associations in one request.
// Names the response leaves out are recorded as nil so they are not refetched.
func (r *Record) LoadExtra(ctx context.Context, names ...string) error {
	if r.IsNew() {
		return fmt.Errorf("%w: load extra %s of %s", ErrNotPersisted, strings.Join(names, ", "), r.typ.name)
	}

	params := maps.Clone(r.prefixOptions)
	if params == nil {
		params = make(map[string]any)
	}
	params[query.KeyExtra] = r.typ.ExtraParams(names, false, true, nil)

	fresh, err := r.typ.FindByID(ctx, r.ID(), query.FindOptions{Params: params})
	if err != nil {
		return err
	}
	r.merge(fresh)
	for _, name := range names {
		if _, ok := r.extra.Get(name); !ok {
			r.extra.Set(name, nil)
		}
	}
	r.synced()
	return nil
}

// Save creates the record with POST when new, otherwise updates it with PUT.
// A response body is loaded back into the record; a created record without
// an id in the body takes it from the Location header.
func (r *Record) Save(ctx context.Context) error {
	body, err := r.encode()
	if err != nil {
		return err
	}

	if r.IsNew() {
		p, err := r.typ.CollectionPath(r.prefixOptions, nil)
		if err != nil {
			return err
		}
		resp, err := r.typ.request(ctx, http.MethodPost, p, body)
		if err != nil {
			return err
		}
		if err := r.loadResponse(ctx, resp); err != nil {
			return err
		}
		if r.ID() == nil {
			if id := idFromLocation(resp.Header.Get("Location")); id != "" {
				if err := r.Set(r.typ.primaryKey, id); err != nil {
					r.attrs.Set(r.typ.primaryKey, id)
				}
			}
		}
		r.persisted = true
		r.synced()
		return nil
	}

	p, err := r.elementPath(nil)
	if err != nil {
		return err
	}
	resp, err := r.typ.request(ctx, http.MethodPut, p, body)
	if err != nil {
		return err
	}
	if err := r.loadResponse(ctx, resp); err != nil {
		return err
	}
	r.synced()
	return nil
}

// Destroy deletes the record remotely
func (r *Record) Destroy(ctx context.Context) error {
	if r.IsNew() {
		return fmt.Errorf("%w: destroy %s", ErrNotPersisted, r.typ.name)
	}
	p, err := r.elementPath(nil)
	if err != nil {
		return err
	}
	_, err = r.typ.request(ctx, http.MethodDelete, p, nil)
	return err
}

func (r *Record) elementPath(q map[string]any) (string, error) {
	if r.typ.singleton {
		return r.typ.SingletonPath(r.prefixOptions, q)
	}
	return r.typ.ElementPath(r.ID(), r.prefixOptions, q)
}

func (r *Record) encode() ([]byte, error) {
	payload := r.ToMap()
	if r.ID() == nil {
		delete(payload, r.wireName(r.typ.primaryKey))
	}
	if r.typ.includeRoot {
		return r.typ.client.format.Encode(map[string]any{r.typ.elementName: payload})
	}
	return r.typ.client.format.Encode(payload)
}

func (r *Record) loadResponse(ctx context.Context, resp *connection.Response) error {
	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil
	}
	data, err := r.typ.client.format.Decode(resp.Body)
	if err != nil {
		return err
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	r.load(ctx, m)
	return nil
}

// idFromLocation takes the last path segment of a Location header, without extension
func idFromLocation(location string) string {
	if location == "" {
		return ""
	}
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	base := path.Base(location)
	if base == "/" || base == "." {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func (r *Record) wireName(name string) string {
	if cfg, _, ok := r.typ.schema.Lookup(name); ok {
		return cfg.WireName
	}
	return name
}

// ToMap returns the inline attributes keyed by wire name
func (r *Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.attrs.Keys()))
	for _, key := range r.attrs.Keys() {
		v, _ := r.attrs.Get(key)
		out[r.wireName(key)] = v
	}
	return out
}

// Values returns inline and loaded extra values keyed by local name
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.attrs.Keys())+len(r.extra.Keys()))
	for _, key := range r.attrs.Keys() {
		out[key], _ = r.attrs.Get(key)
	}
	for _, key := range r.extra.Keys() {
		out[key], _ = r.extra.Get(key)
	}
	return out
}

// Decode copies the record's values into out, a pointer to a struct or map.
// Struct fields match on their json tag.
func (r *Record) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return dec.Decode(r.Values())
}

// CustomGet calls a custom element method, GET /collection/:id/method
func (r *Record) CustomGet(ctx context.Context, method string, params map[string]any) (any, error) {
	prefix, err := r.typ.Prefix(r.prefixOptions)
	if err != nil {
		return nil, err
	}
	_, q := r.typ.SplitOptions(params)
	p := prefix + r.typ.collectionName + "/" + url.PathEscape(cast.ToString(r.ID())) + "/" + method + r.typ.ext()
	return r.typ.get(ctx, p+format.QueryString(q))
}

func (r *Record) String() string {
	return fmt.Sprintf("#<%s %s=%v>", r.typ.name, r.typ.primaryKey, r.ID())
}
