package resource

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/conduit-lang/restorm/internal/connection"
	"github.com/conduit-lang/restorm/internal/format"
	"github.com/conduit-lang/restorm/internal/orm/query"
)

func (t *Type) request(ctx context.Context, method, path string, body []byte) (*connection.Response, error) {
	return t.client.transport.Request(ctx, method, path, body, t.Headers())
}

func (t *Type) get(ctx context.Context, path string) (any, error) {
	resp, err := t.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return t.client.format.Decode(resp.Body)
}

// collectionTarget resolves the path a collection find reads from. A From
// starting with "/" is a literal path, any other From names a custom
// collection method.
func (t *Type) collectionTarget(opts query.FindOptions) (string, map[string]any, error) {
	prefixOptions, q := t.SplitOptions(opts.Params)
	var (
		path string
		err  error
	)
	switch {
	case opts.From == "":
		path, err = t.CollectionPath(prefixOptions, q)
	case strings.HasPrefix(opts.From, "/"):
		path = opts.From + format.QueryString(opts.Params)
	default:
		path, err = t.CustomMethodCollectionPath(opts.From, prefixOptions, q)
	}
	return path, prefixOptions, err
}

// FindEvery fetches the collection. A 404 yields no records rather than an error.
func (t *Type) FindEvery(ctx context.Context, opts query.FindOptions) ([]*Record, error) {
	path, prefixOptions, err := t.collectionTarget(opts)
	if err != nil {
		return nil, err
	}

	resp, err := t.request(ctx, http.MethodGet, path, nil)
	if errors.Is(err, connection.ErrResourceNotFound) {
		t.client.logger.Debug("collection not found", zap.String("type", t.name), zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data any
	if t.collectionPath == "" {
		data, err = t.client.format.Decode(resp.Body)
	} else {
		data, err = t.client.format.DecodePath(resp.Body, t.collectionPath)
	}
	if err != nil {
		return nil, err
	}
	return t.instantiateCollection(ctx, data, prefixOptions)
}

// FindFirst returns the first record of the collection, or nil
func (t *Type) FindFirst(ctx context.Context, opts query.FindOptions) (*Record, error) {
	records, err := t.FindEvery(ctx, opts)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// FindLast returns the last record of the collection, or nil
func (t *Type) FindLast(ctx context.Context, opts query.FindOptions) (*Record, error) {
	records, err := t.FindEvery(ctx, opts)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[len(records)-1], nil
}

// FindByID fetches one record. A singleton type ignores id.
func (t *Type) FindByID(ctx context.Context, id any, opts query.FindOptions) (*Record, error) {
	if t.singleton {
		return t.FindSingleton(ctx, opts)
	}
	if id == nil {
		return nil, fmt.Errorf("%w: find %s without id", ErrNotPersisted, t.name)
	}

	prefixOptions, q := t.SplitOptions(opts.Params)
	path, err := t.ElementPath(id, prefixOptions, q)
	if err != nil {
		return nil, err
	}
	return t.fetchOne(ctx, path, prefixOptions)
}

// FindSingleton fetches a singleton resource
func (t *Type) FindSingleton(ctx context.Context, opts query.FindOptions) (*Record, error) {
	prefixOptions, q := t.SplitOptions(opts.Params)
	path, err := t.SingletonPath(prefixOptions, q)
	if err != nil {
		return nil, err
	}
	return t.fetchOne(ctx, path, prefixOptions)
}

// FindOne fetches one record from opts.From, a literal path or a custom
// collection method
func (t *Type) FindOne(ctx context.Context, opts query.FindOptions) (*Record, error) {
	if opts.From == "" {
		return nil, fmt.Errorf("find one %s: from is required", t.name)
	}
	path, prefixOptions, err := t.collectionTarget(opts)
	if err != nil {
		return nil, err
	}
	return t.fetchOne(ctx, path, prefixOptions)
}

func (t *Type) fetchOne(ctx context.Context, path string, prefixOptions map[string]any) (*Record, error) {
	data, err := t.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return t.Instantiate(ctx, data, true, prefixOptions)
}

// Count asks the remote side for the number of matching records
func (t *Type) Count(ctx context.Context, opts query.FindOptions) (int64, error) {
	params := maps.Clone(opts.Params)
	if params == nil {
		params = make(map[string]any)
	}
	params[query.KeyInvoke] = map[string]any{"method_name": "count"}

	v, err := t.Invoke(ctx, query.FindOptions{Params: params, From: opts.From})
	if err != nil {
		return 0, err
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: count of %s is %T", ErrUnexpectedPayload, t.name, v)
	}
	return n, nil
}

// Invoke runs a collection read whose response is a computed value rather
// than records. A single-key object is unwrapped to its value.
func (t *Type) Invoke(ctx context.Context, opts query.FindOptions) (any, error) {
	path, _, err := t.collectionTarget(opts)
	if err != nil {
		return nil, err
	}
	v, err := t.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		for _, inner := range m {
			return inner, nil
		}
	}
	return v, nil
}

// Query starts a delegation over t
func (t *Type) Query(opts ...query.Options) *query.Delegation[*Record] {
	return query.New[*Record](t, opts...)
}

// Where starts a delegation filtered by clauses
func (t *Type) Where(clauses map[string]any) *query.Delegation[*Record] {
	return t.Query().Where(clauses)
}

// Includes starts a delegation including associations
func (t *Type) Includes(names ...string) *query.Delegation[*Record] {
	return t.Query().Includes(names...)
}

// Extra starts a delegation requesting extra attributes
func (t *Type) Extra(names ...string) *query.Delegation[*Record] {
	return t.Query().Extra(names...)
}

// Order starts a delegation sorted ascending by fields
func (t *Type) Order(fields ...string) *query.Delegation[*Record] {
	return t.Query().Order(fields...)
}

// All fetches every record matching opts
func (t *Type) All(ctx context.Context, opts ...query.Options) ([]*Record, error) {
	return t.Query(opts...).All(ctx)
}

// First fetches the first record matching opts
func (t *Type) First(ctx context.Context, opts ...query.Options) (*Record, error) {
	return t.Query(opts...).First(ctx)
}

// Last fetches the last record matching opts
func (t *Type) Last(ctx context.Context, opts ...query.Options) (*Record, error) {
	return t.Query(opts...).Last(ctx)
}

// Find fetches one record by id, requesting the default extras
func (t *Type) Find(ctx context.Context, id any, opts ...query.Options) (*Record, error) {
	return t.Query(opts...).Find(ctx, id)
}
