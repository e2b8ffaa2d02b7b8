// Package query provides the deferred query builder for remote resources.
// A Delegation accumulates where/includes/extra/order state, compiles it into
// request params once per terminal call and memoizes the results.
package query

import (
	"context"
	"maps"
)

// FindOptions are compiled, wire-ready find options
type FindOptions struct {
	Params map[string]any
	From   string
}

// Target is the resource type a delegation runs against
type Target[R any] interface {
	FindEvery(ctx context.Context, opts FindOptions) ([]R, error)
	FindFirst(ctx context.Context, opts FindOptions) (R, error)
	FindLast(ctx context.Context, opts FindOptions) (R, error)
	FindByID(ctx context.Context, id any, opts FindOptions) (R, error)
	Count(ctx context.Context, opts FindOptions) (int64, error)
	Invoke(ctx context.Context, opts FindOptions) (any, error)

	BuildBelongsToParams(params map[string]any) error
	BuildHasManyParams(ctx context.Context, params map[string]any) error
	// ExtraParams returns the __extra__ entries for a find: default extras,
	// requested names, and nested default extras of included associations.
	ExtraParams(requested []string, all, none bool, includes []string) []any
}

const (
	opAll   = "all"
	opFirst = "first"
	opLast  = "last"
	opCount = "count"
	opSum   = "sum:"
)

// Delegation is a chainable, lazily materialized query. It is not safe for
// concurrent use.
type Delegation[R any] struct {
	target Target[R]
	opts   Options
	err    error
	cache  map[string]any
}

// New creates a delegation over target seeded with opts
func New[R any](target Target[R], opts ...Options) *Delegation[R] {
	d := &Delegation[R]{target: target, cache: make(map[string]any)}
	d.opts = Options{Params: make(map[string]any)}
	for _, o := range opts {
		d.absorb(o)
	}
	return d
}

func (d *Delegation[R]) absorb(o Options) {
	maps.Copy(d.opts.Params, o.Params)
	d.opts.Includes = append(d.opts.Includes, o.Includes...)
	d.opts.Extra = append(d.opts.Extra, o.Extra...)
	d.opts.OrderBy = append(d.opts.OrderBy, o.OrderBy...)
	d.opts.ExtraAll = d.opts.ExtraAll || o.ExtraAll
	d.opts.ExtraNone = d.opts.ExtraNone || o.ExtraNone
	if o.Sum != "" {
		d.opts.Sum = o.Sum
	}
	if o.From != "" {
		d.opts.From = o.From
	}
}

func (d *Delegation[R]) invalidate() *Delegation[R] {
	d.cache = make(map[string]any)
	return d
}

// Where shallow-merges clauses into the params
func (d *Delegation[R]) Where(clauses map[string]any) *Delegation[R] {
	maps.Copy(d.opts.Params, clauses)
	return d.invalidate()
}

// Includes adds associations to include
func (d *Delegation[R]) Includes(names ...string) *Delegation[R] {
	d.opts.Includes = append(d.opts.Includes, names...)
	return d.invalidate()
}

// Extra requests extra attributes
func (d *Delegation[R]) Extra(names ...string) *Delegation[R] {
	d.opts.Extra = append(d.opts.Extra, names...)
	return d.invalidate()
}

// ExtraAll requests every extra attribute
func (d *Delegation[R]) ExtraAll() *Delegation[R] {
	d.opts.ExtraAll = true
	return d.invalidate()
}

// ExtraNone drops the default-requested extra attributes
func (d *Delegation[R]) ExtraNone() *Delegation[R] {
	d.opts.ExtraNone = true
	return d.invalidate()
}

// Order sorts ascending by each field
func (d *Delegation[R]) Order(fields ...string) *Delegation[R] {
	for _, field := range fields {
		d.opts.OrderBy = append(d.opts.OrderBy, Order{Field: field, Direction: Asc})
	}
	return d.invalidate()
}

// OrderDir sorts by field in dir. None removes the field; an unknown
// direction is reported by the next terminal call.
func (d *Delegation[R]) OrderDir(field string, dir any) *Delegation[R] {
	direction, err := ParseDirection(dir)
	if err != nil {
		d.setErr(err)
		return d.invalidate()
	}
	d.opts.OrderBy = append(d.opts.OrderBy, Order{Field: field, Direction: direction})
	return d.invalidate()
}

// OrderMap applies any order shape NormalizeOrder accepts
func (d *Delegation[R]) OrderMap(order any) *Delegation[R] {
	orders, err := NormalizeOrder(order)
	if err != nil {
		d.setErr(err)
		return d.invalidate()
	}
	d.opts.OrderBy = append(d.opts.OrderBy, orders...)
	return d.invalidate()
}

// From fetches from a custom path instead of the collection path
func (d *Delegation[R]) From(path string) *Delegation[R] {
	d.opts.From = path
	return d.invalidate()
}

func (d *Delegation[R]) setErr(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Err returns the first error recorded while chaining
func (d *Delegation[R]) Err() error {
	return d.err
}

// Options returns a copy of the accumulated options
func (d *Delegation[R]) Options() Options {
	return d.opts.Clone()
}

// Clone returns an independent delegation with the same state and an empty cache
func (d *Delegation[R]) Clone() *Delegation[R] {
	return &Delegation[R]{
		target: d.target,
		opts:   d.opts.Clone(),
		err:    d.err,
		cache:  make(map[string]any),
	}
}

// Cached returns the memoized result of op ("all", "first", "last", "count" or "sum:<field>")
func (d *Delegation[R]) Cached(op string) (any, bool) {
	v, ok := d.cache[op]
	return v, ok
}

// BuildOptions merges the accumulated state with call-site options, rewrites
// association params and emits the reserved wire keys.
func (d *Delegation[R]) BuildOptions(ctx context.Context, extra ...Options) (FindOptions, error) {
	if d.err != nil {
		return FindOptions{}, d.err
	}

	merged, err := MergeOptions(append([]Options{d.opts}, extra...)...)
	if err != nil {
		return FindOptions{}, err
	}

	params := merged.Params
	if err := d.target.BuildBelongsToParams(params); err != nil {
		return FindOptions{}, err
	}
	if err := d.target.BuildHasManyParams(ctx, params); err != nil {
		return FindOptions{}, err
	}

	if len(merged.Includes) > 0 {
		params[KeyIncludes] = merged.Includes
	}
	if exts := d.target.ExtraParams(merged.Extra, merged.ExtraAll, merged.ExtraNone, merged.Includes); len(exts) > 0 {
		params[KeyExtra] = exts
	}
	if len(merged.OrderBy) > 0 {
		order := NewOrderBy()
		order.Apply(merged.OrderBy...)
		params[KeyOrderBy] = order.Wire()
	}
	if merged.Sum != "" {
		params[KeyInvoke] = map[string]any{"method_name": "sum", "args": merged.Sum}
	}

	return FindOptions{Params: params, From: merged.From}, nil
}

// All fetches every matching record once
func (d *Delegation[R]) All(ctx context.Context) ([]R, error) {
	if v, ok := d.cache[opAll]; ok {
		return v.([]R), nil
	}
	opts, err := d.BuildOptions(ctx)
	if err != nil {
		return nil, err
	}
	records, err := d.target.FindEvery(ctx, opts)
	if err != nil {
		return nil, err
	}
	d.cache[opAll] = records
	return records, nil
}

// First returns the first matching record, from a cached All when present
func (d *Delegation[R]) First(ctx context.Context) (R, error) {
	return d.edge(ctx, opFirst, d.target.FindFirst, func(all []R) int { return 0 })
}

// Last returns the last matching record, from a cached All when present
func (d *Delegation[R]) Last(ctx context.Context) (R, error) {
	return d.edge(ctx, opLast, d.target.FindLast, func(all []R) int { return len(all) - 1 })
}

func (d *Delegation[R]) edge(ctx context.Context, op string, find func(context.Context, FindOptions) (R, error), pick func([]R) int) (R, error) {
	var zero R
	if v, ok := d.cache[op]; ok {
		return v.(R), nil
	}
	if v, ok := d.cache[opAll]; ok {
		all := v.([]R)
		if len(all) == 0 {
			return zero, nil
		}
		return all[pick(all)], nil
	}

	opts, err := d.BuildOptions(ctx)
	if err != nil {
		return zero, err
	}
	record, err := find(ctx, opts)
	if err != nil {
		return zero, err
	}
	d.cache[op] = record
	return record, nil
}

// Count returns the number of matching records
func (d *Delegation[R]) Count(ctx context.Context) (int64, error) {
	if v, ok := d.cache[opCount]; ok {
		return v.(int64), nil
	}
	opts, err := d.BuildOptions(ctx)
	if err != nil {
		return 0, err
	}
	n, err := d.target.Count(ctx, opts)
	if err != nil {
		return 0, err
	}
	d.cache[opCount] = n
	return n, nil
}

// Sum asks the remote side to sum field over the matching records
func (d *Delegation[R]) Sum(ctx context.Context, field string) (any, error) {
	key := opSum + field
	if v, ok := d.cache[key]; ok {
		return v, nil
	}
	opts, err := d.BuildOptions(ctx, Options{Sum: field})
	if err != nil {
		return nil, err
	}
	v, err := d.target.Invoke(ctx, opts)
	if err != nil {
		return nil, err
	}
	d.cache[key] = v
	return v, nil
}

// Exists reports whether any record matches, using a cached All or Count when present
func (d *Delegation[R]) Exists(ctx context.Context) (bool, error) {
	if v, ok := d.cache[opAll]; ok {
		return len(v.([]R)) > 0, nil
	}
	n, err := d.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Size returns the length of a cached All, else Count
func (d *Delegation[R]) Size(ctx context.Context) (int64, error) {
	if v, ok := d.cache[opAll]; ok {
		return int64(len(v.([]R))), nil
	}
	return d.Count(ctx)
}

// Find fetches one record by id with the accumulated options. It is not memoized.
func (d *Delegation[R]) Find(ctx context.Context, id any) (R, error) {
	var zero R
	opts, err := d.BuildOptions(ctx)
	if err != nil {
		return zero, err
	}
	return d.target.FindByID(ctx, id, opts)
}
