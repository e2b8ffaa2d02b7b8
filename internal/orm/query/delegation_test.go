package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct{ id int }

type fakeTarget struct {
	items    []*item
	calls    map[string]int
	last     FindOptions
	defaults []string
	failWith error
}

func newFakeTarget(n int) *fakeTarget {
	f := &fakeTarget{calls: map[string]int{}}
	for i := 1; i <= n; i++ {
		f.items = append(f.items, &item{id: i})
	}
	return f
}

func (f *fakeTarget) record(op string, opts FindOptions) error {
	f.calls[op]++
	f.last = opts
	return f.failWith
}

func (f *fakeTarget) FindEvery(_ context.Context, opts FindOptions) ([]*item, error) {
	if err := f.record("every", opts); err != nil {
		return nil, err
	}
	return f.items, nil
}

func (f *fakeTarget) FindFirst(_ context.Context, opts FindOptions) (*item, error) {
	if err := f.record("first", opts); err != nil || len(f.items) == 0 {
		return nil, err
	}
	return f.items[0], nil
}

func (f *fakeTarget) FindLast(_ context.Context, opts FindOptions) (*item, error) {
	if err := f.record("last", opts); err != nil || len(f.items) == 0 {
		return nil, err
	}
	return f.items[len(f.items)-1], nil
}

func (f *fakeTarget) FindByID(_ context.Context, id any, opts FindOptions) (*item, error) {
	if err := f.record("id", opts); err != nil {
		return nil, err
	}
	return &item{id: id.(int)}, nil
}

func (f *fakeTarget) Count(_ context.Context, opts FindOptions) (int64, error) {
	if err := f.record("count", opts); err != nil {
		return 0, err
	}
	return int64(len(f.items)), nil
}

func (f *fakeTarget) Invoke(_ context.Context, opts FindOptions) (any, error) {
	if err := f.record("invoke", opts); err != nil {
		return nil, err
	}
	return 42.5, nil
}

func (f *fakeTarget) BuildBelongsToParams(params map[string]any) error {
	if owner, ok := params["owner"]; ok {
		delete(params, "owner")
		params["owner_id"] = []any{owner.(*item).id}
	}
	return nil
}

func (f *fakeTarget) BuildHasManyParams(context.Context, map[string]any) error { return nil }

func (f *fakeTarget) ExtraParams(requested []string, all, none bool, _ []string) []any {
	var out []any
	if !none {
		for _, d := range f.defaults {
			out = append(out, d)
		}
	}
	if all {
		return append(out, "everything")
	}
	for _, r := range requested {
		out = append(out, r)
	}
	return out
}

func TestAllIsMemoized(t *testing.T) {
	target := newFakeTarget(3)
	d := New[*item](target)

	first, err := d.All(context.Background())
	require.NoError(t, err)
	second, err := d.All(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, target.calls["every"])

	d.Where(map[string]any{"name": "x"})
	_, ok := d.Cached("all")
	assert.False(t, ok)

	_, err = d.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, target.calls["every"])
	assert.Equal(t, "x", target.last.Params["name"])
}

func TestFirstLastFromCachedAll(t *testing.T) {
	target := newFakeTarget(3)
	d := New[*item](target)
	ctx := context.Background()

	_, err := d.All(ctx)
	require.NoError(t, err)

	first, err := d.First(ctx)
	require.NoError(t, err)
	last, err := d.Last(ctx)
	require.NoError(t, err)
	size, err := d.Size(ctx)
	require.NoError(t, err)
	exists, err := d.Exists(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, first.id)
	assert.Equal(t, 3, last.id)
	assert.Equal(t, int64(3), size)
	assert.True(t, exists)
	assert.Equal(t, map[string]int{"every": 1}, target.calls)
}

func TestTerminalOpsMemoizedSeparately(t *testing.T) {
	target := newFakeTarget(2)
	d := New[*item](target)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := d.First(ctx)
		require.NoError(t, err)
		_, err = d.Last(ctx)
		require.NoError(t, err)
		_, err = d.Count(ctx)
		require.NoError(t, err)
		_, err = d.Sum(ctx, "price")
		require.NoError(t, err)
		_, err = d.Exists(ctx)
		require.NoError(t, err)
		_, err = d.Size(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, map[string]int{"first": 1, "last": 1, "count": 1, "invoke": 1}, target.calls)

	v, ok := d.Cached("sum:price")
	require.True(t, ok)
	assert.Equal(t, 42.5, v)
	assert.Equal(t, map[string]any{"method_name": "sum", "args": "price"}, target.last.Params[KeyInvoke])

	_, err := d.Sum(ctx, "qty")
	require.NoError(t, err)
	assert.Equal(t, 2, target.calls["invoke"])
}

func TestFirstOnEmptyCachedAll(t *testing.T) {
	target := newFakeTarget(0)
	d := New[*item](target)
	ctx := context.Background()

	_, err := d.All(ctx)
	require.NoError(t, err)
	first, err := d.First(ctx)
	require.NoError(t, err)
	assert.Nil(t, first)

	exists, err := d.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBuildOptionsEmitsWireKeys(t *testing.T) {
	target := newFakeTarget(1)
	target.defaults = []string{"summary"}

	d := New[*item](target).
		Where(map[string]any{"owner": &item{id: 9}, "state": "open"}).
		Includes("projects", "projects").
		Extra("bio").
		Order("name").
		OrderDir("created_at", "desc")

	opts, err := d.BuildOptions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []any{9}, opts.Params["owner_id"])
	assert.NotContains(t, opts.Params, "owner")
	assert.Equal(t, "open", opts.Params["state"])
	assert.Equal(t, []string{"projects"}, opts.Params[KeyIncludes])
	assert.Equal(t, []any{"summary", "bio"}, opts.Params[KeyExtra])

	order := NewOrderBy()
	order.Apply(Order{"name", Asc}, Order{"created_at", Desc})
	assert.Equal(t, order.Wire(), opts.Params[KeyOrderBy])
	assert.NotContains(t, opts.Params, KeyInvoke)

	opts, err = d.ExtraNone().BuildOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"bio"}, opts.Params[KeyExtra])
}

func TestOrderNoneRemovesField(t *testing.T) {
	d := New[*item](newFakeTarget(0)).Order("name", "id").OrderDir("name", "none")

	opts, err := d.BuildOptions(context.Background())
	require.NoError(t, err)

	order := NewOrderBy()
	order.Apply(Order{"id", Asc})
	assert.Equal(t, order.Wire(), opts.Params[KeyOrderBy])
}

func TestInvalidOrderIsDeferred(t *testing.T) {
	target := newFakeTarget(1)
	d := New[*item](target).OrderDir("name", "sideways")

	_, err := d.All(context.Background())
	assert.ErrorIs(t, err, ErrInvalidOrder)
	assert.ErrorIs(t, d.Err(), ErrInvalidOrder)
	assert.Empty(t, target.calls)

	_, err = New[*item](target).OrderMap(map[string]any{"name": 3}).Count(context.Background())
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = New[*item](target, Options{OrderBy: []Order{{"name", "sideways"}}}).All(context.Background())
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = New[*item](target).BuildOptions(context.Background(), Options{OrderBy: []Order{{"name", "up"}}})
	assert.ErrorIs(t, err, ErrInvalidOrder)
	assert.Empty(t, target.calls)
}

func TestTransportErrorNotCached(t *testing.T) {
	target := newFakeTarget(1)
	target.failWith = errors.New("boom")
	d := New[*item](target)

	_, err := d.All(context.Background())
	assert.EqualError(t, err, "boom")
	_, ok := d.Cached("all")
	assert.False(t, ok)

	target.failWith = nil
	all, err := d.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCloneAndFind(t *testing.T) {
	target := newFakeTarget(2)
	d := New[*item](target, Options{Params: map[string]any{"a": 1}})
	_, err := d.All(context.Background())
	require.NoError(t, err)

	clone := d.Clone().Where(map[string]any{"b": 2})
	_, ok := clone.Cached("all")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"a": 1}, d.Options().Params)

	found, err := clone.Find(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, found.id)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, target.last.Params)

	_, err = clone.Find(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, target.calls["id"])
}
