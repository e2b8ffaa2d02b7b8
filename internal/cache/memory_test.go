package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "people", []byte(`[{"id":1}]`), time.Minute))

	value, err := c.Get(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(value))

	_, err = c.Get(ctx, "missing")
	assert.True(t, IsCacheMiss(err))
	assert.EqualError(t, err, "cache miss: missing")
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("b"), -1))
	require.NoError(t, c.Set(ctx, "default", []byte("c"), 0))

	clock = clock.Add(2 * time.Second)

	_, err := c.Get(ctx, "short")
	assert.True(t, IsCacheMiss(err))

	ok, err := c.Exists(ctx, "default")
	require.NoError(t, err)
	assert.True(t, ok)

	clock = clock.Add(time.Hour)

	ok, err = c.Exists(ctx, "default")
	require.NoError(t, err)
	assert.False(t, ok)

	value, err := c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "b", string(value))
}

func TestMemoryCache_DeletePrefix(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "GET:/people.json:aa", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "GET:/people.json:bb", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "GET:/projects.json:cc", []byte("3"), 0))
	require.NoError(t, c.Set(ctx, "GET:/people/1.json:dd", []byte("4"), 0))

	require.NoError(t, c.DeletePrefix(ctx, PathPrefix("/people.json?page=2")))
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.DeletePrefix(ctx, PathPrefix("/people")))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "GET:/projects.json:cc"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_CancelledContext(t *testing.T) {
	c := NewMemoryCache()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, c.Set(ctx, "a", nil, 0), context.Canceled)
}

func TestMemoryCache_ValueIsCopied(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(value))
}

func TestKeyGenerator(t *testing.T) {
	kg := DefaultKeyGenerator()
	header := map[string][]string{"Accept": {"application/json"}}

	a := kg.GenerateKey("GET", "/people.json?b=2&a=1", header)
	b := kg.GenerateKey("GET", "/people.json?a=1&b=2", header)
	assert.Equal(t, a, b, "query order must not matter")
	assert.Contains(t, a, PathPrefix("/people.json"))

	c := kg.GenerateKey("GET", "/people.json?a=1&b=2", map[string][]string{"Accept": {"application/xml"}})
	assert.NotEqual(t, a, c)

	d := kg.GenerateKey("GET", "/people.json?a=1&b=3", header)
	assert.NotEqual(t, a, d)
}
