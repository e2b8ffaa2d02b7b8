package resource

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/restorm/internal/connection"
	"github.com/conduit-lang/restorm/internal/format"
	"github.com/conduit-lang/restorm/internal/orm/recordmap"
	"github.com/conduit-lang/restorm/internal/orm/relationships"
	"github.com/conduit-lang/restorm/internal/orm/schema"
)

func TestPaths(t *testing.T) {
	c := offlineClient(t, "http://example.com/api")
	person, err := c.Define("Person")
	require.NoError(t, err)

	p, err := person.ElementPath(1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/people/1.json", p)

	p, err = person.ElementPath("?", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/people/%3F.json", p)

	p, err = person.ElementPath("../", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/people/..%2F.json", p)

	p, err = person.CollectionPath(nil, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "/api/people.json?name=Ann", p)

	p, err = person.CustomMethodCollectionPath("active", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/people/active.json", p)

	profile, err := c.Define("Profile", Singleton())
	require.NoError(t, err)
	p, err = profile.SingletonPath(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/profile.json", p)

	item, err := c.Define("Shop::LineItem")
	require.NoError(t, err)
	assert.Equal(t, "line_item", item.ElementName())
	assert.Equal(t, "line_items", item.CollectionName())

	custom, err := c.Define("Human", WithElementName("person"), WithCollectionName("humans"))
	require.NoError(t, err)
	p, err = custom.ElementPath(3, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/humans/3.json", p)
}

func TestPrefixParams(t *testing.T) {
	c := offlineClient(t, "http://example.com")
	dog, err := c.Define("Dog", WithPrefix("/people/:person_id"))
	require.NoError(t, err)

	assert.Equal(t, []string{"person_id"}, dog.PrefixParams())

	_, err = dog.CollectionPath(nil, nil)
	assert.ErrorIs(t, err, ErrMissingPrefixParam)

	p, err := dog.ElementPath(2, map[string]any{"person_id": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/people/1/dogs/2.json", p)

	prefixOptions, query := dog.SplitOptions(map[string]any{"person_id": 1, "name": "Rex"})
	assert.Equal(t, map[string]any{"person_id": 1}, prefixOptions)
	assert.Equal(t, map[string]any{"name": "Rex"}, query)
}

func TestXMLExtension(t *testing.T) {
	c := offlineClient(t, "http://example.com", connection.WithFormat(format.XML))
	person, err := c.Define("Person")
	require.NoError(t, err)

	p, err := person.ElementPath(1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/people/1.xml", p)
}

func TestCatalog(t *testing.T) {
	c := offlineClient(t, "http://example.com")
	person, err := c.Define("Person")
	require.NoError(t, err)
	project, err := c.Define("Project")
	require.NoError(t, err)

	_, err = c.Define("Person")
	assert.ErrorIs(t, err, ErrDuplicateType)

	assert.Equal(t, []*Type{person, project}, c.Types())
	assert.NotNil(t, NewClient(c.transport, WithLogger(nil)).Logger())
	got, ok := c.Type("Project")
	require.True(t, ok)
	assert.Same(t, project, got)

	rt, ok := c.Registry().ResourceClass("Person")
	require.True(t, ok)
	assert.Same(t, person, rt)

	_, err = c.Registry().MustResourceClass("Nope")
	assert.ErrorIs(t, err, recordmap.ErrTypeNotFound)
}

func TestFindInstance(t *testing.T) {
	c := offlineClient(t, "http://example.com")
	person, err := c.Define("Person")
	require.NoError(t, err)
	require.NoError(t, c.Registry().Set("person", person))

	r, err := c.FindInstance("person", int64(3))
	require.NoError(t, err)
	assert.Same(t, person, r.Type())
	assert.Equal(t, int64(3), r.ID())
	assert.True(t, r.Persisted())

	_, err = c.FindInstance("robot", 1)
	assert.ErrorIs(t, err, recordmap.ErrTypeNotFound)
}

func TestSubtype(t *testing.T) {
	c := offlineClient(t, "http://example.com")
	animal, err := c.Define("Animal", WithHeader("X-Zoo", "north"))
	require.NoError(t, err)
	require.NoError(t, animal.Schema().String("name"))

	dog, err := animal.Subtype("Dog", WithHeader("X-Kind", "dog"))
	require.NoError(t, err)
	assert.Same(t, animal, dog.ParentType())
	assert.Nil(t, animal.ParentType())
	assert.Equal(t, "Animal", recordmap.BaseName(dog))
	assert.Equal(t, "dogs", dog.CollectionName())
	assert.Equal(t, []*Type{dog}, animal.Subtypes())

	assert.True(t, dog.Methods().Defined("name"))

	require.NoError(t, animal.Schema().Integer("legs"))
	assert.True(t, dog.Methods().Defined("legs"), "later parent attributes propagate")

	_, err = animal.BelongsTo("owner", relationships.Options{ClassName: "Person"})
	require.NoError(t, err)
	_, ok := dog.Reflection("owner")
	assert.True(t, ok)
	acc, ok := dog.Methods().Lookup("owner")
	require.True(t, ok)
	assert.Equal(t, schema.OriginAssociation, acc.Origin)
	assert.True(t, dog.Methods().Defined("owner_id"))

	assert.Equal(t, "north", dog.Headers().Get("X-Zoo"))
	assert.Equal(t, "dog", dog.Headers().Get("X-Kind"))
	assert.Empty(t, animal.Headers().Get("X-Kind"))

	require.NoError(t, animal.Monetize("price"))
	assert.True(t, dog.Methods().Defined("price_cents"))
	acc, ok = dog.Methods().Lookup("price")
	require.True(t, ok, "later composite accessors propagate")
	assert.Equal(t, schema.OriginCustom, acc.Origin)

	rex, err := dog.New(nil)
	require.NoError(t, err)
	require.NoError(t, rex.Set("price", schema.Money{Amount: decimal.RequireFromString("12.50"), Currency: "USD"}))
	assert.Equal(t, int64(1250), rex.attr("price_cents"))
	assert.Equal(t, "USD", rex.attr("price_currency"))
	assert.NotContains(t, rex.ToMap(), "price")
}

func TestAccessorCollisions(t *testing.T) {
	c := offlineClient(t, "http://example.com")
	person, err := c.Define("Person")
	require.NoError(t, err)

	assert.ErrorIs(t, person.Schema().String("save"), schema.ErrAlreadyDefinedMethod)

	require.NoError(t, person.Schema().String("nickname"))
	_, err = person.HasMany("nickname", relationships.Options{})
	assert.ErrorIs(t, err, schema.ErrAlreadyDefinedMethod)

	_, err = person.HasMany("projects", relationships.Options{})
	require.NoError(t, err)
	_, err = person.HasMany("projects", relationships.Options{ClassName: "Task"})
	require.NoError(t, err, "an association can be redeclared")
	refl, ok := person.Reflection("projects")
	require.True(t, ok)
	assert.Equal(t, "Task", refl.ClassName(""))

	_, err = person.HasOne("profile", relationships.Options{Polymorphic: true})
	assert.ErrorIs(t, err, relationships.ErrInvalidOptions)
}

func TestMonetize(t *testing.T) {
	c := offlineClient(t, "http://example.com")
	product, err := c.Define("Product")
	require.NoError(t, err)
	require.NoError(t, product.Monetize("price"))

	r, err := product.Instantiate(context.Background(), map[string]any{"price_cents": 1999, "price_currency": "USD"}, true, nil)
	require.NoError(t, err)

	v, err := r.Get(context.Background(), "price")
	require.NoError(t, err)
	price, ok := v.(schema.Money)
	require.True(t, ok)
	assert.Equal(t, "19.99 USD", price.String())

	require.NoError(t, r.Set("price", schema.Money{Amount: price.Amount.Add(price.Amount), Currency: "EUR"}))
	assert.Equal(t, int64(3998), r.attr("price_cents"))
	assert.Equal(t, "EUR", r.attr("price_currency"))

	empty, err := product.New(nil)
	require.NoError(t, err)
	v, err = empty.Get(context.Background(), "price")
	require.NoError(t, err)
	assert.Nil(t, v)
}
