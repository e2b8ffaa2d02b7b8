package format

import (
	"encoding/json"
	"testing"

	"github.com/iancoleman/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	f, err := ByName("JSON")
	require.NoError(t, err)
	assert.Equal(t, "application/json", f.MimeType())

	f, err = ByName("xml")
	require.NoError(t, err)
	assert.Equal(t, "xml", f.Extension())

	_, err = ByName("yaml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRemoveRoot(t *testing.T) {
	inner := map[string]any{"id": 1}
	assert.Equal(t, inner, RemoveRoot(map[string]any{"person": inner}))
	assert.Equal(t, []any{inner}, RemoveRoot(map[string]any{"people": []any{inner}}))

	scalar := map[string]any{"count": 3}
	assert.Equal(t, scalar, RemoveRoot(scalar))

	two := map[string]any{"a": inner, "b": inner}
	assert.Equal(t, two, RemoveRoot(two))
	assert.Equal(t, "x", RemoveRoot("x"))
}

func TestJSONDecode(t *testing.T) {
	v, err := JSON.Decode([]byte(`{"person":{"id":12345678901234,"name":"Ann"}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": json.Number("12345678901234"), "name": "Ann"}, v)

	v, err = JSON.Decode([]byte("  "))
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = JSON.Decode([]byte(`{"broken"`))
	assert.Error(t, err)
}

func TestJSONDecodePath(t *testing.T) {
	body := []byte(`{"meta":{"next":"/people.json?page=2"},"data":{"people":[{"id":1},{"id":2}]}}`)

	v, err := JSON.DecodePath(body, "data.people")
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"id": json.Number("1")},
		map[string]any{"id": json.Number("2")},
	}, v)

	_, err = JSON.DecodePath(body, "data.projects")
	assert.ErrorIs(t, err, ErrPathNotFound)

	whole, err := JSON.DecodePath([]byte(`{"results":[]}`), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"results": []any{}}, whole, "an empty path keeps the root")
}

func TestJSONEncodeOrderedMap(t *testing.T) {
	om := orderedmap.New()
	om.Set("name", "Ann")
	om.Set("age", 30)

	data, err := JSON.Encode(map[string]any{"person": om})
	require.NoError(t, err)
	assert.JSONEq(t, `{"person":{"name":"Ann","age":30}}`, string(data))
}

func TestXMLDecodeTypedArray(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<people type="array">
  <person><id type="integer">1</id><first-name>Ann</first-name><admin type="boolean">true</admin></person>
  <person><id type="integer">2</id><first-name>Bob</first-name><bio nil="true"/></person>
</people>`)

	v, err := XML.Decode(body)
	require.NoError(t, err)

	people, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, people, 2)
	assert.Equal(t, map[string]any{"id": int64(1), "first_name": "Ann", "admin": true}, people[0])
	assert.Equal(t, map[string]any{"id": int64(2), "first_name": "Bob", "bio": nil}, people[1])
}

func TestXMLDecodeSingle(t *testing.T) {
	v, err := XML.Decode([]byte(`<person><id type="integer">7</id><name>Ann</name></person>`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(7), "name": "Ann"}, v)
}

func TestXMLRoundTrip(t *testing.T) {
	data, err := XML.Encode(map[string]any{"person": map[string]any{"name": "Ann"}})
	require.NoError(t, err)
	assert.Contains(t, string(data), "<person>")

	v, err := XML.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ann"}, v)

	_, err = XML.Encode("scalar")
	assert.Error(t, err)
}

func TestToQuery(t *testing.T) {
	order := orderedmap.New()
	order.Set("z", "desc")
	order.Set("a", "asc")

	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"list", map[string]any{"__extra__": []any{"bio"}}, "__extra__[]=bio"},
		{"string list", map[string]any{"__includes__": []string{"projects", "tasks"}}, "__includes__[]=projects&__includes__[]=tasks"},
		{"sorted scalars", map[string]any{"b": 1, "a": "x y"}, "a=x+y&b=1"},
		{"nested map", map[string]any{"h": map[string]any{"k": "v", "a": true}}, "h[a]=true&h[k]=v"},
		{"ordered map", map[string]any{"__order_by__": order}, "__order_by__[z]=desc&__order_by__[a]=asc"},
		{"list of maps", map[string]any{"people": []any{map[string]any{"type": "Person", "id": 1}}}, "people[][id]=1&people[][type]=Person"},
		{"empty skipped", map[string]any{"x": []any{}, "y": map[string]any{}}, ""},
		{"nil", map[string]any{"k": nil}, "k="},
		{"int slice", map[string]any{"ids": []int64{1, 2}}, "ids[]=1&ids[]=2"},
		{"escaped", map[string]any{"q": "a&b=c"}, "q=a%26b%3Dc"},
		{"nested extra", map[string]any{"__extra__": []any{"email", map[string]any{"projects": []any{"desc"}}}}, "__extra__[]=email&__extra__[][projects][]=desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToQuery(tt.params))
		})
	}

	assert.Equal(t, "", QueryString(nil))
	assert.Equal(t, "?a=1", QueryString(map[string]any{"a": 1}))
}
