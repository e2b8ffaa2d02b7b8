package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input     string
		expected  Kind
		expectErr bool
	}{
		{"string", KindString, false},
		{"integer", KindInteger, false},
		{"date", KindDate, false},
		{"enum", KindEnum, false},
		{"money", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseKind(tt.input)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrUnknownAttributeKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
			assert.Equal(t, tt.input, kind.String())
		})
	}
}

func TestLoadKeepsRawOnFailure(t *testing.T) {
	cfg, err := NewAttributeConfig("age", "integer")
	require.NoError(t, err)

	v, err := cfg.Load("forty", LoadOptions{})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, "forty", v)

	_, err = cfg.Coerce("forty", LoadOptions{})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadEnumOutsideAllowedValues(t *testing.T) {
	cfg, err := NewAttributeConfig("status", "enum", In("open", "closed"))
	require.NoError(t, err)

	v, err := cfg.Load("pending", LoadOptions{})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, "pending", v)

	cfg.SetAllowedValues("open", "closed", "pending")
	v, err = cfg.Load("pending", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "pending", v)
	assert.Equal(t, []string{"open", "closed", "pending"}, cfg.AllowedValues())
}

func TestLoadNumbers(t *testing.T) {
	integer, _ := NewAttributeConfig("n", "integer")
	float, _ := NewAttributeConfig("f", "float")

	tests := []struct {
		name string
		cfg  *AttributeConfig
		in   any
		want any
	}{
		{"json number", integer, json.Number("12"), int64(12)},
		{"float64", integer, float64(3), int64(3)},
		{"padded string", integer, " 8 ", int64(8)},
		{"float string", float, "2.5", 2.5},
		{"float json", float, json.Number("0.5"), 0.5},
		{"float int", float, 4, 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.cfg.Load(tt.in, LoadOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}

	_, err := integer.Load(true, LoadOptions{})
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = integer.Load("0x1A", LoadOptions{})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadTimeInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	cfg, _ := NewAttributeConfig("at", "datetime")

	v, err := cfg.Load("2024-05-01T10:00:00Z", LoadOptions{Location: loc})
	require.NoError(t, err)
	got := v.(time.Time)
	assert.Equal(t, 12, got.Hour())
	assert.Equal(t, loc, got.Location())

	v, err = cfg.Load("", LoadOptions{})
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = cfg.Load("yesterday-ish", LoadOptions{})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadDateIgnoresOffset(t *testing.T) {
	cfg, _ := NewAttributeConfig("on", "date")

	v, err := cfg.Load("2024-01-01T23:00:00-05:00", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), v)
}

func TestLoadArray(t *testing.T) {
	cfg, _ := NewAttributeConfig("ids", "integer", Array())

	v, err := cfg.Load([]any{"1", json.Number("2"), 3}, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, v)

	v, err = cfg.Load([]any{"1", "x"}, LoadOptions{})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, []any{int64(1), "x"}, v)

	_, err = cfg.Load("1", LoadOptions{})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestAttributeConfigClone(t *testing.T) {
	cfg, _ := NewAttributeConfig("status", "enum", In("a"), WireName("state"))
	clone := cfg.Clone()
	clone.SetAllowedValues("b")

	assert.Equal(t, []string{"a"}, cfg.In)
	assert.Equal(t, "state", clone.WireName)
}

func TestMethodsTable(t *testing.T) {
	m := NewMethods("Order", "save", "id=")

	assert.True(t, m.Defined("id"))
	assert.True(t, m.Defined("save"))
	assert.ErrorIs(t, m.Define(Accessor{Name: "id"}), ErrAlreadyDefinedMethod)

	require.NoError(t, m.Define(Accessor{Name: "total", Origin: OriginAttribute}))
	require.NoError(t, m.Define(Accessor{Name: "customer", Origin: OriginAssociation}))
	assert.ErrorIs(t, m.Define(Accessor{Name: "total"}), ErrAlreadyDefinedMethod)

	require.NoError(t, m.Redefine(Accessor{Name: "total", Origin: OriginCustom}))
	acc, ok := m.Lookup("total=")
	require.True(t, ok)
	assert.Equal(t, OriginCustom, acc.Origin)

	clone := m.Clone("SpecialOrder")
	assert.Equal(t, "SpecialOrder", clone.Owner())
	assert.Equal(t, []string{"customer"}, clone.RemoveOrigin(OriginAssociation))
	assert.Equal(t, []string{"total", "customer"}, m.Names())
	assert.Equal(t, []string{"total"}, clone.Names())

	assert.True(t, m.Remove("total"))
	assert.False(t, m.Remove("total"))
}
