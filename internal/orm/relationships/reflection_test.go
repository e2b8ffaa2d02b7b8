package relationships

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeignKeyDerivation(t *testing.T) {
	tests := []struct {
		name        string
		macro       Macro
		assoc       string
		opts        Options
		foreignKey  string
		foreignType string
	}{
		{"belongs_to default", BelongsTo, "Customer", Options{}, "customer_id", "customer_type"},
		{"belongs_to explicit", BelongsTo, "customer", Options{ForeignKey: "user_id", ForeignType: "user_kind"}, "user_id", "user_kind"},
		{"has_many owner element", HasMany, "comments", Options{}, "post_id", "post_type"},
		{"has_many as alias", HasMany, "pictures", Options{As: "imageable"}, "imageable_id", "imageable_type"},
		{"has_many explicit wins over as", HasMany, "pictures", Options{As: "imageable", ForeignKey: "owner_id"}, "owner_id", "imageable_type"},
		{"has_one", HasOne, "inventory", Options{}, "inventory_id", "inventory_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New("Post", "post", tt.macro, tt.assoc, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.foreignKey, r.ForeignKey())
			assert.Equal(t, tt.foreignType, r.ForeignType())
		})
	}
}

func TestClassName(t *testing.T) {
	r, err := New("Post", "post", HasMany, "line_items", Options{})
	require.NoError(t, err)
	assert.Equal(t, "LineItem", r.ClassName(""))

	r, err = New("Post", "post", BelongsTo, "author", Options{ClassName: "external/person"})
	require.NoError(t, err)
	assert.Equal(t, "External::Person", r.ClassName(""))

	r, err = New("Comment", "comment", BelongsTo, "commentable", Options{Polymorphic: true})
	require.NoError(t, err)
	assert.Equal(t, "Article", r.ClassName("Article"))
	assert.Equal(t, "Commentable", r.ClassName(""))
}

func TestValidateOptions(t *testing.T) {
	getter := func(context.Context, Owner, map[string]any) (any, error) { return nil, nil }

	tests := []struct {
		name    string
		macro   Macro
		opts    Options
		wantErr bool
	}{
		{"belongs_to polymorphic", BelongsTo, Options{Polymorphic: true}, false},
		{"belongs_to as", BelongsTo, Options{As: "owner"}, true},
		{"belongs_to getter", BelongsTo, Options{GetterMyself: true}, true},
		{"has_many full", HasMany, Options{As: "x", ParamsOpts: &ParamsOptions{}, Getter: getter}, false},
		{"has_many extra schema", HasMany, Options{Extra: true, Schema: "serialize"}, false},
		{"has_many schema without extra", HasMany, Options{Schema: "serialize"}, true},
		{"has_many polymorphic", HasMany, Options{Polymorphic: true}, true},
		{"has_many both getters", HasMany, Options{GetterMyself: true, Getter: getter}, true},
		{"has_one class", HasOne, Options{ClassName: "Inventory"}, false},
		{"has_one extra", HasOne, Options{Extra: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("Post", "post", tt.macro, "thing", tt.opts)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSet(t *testing.T) {
	s := NewSet()
	author, _ := New("Post", "post", BelongsTo, "author", Options{})
	comments, _ := New("Post", "post", HasMany, "comments", Options{})
	tags, _ := New("Post", "post", HasMany, "tags", Options{})

	s.Add(author)
	s.Add(comments)
	s.Add(tags)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []*Reflection{comments, tags}, s.Of(HasMany))

	replaced, _ := New("Post", "post", BelongsTo, "comments", Options{})
	clone := s.Clone()
	clone.Add(replaced)

	got, ok := s.Get("comments")
	require.True(t, ok)
	assert.Same(t, comments, got)
	assert.Len(t, clone.Of(BelongsTo), 2)

	_, err := s.MustGet("missing")
	assert.ErrorIs(t, err, ErrUnknownRelationship)

	assert.Equal(t, "has_one", HasOne.String())
}
