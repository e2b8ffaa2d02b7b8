package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerZeroValue(t *testing.T) {
	var tr Tracker
	current := map[string]any{"name": "Ann", "age": nil}

	assert.True(t, tr.Changed("name", current))
	assert.True(t, tr.Changed("age", current))
	assert.False(t, tr.Changed("bio", current))
	assert.Equal(t, []string{"age", "name"}, Names(tr.Changes(current)))
}

func TestTrackerReset(t *testing.T) {
	var tr Tracker
	tags := []any{"go"}
	tr.Reset(map[string]any{"name": "Ann", "tags": tags})

	current := map[string]any{"name": "Ann", "tags": tags}
	assert.Empty(t, tr.Changes(current))

	tags[0] = "rust"
	assert.True(t, tr.Changed("tags", current), "in-place edits of a list are changes")

	current["name"] = "Annabel"
	assert.Equal(t, Change{Name: "name", From: "Ann", To: "Annabel"}, tr.Changes(current)["name"])

	delete(current, "name")
	assert.False(t, tr.Changed("name", current), "a dropped value is not a change")
}
