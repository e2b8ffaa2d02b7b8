package ui

import (
	"slices"
	"strings"
)

// DefaultMaxDistance is the largest edit distance still offered as a suggestion
const DefaultMaxDistance = 3

// DefaultMaxSuggestions bounds the number of suggestions returned
const DefaultMaxSuggestions = 3

// Suggest returns up to DefaultMaxSuggestions candidates within
// DefaultMaxDistance edits of target, closest first. Comparison ignores case
// and "::" namespace separators, so "shop_lineitem" still finds "Shop::LineItem".
func Suggest(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	norm := func(s string) string {
		return strings.ToLower(strings.NewReplacer("::", "", "_", "").Replace(s))
	}
	want := norm(target)

	var matches []match
	for _, candidate := range candidates {
		if d := Levenshtein(want, norm(candidate)); d <= DefaultMaxDistance {
			matches = append(matches, match{candidate, d})
		}
	}
	slices.SortStableFunc(matches, func(a, b match) int {
		if a.distance != b.distance {
			return a.distance - b.distance
		}
		return strings.Compare(a.value, b.value)
	})

	out := make([]string, 0, DefaultMaxSuggestions)
	for i := 0; i < len(matches) && i < DefaultMaxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// Levenshtein returns the edit distance between a and b, counted in runes
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
