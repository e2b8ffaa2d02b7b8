package query

import (
	"fmt"
	"maps"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cast"
)

// Reserved wire keys emitted by BuildOptions
const (
	KeyIncludes = "__includes__"
	KeyExtra    = "__extra__"
	KeyOrderBy  = "__order_by__"
	KeyInvoke   = "__invoke__"
	KeyType     = "__type__"
)

// Keys lifted out of Params when options are merged
const (
	paramIncludes = "includes"
	paramExtra    = "extra"
	paramOrderBy  = "order_by"
	paramSum      = "sum"
)

// Options is one source of find options
type Options struct {
	Params   map[string]any
	Includes []string
	Extra    []string
	// ExtraAll requests every extra attribute.
	ExtraAll bool
	// ExtraNone drops the default-requested extra attributes.
	ExtraNone bool
	OrderBy   []Order
	Sum       string
	From      string
}

// Clone returns a copy that shares no slices or maps with o
func (o Options) Clone() Options {
	c := o
	c.Params = maps.Clone(o.Params)
	c.Includes = append([]string(nil), o.Includes...)
	c.Extra = append([]string(nil), o.Extra...)
	c.OrderBy = append([]Order(nil), o.OrderBy...)
	return c
}

// orderedSet keeps first-seen order on top of a set
type orderedSet struct {
	seen  mapset.Set[string]
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: mapset.NewThreadUnsafeSet[string]()}
}

func (s *orderedSet) add(items ...string) {
	for _, item := range items {
		if item == "" || !s.seen.Add(item) {
			continue
		}
		s.items = append(s.items, item)
	}
}

// MergeOptions merges option sources in order. Params are shallow merged and
// From and Sum are last writer wins. Includes and extra are unioned without
// duplicates, and order fields merge per field with None removing a field.
// includes, extra, order_by and sum found inside Params are lifted out first.
func MergeOptions(sources ...Options) (Options, error) {
	merged := Options{Params: make(map[string]any)}
	includes := newOrderedSet()
	extra := newOrderedSet()
	orderBy := NewOrderBy()

	for _, src := range sources {
		params := maps.Clone(src.Params)

		orders, err := NormalizeOrder(src.OrderBy)
		if err != nil {
			return Options{}, err
		}
		includes.add(src.Includes...)
		extra.add(src.Extra...)
		orderBy.Apply(orders...)
		merged.ExtraAll = merged.ExtraAll || src.ExtraAll
		merged.ExtraNone = merged.ExtraNone || src.ExtraNone
		if src.Sum != "" {
			merged.Sum = src.Sum
		}
		if src.From != "" {
			merged.From = src.From
		}

		if raw, ok := params[paramIncludes]; ok {
			delete(params, paramIncludes)
			includes.add(stringList(raw)...)
		}
		if raw, ok := params[paramExtra]; ok {
			delete(params, paramExtra)
			switch v := raw.(type) {
			case bool:
				merged.ExtraAll = merged.ExtraAll || v
				merged.ExtraNone = merged.ExtraNone || !v
			default:
				for _, item := range anyList(raw) {
					if b, ok := item.(bool); ok && b {
						merged.ExtraAll = true
						continue
					}
					extra.add(cast.ToString(item))
				}
			}
		}
		if raw, ok := params[paramOrderBy]; ok {
			delete(params, paramOrderBy)
			orders, err := NormalizeOrder(raw)
			if err != nil {
				return Options{}, err
			}
			orderBy.Apply(orders...)
		}
		if raw, ok := params[paramSum]; ok {
			delete(params, paramSum)
			if s := cast.ToString(raw); s != "" {
				merged.Sum = s
			}
		}

		maps.Copy(merged.Params, params)
	}

	merged.Includes = includes.items
	merged.Extra = extra.items
	merged.OrderBy = orderBy.Orders()
	return merged, nil
}

func anyList(v any) []any {
	switch l := v.(type) {
	case nil:
		return nil
	case []any:
		return l
	case []string:
		out := make([]any, 0, len(l))
		for _, s := range l {
			out = append(out, s)
		}
		return out
	default:
		return []any{v}
	}
}

func stringList(v any) []string {
	items := anyList(v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}
