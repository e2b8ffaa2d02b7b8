package format

import (
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cast"
)

// ToQuery encodes params as a bracketed query string: lists become a[]=1&a[]=2,
// maps become h[k]=v, nested to any depth. Plain map keys are sorted; ordered
// maps keep their insertion order. Empty lists and maps are omitted.
func ToQuery(params map[string]any) string {
	var pairs []string
	for _, key := range sortedKeys(params) {
		if isEmptyCollection(params[key]) {
			continue
		}
		pairs = appendQuery(pairs, escapeKey(key), params[key])
	}
	return strings.Join(pairs, "&")
}

// QueryString is ToQuery prefixed with "?", or "" when nothing is encoded
func QueryString(params map[string]any) string {
	q := ToQuery(params)
	if q == "" {
		return ""
	}
	return "?" + q
}

func appendQuery(pairs []string, prefix string, value any) []string {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			if isEmptyCollection(v[key]) {
				continue
			}
			pairs = appendQuery(pairs, prefix+"["+escapeKey(key)+"]", v[key])
		}
		return pairs
	case *orderedmap.OrderedMap:
		for _, key := range v.Keys() {
			item, _ := v.Get(key)
			if isEmptyCollection(item) {
				continue
			}
			pairs = appendQuery(pairs, prefix+"["+escapeKey(key)+"]", item)
		}
		return pairs
	case orderedmap.OrderedMap:
		return appendQuery(pairs, prefix, &v)
	case []any:
		if len(v) == 0 {
			return append(pairs, prefix+"[]=")
		}
		for _, item := range v {
			pairs = appendQuery(pairs, prefix+"[]", item)
		}
		return pairs
	case []string:
		if len(v) == 0 {
			return append(pairs, prefix+"[]=")
		}
		for _, item := range v {
			pairs = appendQuery(pairs, prefix+"[]", item)
		}
		return pairs
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return appendQuery(pairs, prefix, items)
	}

	return append(pairs, prefix+"="+url.QueryEscape(scalarString(value)))
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case []byte:
		return string(v)
	}
	if s, err := cast.ToStringE(value); err == nil {
		return s
	}
	return reflect.ValueOf(value).String()
}

func isEmptyCollection(v any) bool {
	switch val := v.(type) {
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case *orderedmap.OrderedMap:
		return len(val.Keys()) == 0
	}
	return false
}

// escapeKey escapes a key segment but leaves the bracket syntax readable
func escapeKey(key string) string {
	return strings.NewReplacer("%5B", "[", "%5D", "]").Replace(url.QueryEscape(key))
}
