package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
	"github.com/iancoleman/orderedmap"
)

const (
	xmlAttrType = "-type"
	xmlAttrNil  = "-nil"
	xmlText     = "#text"
)

type xmlFormat struct{}

// XML follows the typed-element convention: type="array" marks a list,
// type="integer"/"boolean"/"float" mark scalars and nil="true" marks null.
var XML Format = xmlFormat{}

func (xmlFormat) Name() string      { return "xml" }
func (xmlFormat) Extension() string { return "xml" }
func (xmlFormat) MimeType() string  { return "application/xml" }

// Encode expects a map. A map with a single key uses it as the root element,
// anything else is wrapped in <hash>.
func (xmlFormat) Encode(v any) ([]byte, error) {
	plain, ok := toXMLValue(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("encode xml: expected a map, got %T", v)
	}
	if len(plain) == 1 {
		return mxj.Map(plain).Xml()
	}
	return mxj.Map(plain).Xml("hash")
}

func (xmlFormat) Decode(data []byte) (any, error) {
	if isBlank(data) {
		return nil, nil
	}
	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	return RemoveRoot(normalizeXML(map[string]any(m))), nil
}

func (f xmlFormat) DecodePath(data []byte, path string) (any, error) {
	if path == "" {
		return f.Decode(data)
	}
	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	v, err := m.ValueForPath(path)
	if err != nil || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return normalizeXML(v), nil
}

func normalizeXML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeElement(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeXML(item)
		}
		return out
	}
	return v
}

func normalizeElement(m map[string]any) any {
	if nilAttr, _ := m[xmlAttrNil].(string); nilAttr == "true" {
		return nil
	}
	typ, _ := m[xmlAttrType].(string)

	if typ == "array" {
		items := []any{}
		for key, child := range m {
			if strings.HasPrefix(key, "-") || key == xmlText {
				continue
			}
			switch c := child.(type) {
			case []any:
				for _, item := range c {
					items = append(items, normalizeXML(item))
				}
			default:
				items = append(items, normalizeXML(c))
			}
		}
		return items
	}

	if text, ok := m[xmlText]; ok {
		return typedText(typ, text)
	}

	out := make(map[string]any, len(m))
	for key, child := range m {
		if strings.HasPrefix(key, "-") {
			continue
		}
		out[strings.ReplaceAll(key, "-", "_")] = normalizeXML(child)
	}
	if len(out) == 0 && typ != "" {
		return typedText(typ, "")
	}
	return out
}

func typedText(typ string, text any) any {
	s, ok := text.(string)
	if !ok {
		return text
	}
	switch typ {
	case "integer":
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n
		}
	case "float", "double":
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b
		}
	case "":
	default:
		if s == "" {
			return nil
		}
	}
	return s
}

// toXMLValue turns the values records carry into plain maps, slices and strings
func toXMLValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case *orderedmap.OrderedMap:
		out := make(map[string]any, len(val.Keys()))
		for _, key := range val.Keys() {
			item, _ := val.Get(key)
			out[key] = toXMLValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			out[key] = toXMLValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toXMLValue(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	}
	return v
}

// sortedKeys returns the keys of m in lexical order
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
