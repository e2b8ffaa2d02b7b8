package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// Direction is the sort direction of one order field
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
	// None removes the field from the order when merged
	None Direction = "NONE"
)

// ParseDirection converts a direction tag, case-insensitively. An empty tag is ascending.
func ParseDirection(v any) (Direction, error) {
	var s string
	switch d := v.(type) {
	case nil:
		return Asc, nil
	case Direction:
		s = string(d)
	case string:
		s = d
	default:
		return "", fmt.Errorf("%w: %v", ErrInvalidOrder, v)
	}

	switch dir := Direction(strings.ToUpper(strings.TrimSpace(s))); dir {
	case "":
		return Asc, nil
	case Asc, Desc, None:
		return dir, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidOrder, s)
	}
}

// Order is one normalized field → direction entry
type Order struct {
	Field     string
	Direction Direction
}

// NormalizeOrder accepts a field name, a list of field names, a field → direction
// map, an ordered map, an *OrderBy or a list of Orders. Bare names sort ascending.
// Go maps carry no order, so their fields are taken alphabetically.
func NormalizeOrder(v any) ([]Order, error) {
	switch o := v.(type) {
	case nil:
		return nil, nil
	case string:
		if o == "" {
			return nil, nil
		}
		return []Order{{Field: o, Direction: Asc}}, nil
	case []string:
		orders := make([]Order, 0, len(o))
		for _, field := range o {
			orders = append(orders, Order{Field: field, Direction: Asc})
		}
		return orders, nil
	case []any:
		orders := make([]Order, 0, len(o))
		for _, item := range o {
			sub, err := NormalizeOrder(item)
			if err != nil {
				return nil, err
			}
			orders = append(orders, sub...)
		}
		return orders, nil
	case Order:
		return NormalizeOrder([]Order{o})
	case []Order:
		orders := make([]Order, 0, len(o))
		for _, item := range o {
			dir, err := ParseDirection(item.Direction)
			if err != nil {
				return nil, err
			}
			orders = append(orders, Order{Field: item.Field, Direction: dir})
		}
		return orders, nil
	case map[string]string:
		m := make(map[string]any, len(o))
		for k, v := range o {
			m[k] = v
		}
		return fromMap(m)
	case map[string]Direction:
		m := make(map[string]any, len(o))
		for k, v := range o {
			m[k] = v
		}
		return fromMap(m)
	case map[string]any:
		return fromMap(o)
	case *orderedmap.OrderedMap:
		orders := make([]Order, 0, len(o.Keys()))
		for _, field := range o.Keys() {
			raw, _ := o.Get(field)
			dir, err := ParseDirection(raw)
			if err != nil {
				return nil, err
			}
			orders = append(orders, Order{Field: field, Direction: dir})
		}
		return orders, nil
	case *OrderBy:
		return o.Orders(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported order %T", ErrInvalidOrder, v)
	}
}

func fromMap(m map[string]any) ([]Order, error) {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	orders := make([]Order, 0, len(fields))
	for _, field := range fields {
		dir, err := ParseDirection(m[field])
		if err != nil {
			return nil, err
		}
		orders = append(orders, Order{Field: field, Direction: dir})
	}
	return orders, nil
}

// OrderBy is an insertion-ordered field → direction map
type OrderBy struct {
	m *orderedmap.OrderedMap
}

// NewOrderBy creates an empty order
func NewOrderBy() *OrderBy {
	return &OrderBy{m: orderedmap.New()}
}

// Apply sets each order in turn; None removes its field
func (o *OrderBy) Apply(orders ...Order) {
	for _, order := range orders {
		if order.Direction == None {
			o.m.Delete(order.Field)
			continue
		}
		o.m.Set(order.Field, order.Direction)
	}
}

// Get returns the direction of field
func (o *OrderBy) Get(field string) (Direction, bool) {
	v, ok := o.m.Get(field)
	if !ok {
		return "", false
	}
	return v.(Direction), true
}

// Len returns the number of fields
func (o *OrderBy) Len() int {
	return len(o.m.Keys())
}

// Orders returns the entries in order
func (o *OrderBy) Orders() []Order {
	keys := o.m.Keys()
	orders := make([]Order, 0, len(keys))
	for _, field := range keys {
		dir, _ := o.Get(field)
		orders = append(orders, Order{Field: field, Direction: dir})
	}
	return orders
}

// Wire returns the ordered field → direction map sent as __order_by__
func (o *OrderBy) Wire() *orderedmap.OrderedMap {
	out := orderedmap.New()
	for _, order := range o.Orders() {
		out.Set(order.Field, string(order.Direction))
	}
	return out
}
