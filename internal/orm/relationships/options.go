package relationships

import (
	"context"
	"fmt"
	"strings"
)

// Macro is the kind of association
type Macro int

const (
	BelongsTo Macro = iota
	HasMany
	HasOne
)

// String returns the string representation of the macro
func (m Macro) String() string {
	switch m {
	case BelongsTo:
		return "belongs_to"
	case HasMany:
		return "has_many"
	case HasOne:
		return "has_one"
	default:
		return "unknown"
	}
}

// Owner is the record a has_many getter runs for
type Owner interface {
	ID() any
}

// GetterFunc fetches the raw payload of a has_many association. The payload is
// expected to carry the elements under "results".
type GetterFunc func(ctx context.Context, owner Owner, params map[string]any) (any, error)

// ParamsOptions controls how a has_many association appears in request params
type ParamsOptions struct {
	// Name is the param key associated objects are written under. Defaults to the association name.
	Name string
	// Params are sent with every fetch of the association.
	Params map[string]any
	// ToParam converts one associated object to its param value.
	ToParam func(any) any
}

// Options are the declaration options of an association
type Options struct {
	ClassName   string
	ForeignKey  string
	ForeignType string
	Polymorphic bool
	As          string

	// Extra associations arrive through the on-demand extra mechanism.
	Extra        bool
	ExtraDefault bool
	// Schema is the attribute type backing an extra association.
	Schema string

	ParamsOpts   *ParamsOptions
	GetterMyself bool
	Getter       GetterFunc
}

func (o Options) used() []string {
	var used []string
	add := func(set bool, name string) {
		if set {
			used = append(used, name)
		}
	}
	add(o.ClassName != "", "class_name")
	add(o.ForeignKey != "", "foreign_key")
	add(o.ForeignType != "", "foreign_type")
	add(o.Polymorphic, "polymorphic")
	add(o.As != "", "as")
	add(o.Extra || o.ExtraDefault, "extra")
	add(o.Schema != "", "schema")
	add(o.ParamsOpts != nil, "params_opts")
	add(o.GetterMyself || o.Getter != nil, "getter")
	return used
}

var validOptions = map[Macro]map[string]bool{
	BelongsTo: {"class_name": true, "foreign_key": true, "foreign_type": true, "polymorphic": true},
	HasMany: {
		"class_name": true, "foreign_key": true, "foreign_type": true, "as": true,
		"params_opts": true, "getter": true, "extra": true, "schema": true,
	},
	HasOne: {"class_name": true, "foreign_key": true},
}

// Validate rejects options the macro does not accept
func Validate(macro Macro, opts Options) error {
	valid, ok := validOptions[macro]
	if !ok {
		return fmt.Errorf("%w: unknown macro %d", ErrInvalidOptions, macro)
	}

	var unknown []string
	for _, name := range opts.used() {
		if !valid[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s does not accept %s", ErrInvalidOptions, macro, strings.Join(unknown, ", "))
	}
	if opts.GetterMyself && opts.Getter != nil {
		return fmt.Errorf("%w: getter is either myself or a function", ErrInvalidOptions)
	}
	if opts.Schema != "" && !opts.Extra && !opts.ExtraDefault {
		return fmt.Errorf("%w: schema requires extra", ErrInvalidOptions)
	}
	return nil
}
