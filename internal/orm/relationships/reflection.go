// Package relationships describes the associations declared between remote resource types
package relationships

import (
	"strings"
	"sync"

	"github.com/gobuffalo/flect"
)

// Reflection is the immutable descriptor of one declared association
type Reflection struct {
	Owner        string
	OwnerElement string
	Macro        Macro
	Name         string
	Options      Options

	foreignKey  string
	foreignType string
	className   string
	fkOnce      sync.Once
	ftOnce      sync.Once
	cnOnce      sync.Once
}

// New validates opts and builds a reflection. ownerElement is the owner's
// singular element name, used for has_many key derivation.
func New(owner, ownerElement string, macro Macro, name string, opts Options) (*Reflection, error) {
	if err := Validate(macro, opts); err != nil {
		return nil, err
	}
	return &Reflection{
		Owner:        owner,
		OwnerElement: ownerElement,
		Macro:        macro,
		Name:         name,
		Options:      opts,
	}, nil
}

// ForeignKey returns the foreign key attribute name, derived once
func (r *Reflection) ForeignKey() string {
	r.fkOnce.Do(func() { r.foreignKey = r.derive(r.Options.ForeignKey, "_id") })
	return r.foreignKey
}

// ForeignType returns the foreign type attribute name, derived once
func (r *Reflection) ForeignType() string {
	r.ftOnce.Do(func() { r.foreignType = r.derive(r.Options.ForeignType, "_type") })
	return r.foreignType
}

func (r *Reflection) derive(explicit, suffix string) string {
	if explicit != "" {
		return explicit
	}
	if r.Macro == HasMany {
		if r.Options.As != "" {
			return r.Options.As + suffix
		}
		return r.OwnerElement + suffix
	}
	return strings.ToLower(r.Name) + suffix
}

// ClassName returns the name of the related type. For polymorphic associations a
// non-empty foreign type value wins; otherwise the class_name option is
// camelized, or the association name classified.
func (r *Reflection) ClassName(foreignTypeValue string) string {
	if r.Options.Polymorphic && foreignTypeValue != "" {
		return foreignTypeValue
	}
	r.cnOnce.Do(func() {
		if r.Options.ClassName != "" {
			r.className = Camelize(r.Options.ClassName)
		} else {
			r.className = Classify(r.Name)
		}
	})
	return r.className
}

// IsExtra reports whether the association payload arrives as an extra field
func (r *Reflection) IsExtra() bool {
	return r.Options.Extra || r.Options.ExtraDefault
}

// Camelize turns a path-like name into a namespaced type name: external/person → External::Person
func Camelize(name string) string {
	parts := strings.Split(name, "/")
	for i, part := range parts {
		parts[i] = flect.Pascalize(part)
	}
	return strings.Join(parts, "::")
}

// Classify turns an association name into a type name: line_items → LineItem
func Classify(name string) string {
	return Camelize(flect.Singularize(name))
}
