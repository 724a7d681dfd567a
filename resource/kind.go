package resource

import (
	"github.com/zclconf/go-cty/cty"
)

// A Kind describes a category of remote entity managed by a single driver.
type Kind struct {
	Name string

	// Service is the catalog key of the service hosting the kind.
	Service string

	Fields []*Field

	// DependsOn lists kinds that must be reconciled first, in addition to
	// the kinds referenced by fields.
	DependsOn []string

	// Parallel is set if items of the kind do not depend on each other and
	// can be reconciled concurrently.
	Parallel bool

	// Validate, if set, checks an item after its fields were coerced.
	Validate func(item *Item) error

	Driver Driver
}

// Field returns the field with the given name, or nil if there is none.
func (k *Kind) Field(name string) *Field {
	for _, f := range k.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FieldNames returns the names of all fields in declaration order.
func (k *Kind) FieldNames() []string {
	names := make([]string, len(k.Fields))
	for i, f := range k.Fields {
		names[i] = f.Name
	}
	return names
}

// KeyFields returns the fields forming the natural key.
func (k *Kind) KeyFields() []*Field {
	var out []*Field
	for _, f := range k.Fields {
		if f.Key {
			out = append(out, f)
		}
	}
	return out
}

// Dependencies returns the kinds this kind depends on. The result contains
// explicit dependencies followed by referenced kinds, without duplicates.
func (k *Kind) Dependencies() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, d := range k.DependsOn {
		add(d)
	}
	for _, f := range k.Fields {
		if f.Ref != nil {
			add(f.Ref.Kind)
		}
	}
	return out
}

// Type returns the object type with an attribute for every field.
func (k *Kind) Type() cty.Type {
	attrs := make(map[string]cty.Type, len(k.Fields))
	for _, f := range k.Fields {
		attrs[f.Name] = f.Type
	}
	return cty.Object(attrs)
}

// Pruner returns the pruning capability of the driver, if it has one.
func (k *Kind) Pruner() (Pruner, bool) {
	p, ok := k.Driver.(Pruner)
	return p, ok
}
