package resource

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// A Change is a difference in a single field.
type Change struct {
	Field     string
	From      cty.Value
	To        cty.Value
	Immutable bool
	Sensitive bool
}

// A Delta is the set of changed fields of an item.
type Delta []Change

// Empty reports whether there are no changes.
func (d Delta) Empty() bool { return len(d) == 0 }

// Fields returns the names of changed fields.
func (d Delta) Fields() []string {
	out := make([]string, len(d))
	for i, c := range d {
		out[i] = c.Field
	}
	return out
}

// Immutable returns the names of changed immutable fields.
func (d Delta) Immutable() []string {
	var out []string
	for _, c := range d {
		if c.Immutable {
			out = append(out, c.Field)
		}
	}
	return out
}

// Has reports whether a field changed.
func (d Delta) Has(field string) bool {
	for _, c := range d {
		if c.Field == field {
			return true
		}
	}
	return false
}

// Object returns an object with the desired value of every changed field.
func (d Delta) Object() cty.Value {
	if len(d) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(d))
	for _, c := range d {
		attrs[c.Field] = c.To
	}
	return cty.ObjectVal(attrs)
}

// Diff compares a desired item to its normalized remote representation.
//
// Only fields declared by the desired item are compared. Key fields and
// create-only fields never differ. Reference fields are compared by the
// identifier of the referenced item. Values are compared after
// canonicalization: strings are trimmed, null equals an empty value, sets and
// maps are compared regardless of order.
func Diff(desired *Item, remote *Remote) Delta {
	var delta Delta
	for _, f := range desired.Kind.Fields {
		if f.Key || f.CreateOnly || !desired.Has(f.Name) {
			continue
		}
		want := desired.Value(f.Name)
		got := remote.Get(f.Name)
		if Equal(want, got) {
			continue
		}
		delta = append(delta, Change{
			Field:     f.Name,
			From:      got,
			To:        want,
			Immutable: f.Immutable,
			Sensitive: f.Sensitive,
		})
	}
	return delta
}

// Equal compares two values after canonicalization.
func Equal(a, b cty.Value) bool {
	a, b = canonical(a), canonical(b)
	if empty(a) && empty(b) {
		return true
	}
	if a.IsNull() || b.IsNull() {
		return false
	}
	if !a.Type().Equals(b.Type()) {
		return false
	}
	eq := a.Equals(b)
	return eq.IsKnown() && eq.True()
}

func canonical(v cty.Value) cty.Value {
	out, err := cty.Transform(v, func(_ cty.Path, v cty.Value) (cty.Value, error) {
		if v.Type() == cty.String && v.IsKnown() && !v.IsNull() {
			return cty.StringVal(strings.TrimSpace(v.AsString())), nil
		}
		return v, nil
	})
	if err != nil {
		return v
	}
	return out
}

func empty(v cty.Value) bool {
	if v.IsNull() {
		return true
	}
	if !v.IsKnown() {
		return false
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString() == ""
	case ty.IsCollectionType(), ty.IsTupleType():
		return v.LengthInt() == 0
	case ty.IsObjectType():
		return len(ty.AttributeTypes()) == 0
	}
	return false
}
