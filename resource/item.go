package resource

import (
	"github.com/zclconf/go-cty/cty"
)

// A RawItem is an item as read from an input file, before its fields have
// been checked against the kind.
type RawItem struct {
	Kind     string
	Fields   map[string]cty.Value
	Location Location

	// FieldLocations optionally holds the location of each field.
	FieldLocations map[string]Location

	// KindLocation is the location of the kind name.
	KindLocation Location
}

// An Item is a desired item of a kind, with field values coerced to their
// declared types.
//
// Items are immutable. Resolved reference identifiers are attached with
// WithIDs, which returns a copy.
type Item struct {
	Kind     *Kind
	Index    int
	Location Location

	fields map[string]cty.Value
	key    Key
	refs   map[string]Key
	ids    map[string]string
}

// Key returns the natural key of the item.
func (it *Item) Key() Key { return it.key }

// Has reports whether the item declares a field.
func (it *Item) Has(name string) bool {
	_, ok := it.fields[name]
	return ok
}

// Get returns the declared value of a field. A field that is not declared
// returns a null value of the field's type.
func (it *Item) Get(name string) cty.Value {
	if v, ok := it.fields[name]; ok {
		return v
	}
	if f := it.Kind.Field(name); f != nil {
		return cty.NullVal(f.Type)
	}
	return cty.NullVal(cty.DynamicPseudoType)
}

// String returns the value of a string field, or an empty string if the
// field is not declared.
func (it *Item) String(name string) string {
	v := it.Get(name)
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
		return ""
	}
	return v.AsString()
}

// Declared returns the names of the declared fields in field order.
func (it *Item) Declared() []string {
	var out []string
	for _, f := range it.Kind.Fields {
		if it.Has(f.Name) {
			out = append(out, f.Name)
		}
	}
	return out
}

// Refs returns the target key of every declared reference field. The
// returned map must not be modified.
func (it *Item) Refs() map[string]Key { return it.refs }

// RefID returns the resolved identifier of a reference field, or an empty
// string if it has not been resolved.
func (it *Item) RefID(name string) string { return it.ids[name] }

// Resolved reports whether every declared reference has an identifier.
func (it *Item) Resolved() bool {
	for name := range it.refs {
		if it.ids[name] == "" {
			return false
		}
	}
	return true
}

// WithIDs returns a copy of the item with resolved reference identifiers.
func (it *Item) WithIDs(ids map[string]string) *Item {
	cp := *it
	cp.ids = make(map[string]string, len(ids))
	for k, v := range ids {
		cp.ids[k] = v
	}
	return &cp
}

// Value returns the value of a field as sent to the remote service. For
// resolved reference fields this is the identifier of the referenced item.
func (it *Item) Value(name string) cty.Value {
	if id := it.ids[name]; id != "" {
		return cty.StringVal(id)
	}
	return it.Get(name)
}

// Object returns the item as an object with an attribute for every field of
// the kind. Fields that are not declared are null.
func (it *Item) Object() cty.Value {
	attrs := make(map[string]cty.Value, len(it.Kind.Fields))
	for _, f := range it.Kind.Fields {
		attrs[f.Name] = it.Value(f.Name)
	}
	return cty.ObjectVal(attrs)
}

// A Remote is the normalized representation of an item returned by a remote
// service.
type Remote struct {
	ID string

	// Fields holds the normalized remote values, keyed by field name.
	// Reference fields hold the identifier of the referenced item.
	Fields map[string]cty.Value

	// Seeded is set if the remote item carries the marker identifying it as
	// created by the seeder.
	Seeded bool

	// Key is the natural key of the remote item, if known. It is set by
	// drivers that list items for pruning.
	Key Key
}

// Get returns the value of a remote field, or a dynamic null.
func (r *Remote) Get(name string) cty.Value {
	if v, ok := r.Fields[name]; ok {
		return v
	}
	return cty.NullVal(cty.DynamicPseudoType)
}
