package resource

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// A Field describes a single field of a kind.
type Field struct {
	Name string
	Type cty.Type

	// Key fields form the natural key of the item. They do not participate
	// in diffing.
	Key bool

	// Required fields must be set in every item.
	Required bool

	// Changes to immutable fields are a conflict, not an update.
	Immutable bool

	// CreateOnly fields are sent on create and never diffed.
	CreateOnly bool

	// Sensitive values are never logged or reported.
	Sensitive bool

	// Rule is a validator tag checked against scalar values, for example
	// "email" or "min=1".
	Rule string

	// Ref is set for fields that refer to an item of another kind.
	Ref *Ref

	// Default is assigned to string fields the item does not declare.
	Default string
}

// A Ref describes a reference to an item of another kind.
//
// A reference is written as "name" or "name@scope". If the referenced kind
// has a two part key (scope, name) and the scope is omitted, the scope is
// taken from the item's Scope field, or DefaultScope if the item does not set
// it.
type Ref struct {
	Kind  string
	Scope string
}

// DefaultScope is the scope used for references without an explicit scope.
const DefaultScope = "Default"

// Target returns the key of the item a reference points to.
func (r *Ref) Target(target *Kind, value string, item *Item) (Key, error) {
	n := len(target.KeyFields())
	switch n {
	case 1:
		return Key{value}, nil
	case 2:
		name, scope := value, ""
		if i := strings.LastIndex(value, "@"); i >= 0 {
			name, scope = value[:i], value[i+1:]
		}
		if scope == "" && r.Scope != "" && item != nil {
			if f := item.Kind.Field(r.Scope); f != nil && f.Ref != nil {
				scope = item.String(r.Scope)
			}
		}
		if scope == "" {
			scope = DefaultScope
		}
		if name == "" {
			return nil, Errorf(InvalidValue, "reference %q has no name", value)
		}
		return Key{scope, name}, nil
	}
	return nil, Errorf(InvalidValue, "%s cannot be referenced", target.Name)
}

// FormatRef formats a key as a reference.
func FormatRef(key Key) string {
	switch len(key) {
	case 1:
		return key[0]
	case 2:
		return key[1] + "@" + key[0]
	}
	return key.String()
}
