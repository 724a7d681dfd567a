package resource

import (
	"sort"

	"github.com/func/seeder/suggest"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
)

// A Registry maintains the registered kinds.
type Registry struct {
	kinds map[string]*Kind
}

// NewRegistry creates a new registry from a predefined list of kinds.
func NewRegistry(kinds ...*Kind) *Registry {
	r := &Registry{}
	for _, k := range kinds {
		r.Register(k)
	}
	return r
}

// Register adds a new kind. If another kind with the same name is already
// registered, it is overwritten.
//
// Not safe for concurrent access.
func (r *Registry) Register(kind *Kind) {
	if r.kinds == nil {
		r.kinds = make(map[string]*Kind)
	}
	r.kinds[kind.Name] = kind
}

// Kind returns the registered kind with a certain name. Returns nil if the
// kind has not been registered.
func (r *Registry) Kind(name string) *Kind {
	return r.kinds[name]
}

// Names returns the names of registered kinds. The results are
// lexicographically sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Kinds returns the registered kinds, sorted by name.
func (r *Registry) Kinds() []*Kind {
	names := r.Names()
	out := make([]*Kind, len(names))
	for i, n := range names {
		out[i] = r.kinds[n]
	}
	return out
}

// Desired is the desired state: items grouped by kind name, in input order.
type Desired map[string][]*Item

// Kinds returns the names of kinds with at least one item, sorted.
func (d Desired) Kinds() []string {
	var out []string
	for k, items := range d {
		if len(items) > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the total number of items.
func (d Desired) Len() int {
	n := 0
	for _, items := range d {
		n += len(items)
	}
	return n
}

// Desired checks raw items against the registered kinds and builds the
// desired state.
//
// A raw item without fields marks a kind section that declares no items; only
// its kind name is checked.
//
// Every problem found is reported. The returned error combines all errors with
// multierr; each of them is an *Error with a configuration class.
func (r *Registry) Desired(raws []RawItem) (Desired, error) {
	d := make(Desired)
	var errs error

	unknown := make(map[string]bool)
	seen := make(map[string]map[string]*Item)

	for _, raw := range raws {
		kind := r.Kind(raw.Kind)
		if kind == nil {
			if !unknown[raw.Kind] {
				unknown[raw.Kind] = true
				loc := raw.KindLocation
				if !loc.IsSet() {
					loc = raw.Location
				}
				errs = multierr.Append(errs, &Error{
					Class:    UnknownKind,
					Location: loc,
					Err:      errors.Errorf("unknown kind %q%s", raw.Kind, suggest.Hint(raw.Kind, r.Names())),
				})
			}
			continue
		}
		if raw.Fields == nil {
			continue
		}

		item, err := r.Item(kind, raw)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		if seen[kind.Name] == nil {
			seen[kind.Name] = make(map[string]*Item)
		}
		id := item.Key().id()
		if first, dup := seen[kind.Name][id]; dup {
			errs = multierr.Append(errs, &Error{
				Class:    InvalidValue,
				Kind:     kind.Name,
				Key:      item.Key(),
				Location: item.Location,
				Err:      errors.Errorf("duplicate key, first declared at %s", first.Location),
			})
			continue
		}
		seen[kind.Name][id] = item

		item.Index = len(d[kind.Name])
		d[kind.Name] = append(d[kind.Name], item)
	}

	if errs != nil {
		return nil, errs
	}
	return d, nil
}

// KeyItem creates an item of a kind that only declares the natural key. It is
// used to look up items that are referenced but not declared.
func (r *Registry) KeyItem(kindName string, key Key) (*Item, error) {
	kind := r.Kind(kindName)
	if kind == nil {
		return nil, Errorf(UnknownKind, "unknown kind %q", kindName)
	}
	keyFields := kind.KeyFields()
	if len(keyFields) != len(key) {
		return nil, Errorf(InvalidValue, "%s key %s must have %d parts", kindName, key, len(keyFields))
	}
	fields := make(map[string]cty.Value, len(key))
	for i, f := range keyFields {
		if key[i] != "" {
			fields[f.Name] = cty.StringVal(key[i])
		}
	}
	return r.item(kind, RawItem{Kind: kindName, Fields: fields}, true)
}
