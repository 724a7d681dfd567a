package resource

import (
	"sort"

	"github.com/func/seeder/suggest"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"go.uber.org/multierr"
	validator "gopkg.in/go-playground/validator.v9"
)

var validate = validator.New()

// Item checks the fields of a raw item against a kind and returns the item
// with coerced values.
//
// Values are converted to the declared field type, so "3" becomes a number
// and "true" becomes a bool. Null values are treated as not declared.
func (r *Registry) Item(kind *Kind, raw RawItem) (*Item, error) {
	return r.item(kind, raw, false)
}

func (r *Registry) item(kind *Kind, raw RawItem, keyOnly bool) (*Item, error) {
	var errs error
	fail := func(class Class, name string, err error) {
		loc := raw.Location
		if l, ok := raw.FieldLocations[name]; ok {
			loc = l
		}
		errs = multierr.Append(errs, &Error{Class: class, Kind: kind.Name, Location: loc, Err: err})
	}

	names := make([]string, 0, len(raw.Fields))
	for name := range raw.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make(map[string]cty.Value, len(names))
	for _, name := range names {
		val := raw.Fields[name]
		f := kind.Field(name)
		if f == nil {
			fail(UnknownField, name, errors.Errorf("unknown field %q%s", name, suggest.Hint(name, kind.FieldNames())))
			continue
		}
		if val.IsNull() {
			continue
		}
		cv, err := convert.Convert(val, f.Type)
		if err != nil {
			fail(InvalidValue, name, errors.Wrapf(err, "field %q", name))
			continue
		}
		if cv.IsNull() {
			continue
		}
		if err := checkRule(f, cv); err != nil {
			fail(InvalidValue, name, err)
			continue
		}
		fields[name] = cv
	}

	for _, f := range kind.Fields {
		if _, ok := fields[f.Name]; !ok && f.Default != "" {
			fields[f.Name] = cty.StringVal(f.Default)
		}
	}
	if !keyOnly {
		for _, f := range kind.Fields {
			if _, ok := fields[f.Name]; f.Required && !ok {
				fail(InvalidValue, f.Name, errors.Errorf("missing required field %q", f.Name))
			}
		}
	}
	if errs != nil {
		return nil, errs
	}

	item := &Item{
		Kind:     kind,
		Location: raw.Location,
		fields:   fields,
		refs:     make(map[string]Key),
	}
	if err := r.link(item); err != nil {
		return nil, &Error{Class: ClassOf(err), Kind: kind.Name, Location: raw.Location, Err: err}
	}
	if kind.Validate != nil && !keyOnly {
		if err := kind.Validate(item); err != nil {
			return nil, &Error{Class: InvalidValue, Kind: kind.Name, Key: item.key, Location: raw.Location, Err: err}
		}
	}
	return item, nil
}

// link computes the natural key and the reference targets of an item.
func (r *Registry) link(item *Item) error {
	kind := item.Kind
	for _, f := range kind.Fields {
		if f.Ref == nil || !item.Has(f.Name) {
			continue
		}
		target := r.Kind(f.Ref.Kind)
		if target == nil {
			return Errorf(UnknownKind, "field %q refers to unknown kind %q", f.Name, f.Ref.Kind)
		}
		key, err := f.Ref.Target(target, item.String(f.Name), item)
		if err != nil {
			return errors.Wrapf(err, "field %q", f.Name)
		}
		item.refs[f.Name] = key
	}

	for _, f := range kind.KeyFields() {
		part := ""
		switch {
		case f.Ref != nil && item.refs[f.Name] != nil:
			part = FormatRef(item.refs[f.Name])
		case item.Has(f.Name):
			v, err := convert.Convert(item.Get(f.Name), cty.String)
			if err != nil {
				return Errorf(InvalidValue, "key field %q: %v", f.Name, err)
			}
			part = v.AsString()
		}
		item.key = append(item.key, part)
	}
	return nil
}

// checkRule validates a scalar value against the field's rule.
func checkRule(f *Field, val cty.Value) error {
	if f.Rule == "" || !val.IsKnown() {
		return nil
	}
	var v interface{}
	switch val.Type() {
	case cty.String:
		v = val.AsString()
	case cty.Bool:
		v = val.True()
	case cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			v = i
		} else {
			fl, _ := bf.Float64()
			v = fl
		}
	default:
		return nil
	}
	if err := validate.Var(v, f.Rule); err != nil {
		if f.Sensitive {
			return errors.Errorf("field %q does not satisfy %q", f.Name, f.Rule)
		}
		return errors.Errorf("field %q: value %v does not satisfy %q", f.Name, v, f.Rule)
	}
	return nil
}
