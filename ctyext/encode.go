package ctyext

import (
	"math/big"
	"reflect"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Encode converts a Go value to a cty value of the given type.
//
// Structs are encoded to objects using the seed struct tag. Object attributes
// that have no matching field, as well as nil pointers, slices and maps,
// become null values. Fields that are not part of the object type are
// ignored.
func Encode(val interface{}, ty cty.Type) (cty.Value, error) {
	return encode(reflect.ValueOf(val), ty, nil)
}

func encode(val reflect.Value, ty cty.Type, path cty.Path) (cty.Value, error) {
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return cty.NullVal(ty), nil
		}
		val = val.Elem()
	}
	if !val.IsValid() {
		return cty.NullVal(ty), nil
	}

	switch {
	case ty == cty.Bool:
		if val.Kind() != reflect.Bool {
			return cty.NilVal, pathErrorf(path, "%s cannot be encoded as bool", val.Type())
		}
		return cty.BoolVal(val.Bool()), nil
	case ty == cty.String:
		if val.Kind() != reflect.String {
			return cty.NilVal, pathErrorf(path, "%s cannot be encoded as string", val.Type())
		}
		return cty.StringVal(val.String()), nil
	case ty == cty.Number:
		switch val.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return cty.NumberIntVal(val.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return cty.NumberUIntVal(val.Uint()), nil
		case reflect.Float32, reflect.Float64:
			return cty.NumberVal(big.NewFloat(val.Float())), nil
		}
		return cty.NilVal, pathErrorf(path, "%s cannot be encoded as number", val.Type())
	case ty.IsListType(), ty.IsSetType():
		return encodeSeq(val, ty, path)
	case ty.IsMapType():
		return encodeMap(val, ty, path)
	case ty.IsObjectType():
		return encodeObject(val, ty, path)
	}
	return cty.NilVal, pathErrorf(path, "unsupported type %s", ty.FriendlyName())
}

func encodeSeq(val reflect.Value, ty cty.Type, path cty.Path) (cty.Value, error) {
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return cty.NilVal, pathErrorf(path, "%s cannot be encoded as %s", val.Type(), ty.FriendlyName())
	}
	if val.Kind() == reflect.Slice && val.IsNil() {
		return cty.NullVal(ty), nil
	}
	et := ty.ElementType()
	if val.Len() == 0 {
		if ty.IsSetType() {
			return cty.SetValEmpty(et), nil
		}
		return cty.ListValEmpty(et), nil
	}
	vals := make([]cty.Value, val.Len())
	for i := range vals {
		v, err := encode(val.Index(i), et, path.Index(cty.NumberIntVal(int64(i))))
		if err != nil {
			return cty.NilVal, err
		}
		vals[i] = v
	}
	if ty.IsSetType() {
		return cty.SetVal(vals), nil
	}
	return cty.ListVal(vals), nil
}

func encodeMap(val reflect.Value, ty cty.Type, path cty.Path) (cty.Value, error) {
	if val.Kind() != reflect.Map || val.Type().Key().Kind() != reflect.String {
		return cty.NilVal, pathErrorf(path, "%s cannot be encoded as %s", val.Type(), ty.FriendlyName())
	}
	if val.IsNil() {
		return cty.NullVal(ty), nil
	}
	et := ty.ElementType()
	if val.Len() == 0 {
		return cty.MapValEmpty(et), nil
	}
	keys := make([]string, 0, val.Len())
	for _, k := range val.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	vals := make(map[string]cty.Value, len(keys))
	for _, k := range keys {
		kv := reflect.ValueOf(k).Convert(val.Type().Key())
		v, err := encode(val.MapIndex(kv), et, path.Index(cty.StringVal(k)))
		if err != nil {
			return cty.NilVal, err
		}
		vals[k] = v
	}
	return cty.MapVal(vals), nil
}

func encodeObject(val reflect.Value, ty cty.Type, path cty.Path) (cty.Value, error) {
	if val.Kind() != reflect.Struct {
		return cty.NilVal, pathErrorf(path, "%s cannot be encoded as object", val.Type())
	}
	attrs := ty.AttributeTypes()
	if len(attrs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	fields := taggedFields(val.Type())
	vals := make(map[string]cty.Value, len(attrs))
	for name, aty := range attrs {
		idx, ok := fields[name]
		if !ok {
			vals[name] = cty.NullVal(aty)
			continue
		}
		v, err := encode(val.Field(idx), aty, path.GetAttr(name))
		if err != nil {
			return cty.NilVal, err
		}
		vals[name] = v
	}
	return cty.ObjectVal(vals), nil
}
