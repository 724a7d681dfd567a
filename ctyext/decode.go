package ctyext

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// TagName is the struct tag that names the attribute a field maps to.
//
//	type projectFields struct {
//		Name        string  `seed:"name"`
//		Description *string `seed:"description"`
//	}
const TagName = "seed"

// Decode assigns a cty object to the struct pointed to by target.
//
// Only attributes present and non-null in val are assigned; all other fields
// keep their value. This makes pointer fields a natural way to tell apart
// "not declared" (nil) from "declared as zero value".
//
// An attribute without a matching tagged field is an error. In case an error
// occurs, a PathError is returned.
func Decode(val cty.Value, target interface{}) error {
	tVal := reflect.ValueOf(target)
	if tVal.Kind() != reflect.Ptr || tVal.IsNil() {
		panic("target value must be a non-nil pointer")
	}
	return decode(val, tVal, nil)
}

func decode(val cty.Value, target reflect.Value, path cty.Path) error {
	if val.IsNull() {
		return nil
	}
	if !val.IsKnown() {
		return pathErrorf(path, "value is not known")
	}

	for target.Kind() == reflect.Ptr {
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		target = target.Elem()
	}

	ty := val.Type()
	switch {
	case ty == cty.Bool:
		if target.Kind() != reflect.Bool {
			return pathErrorf(path, "bool cannot be assigned to %s", target.Type())
		}
		target.SetBool(val.True())
		return nil
	case ty == cty.String:
		if target.Kind() != reflect.String {
			return pathErrorf(path, "string cannot be assigned to %s", target.Type())
		}
		target.SetString(val.AsString())
		return nil
	case ty == cty.Number:
		return decodeNumber(val, target, path)
	case ty.IsListType(), ty.IsSetType(), ty.IsTupleType():
		return decodeSlice(val, target, path)
	case ty.IsMapType():
		return decodeMap(val, target, path)
	case ty.IsObjectType():
		return decodeObject(val, target, path)
	}
	return pathErrorf(path, "unsupported type %s", ty.FriendlyName())
}

func decodeNumber(val cty.Value, target reflect.Value, path cty.Path) error {
	bf := val.AsBigFloat()
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !bf.IsInt() {
			return pathErrorf(path, "value must be a whole number")
		}
		i64, _ := bf.Int64()
		target.SetInt(i64)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !bf.IsInt() || bf.Sign() < 0 {
			return pathErrorf(path, "value must be a positive whole number")
		}
		u64, _ := bf.Uint64()
		target.SetUint(u64)
		return nil
	case reflect.Float32, reflect.Float64:
		f64, _ := bf.Float64()
		target.SetFloat(f64)
		return nil
	}
	return pathErrorf(path, "number cannot be assigned to %s", target.Type())
}

func decodeSlice(val cty.Value, target reflect.Value, path cty.Path) error {
	if target.Kind() != reflect.Slice {
		return pathErrorf(path, "target is %s, not slice", target.Kind())
	}
	n := val.LengthInt()
	tv := reflect.MakeSlice(target.Type(), n, n)
	i := 0
	for it := val.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if err := decode(ev, tv.Index(i), path.Index(cty.NumberIntVal(int64(i)))); err != nil {
			return err
		}
		i++
	}
	target.Set(tv)
	return nil
}

func decodeMap(val cty.Value, target reflect.Value, path cty.Path) error {
	if target.Kind() != reflect.Map || target.Type().Key().Kind() != reflect.String {
		return pathErrorf(path, "target is %s, not map with string keys", target.Type())
	}
	tv := reflect.MakeMapWithSize(target.Type(), val.LengthInt())
	et := target.Type().Elem()
	for it := val.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		elem := reflect.New(et).Elem()
		if err := decode(ev, elem, path.Index(k)); err != nil {
			return err
		}
		tv.SetMapIndex(reflect.ValueOf(k.AsString()).Convert(target.Type().Key()), elem)
	}
	target.Set(tv)
	return nil
}

func decodeObject(val cty.Value, target reflect.Value, path cty.Path) error {
	if target.Kind() != reflect.Struct {
		return pathErrorf(path, "target is %s, not struct", target.Kind())
	}
	fields := taggedFields(target.Type())
	for name := range val.Type().AttributeTypes() {
		idx, ok := fields[name]
		if !ok {
			return pathErrorf(path.GetAttr(name), "unsupported attribute %q", name)
		}
		if err := decode(val.GetAttr(name), target.Field(idx), path.GetAttr(name)); err != nil {
			return err
		}
	}
	return nil
}

// taggedFields maps attribute names to struct field indices.
func taggedFields(ty reflect.Type) map[string]int {
	out := make(map[string]int, ty.NumField())
	for i := 0; i < ty.NumField(); i++ {
		f := ty.Field(i)
		name := FieldName(f)
		if name == "" {
			continue
		}
		if _, dup := out[name]; dup {
			panic(fmt.Sprintf("Duplicate %s tag %q on %s", TagName, name, ty))
		}
		out[name] = i
	}
	return out
}

// FieldName returns the attribute name for a struct field, or an empty string
// if the field is not tagged.
func FieldName(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup(TagName)
	if !ok {
		return ""
	}
	if comma := strings.Index(tag, ","); comma >= 0 {
		tag = tag[:comma]
	}
	return tag
}
