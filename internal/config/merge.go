package config

import (
	"reflect"
	"slices"
)

// MergeLayers composes values ordered from strongest to weakest. Layers are
// applied weakest first; a stronger layer overwrites only what it sets.
// "Set" means a non-zero scalar or a non-nil slice, map, pointer or
// interface. Structs and maps merge member by member; slices replace whole,
// so an explicitly empty list wins over a weaker one. The result shares no
// memory with the inputs.
func MergeLayers[T any](layers ...T) T {
	var merged T
	target := reflect.ValueOf(&merged).Elem()
	for _, layer := range slices.Backward(layers) {
		overlay(target, reflect.ValueOf(layer))
	}
	return merged
}

// overlay writes the set parts of src into dst, which must be settable and
// own all of its memory.
func overlay(dst, src reflect.Value) {
	if !src.IsValid() {
		return
	}
	switch src.Kind() {
	case reflect.Struct:
		for i := range src.NumField() {
			if field := dst.Field(i); field.CanSet() {
				overlay(field, src.Field(i))
			}
		}
	case reflect.Pointer:
		if src.IsNil() {
			return
		}
		if dst.IsNil() {
			dst.Set(reflect.New(src.Type().Elem()))
		}
		overlay(dst.Elem(), src.Elem())
	case reflect.Map:
		if src.IsNil() {
			return
		}
		if dst.IsNil() {
			dst.Set(reflect.MakeMapWithSize(src.Type(), src.Len()))
		}
		for entries := src.MapRange(); entries.Next(); {
			entry := reflect.New(src.Type().Elem()).Elem()
			if existing := dst.MapIndex(entries.Key()); existing.IsValid() {
				entry.Set(existing)
			}
			overlay(entry, entries.Value())
			dst.SetMapIndex(entries.Key(), entry)
		}
	case reflect.Slice:
		if src.IsNil() {
			return
		}
		fresh := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		for i := range src.Len() {
			overlay(fresh.Index(i), src.Index(i))
		}
		dst.Set(fresh)
	case reflect.Interface:
		if !src.IsNil() {
			dst.Set(src)
		}
	default:
		if !src.IsZero() {
			dst.Set(src)
		}
	}
}
