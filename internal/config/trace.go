package config

import (
	"reflect"
	"strings"
)

// Layer is one named configuration source. Layers are ordered strongest
// first.
type Layer struct {
	Name   string
	Config Config
}

// Provenance reports which layer supplied a setting. Layer is empty when no
// layer sets it.
type Provenance struct {
	Path  string `json:"path" yaml:"path"`
	Layer string `json:"layer,omitempty" yaml:"layer,omitempty"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Merge folds the layers into one Config.
func Merge(layers []Layer) Config {
	configs := make([]Config, len(layers))
	for i, layer := range layers {
		configs[i] = layer.Config
	}
	return MergeLayers(configs...)
}

// Trace lists every leaf setting by its YAML path with the strongest layer
// that sets it, matching the precedence used by MergeLayers.
func Trace(layers []Layer) []Provenance {
	var out []Provenance
	walkLeaves(reflect.TypeOf(Config{}), "", nil, func(path string, index []int) {
		entry := Provenance{Path: path}
		for _, layer := range layers {
			value := reflect.ValueOf(layer.Config).FieldByIndex(index)
			if isSet(value) {
				entry.Layer = layer.Name
				entry.Value = value.Interface()
				break
			}
		}
		out = append(out, entry)
	})
	return out
}

func walkLeaves(t reflect.Type, prefix string, index []int, visit func(path string, index []int)) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		fieldIndex := append(append([]int{}, index...), i)
		if field.Type.Kind() == reflect.Struct {
			walkLeaves(field.Type, path, fieldIndex, visit)
			continue
		}
		visit(path, fieldIndex)
	}
}

func isSet(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return !v.IsNil()
	default:
		return !v.IsZero()
	}
}
