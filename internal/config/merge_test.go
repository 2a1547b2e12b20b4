package config

import (
	"reflect"
	"testing"
	"time"
)

type layerSample struct {
	Name    string
	Delay   time.Duration
	Tags    []string
	Limits  map[string]int
	Nested  layerNested
	Pointer *layerNested
}

type layerNested struct {
	Level string
	Depth int
}

func TestMergeLayers(t *testing.T) {
	cases := []struct {
		name   string
		layers []layerSample
		want   layerSample
	}{
		{
			name: "zero scalars fall back",
			layers: []layerSample{
				{Name: "override"},
				{Name: "base", Delay: time.Second},
			},
			want: layerSample{Name: "override", Delay: time.Second},
		},
		{
			name: "nested structs merge per field",
			layers: []layerSample{
				{Nested: layerNested{Level: "debug"}},
				{Nested: layerNested{Level: "info", Depth: 3}},
			},
			want: layerSample{Nested: layerNested{Level: "debug", Depth: 3}},
		},
		{
			name: "empty slice replaces weaker slice",
			layers: []layerSample{
				{Tags: []string{}},
				{Tags: []string{"a"}},
			},
			want: layerSample{Tags: []string{}},
		},
		{
			name: "nil slice inherits",
			layers: []layerSample{
				{},
				{Tags: []string{"a"}},
			},
			want: layerSample{Tags: []string{"a"}},
		},
		{
			name: "maps merge by key",
			layers: []layerSample{
				{Limits: map[string]int{"a": 1}},
				{Limits: map[string]int{"a": 9, "b": 2}},
			},
			want: layerSample{Limits: map[string]int{"a": 1, "b": 2}},
		},
		{
			name: "pointers merge through",
			layers: []layerSample{
				{Pointer: &layerNested{Depth: 2}},
				{Pointer: &layerNested{Level: "warn"}},
			},
			want: layerSample{Pointer: &layerNested{Level: "warn", Depth: 2}},
		},
		{
			name: "three layers",
			layers: []layerSample{
				{Name: "flag"},
				{Delay: 2 * time.Second},
				{Name: "default", Delay: time.Second, Nested: layerNested{Depth: 1}},
			},
			want: layerSample{Name: "flag", Delay: 2 * time.Second, Nested: layerNested{Depth: 1}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MergeLayers(tc.layers...)
			if !reflect.DeepEqual(tc.want, got) {
				t.Fatalf("merged mismatch:\nwant: %#v\n got: %#v", tc.want, got)
			}
		})
	}
}

func TestMergeLayersDoesNotAlias(t *testing.T) {
	base := layerSample{Tags: []string{"a"}, Limits: map[string]int{"x": 1}}
	got := MergeLayers(layerSample{}, base)
	got.Tags[0] = "changed"
	got.Limits["x"] = 5
	if base.Tags[0] != "a" || base.Limits["x"] != 1 {
		t.Fatalf("merge result aliases its input")
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	var zero layerNested
	if got := MergeLayers[layerNested](); got != zero {
		t.Fatalf("expected zero value, got %+v", got)
	}
}
