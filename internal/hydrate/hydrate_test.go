package hydrate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type widthRecord struct {
	Headers []string       `json:"headers"`
	Widths  map[string]int `json:"widths"`
	Tags    []string       `json:"tags,omitempty"`
}

func renameLegacyWidths(_ Context, payload map[string]any) (map[string]any, error) {
	legacy, ok := payload["columnWidths"]
	if !ok {
		return payload, nil
	}
	if _, isMap := legacy.(map[string]any); !isMap {
		return nil, fmt.Errorf("columnWidths must be an object, got %T", legacy)
	}
	payload["widths"] = legacy
	delete(payload, "columnWidths")
	return payload, nil
}

func tagPartition(ctx Context, record *widthRecord) error {
	if record == nil {
		return errors.New("record is nil")
	}
	if len(record.Tags) == 0 {
		record.Tags = []string{ctx.Partition + ":" + ctx.Key}
	}
	return nil
}

func TestDecoderHooks(t *testing.T) {
	cases := []struct {
		name      string
		options   []DecoderOption[widthRecord]
		input     map[string]any
		expect    widthRecord
		expectErr string
	}{
		{
			name:  "plain decode",
			input: map[string]any{"headers": []any{"A"}, "widths": map[string]any{"A": 90}},
			expect: widthRecord{
				Headers: []string{"A"},
				Widths:  map[string]int{"A": 90},
			},
		},
		{
			name:    "pre hook migrates legacy key",
			options: []DecoderOption[widthRecord]{WithPreHook[widthRecord](renameLegacyWidths)},
			input:   map[string]any{"headers": []any{"A"}, "columnWidths": map[string]any{"A": 120}},
			expect: widthRecord{
				Headers: []string{"A"},
				Widths:  map[string]int{"A": 120},
			},
		},
		{
			name:      "pre hook failure",
			options:   []DecoderOption[widthRecord]{WithPreHook[widthRecord](renameLegacyWidths)},
			input:     map[string]any{"columnWidths": "wide"},
			expectErr: "pre-hook key \"main\"",
		},
		{
			name:    "post hook stamps tags",
			options: []DecoderOption[widthRecord]{WithPostHook[widthRecord](tagPartition)},
			input:   map[string]any{"headers": []any{"B"}},
			expect: widthRecord{
				Headers: []string{"B"},
				Tags:    []string{"schema:main"},
			},
		},
		{
			name:      "disallow unknown fields",
			options:   []DecoderOption[widthRecord]{WithDisallowUnknownFields[widthRecord]()},
			input:     map[string]any{"headers": []any{"A"}, "extra": true},
			expectErr: "decode key \"main\"",
		},
		{
			name: "custom decoder",
			options: []DecoderOption[widthRecord]{WithCustomDecoder[widthRecord](func(_ Context, payload map[string]any) (widthRecord, error) {
				raw, _ := payload["csv"].(string)
				return widthRecord{Headers: strings.Split(raw, ",")}, nil
			})},
			input:  map[string]any{"csv": "A,B"},
			expect: widthRecord{Headers: []string{"A", "B"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoder := NewDecoder[widthRecord](tc.options...)
			result, err := decoder.Decode(Context{Key: "main", Partition: "schema"}, tc.input)
			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded record mismatch:\nwant: %#v\n got: %#v", tc.expect, result)
			}
		})
	}
}

func TestDecodeRejectsNilPayload(t *testing.T) {
	decoder := NewDecoder[widthRecord]()
	if _, err := decoder.Decode(Context{Key: "main"}, nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestDecodeJSON(t *testing.T) {
	decoder := NewDecoder[widthRecord](WithPreHook[widthRecord](renameLegacyWidths))
	result, err := decoder.DecodeJSON(Context{Key: "main"}, []byte(`{"headers":["A"],"columnWidths":{"A":75}}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if result.Widths["A"] != 75 {
		t.Fatalf("expected migrated width 75, got %#v", result.Widths)
	}
	if _, err := decoder.DecodeJSON(Context{Key: "main"}, []byte(`not json`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPreHookDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"columnWidths": map[string]any{"A": 60}}
	decoder := NewDecoder[widthRecord](WithPreHook[widthRecord](renameLegacyWidths))
	if _, err := decoder.Decode(Context{Key: "main"}, input); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := input["columnWidths"]; !ok {
		t.Fatalf("caller payload must not be mutated")
	}
}

func TestDecodeErrorStage(t *testing.T) {
	failing := func(Context, *widthRecord) error { return errors.New("no widths") }
	decoder := NewDecoder[widthRecord](WithPostHook[widthRecord](failing))

	_, err := decoder.DecodeJSON(Context{Key: "main"}, []byte(`{"headers":["A"]}`))

	var hydrateErr *Error
	if !errors.As(err, &hydrateErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if hydrateErr.Stage != StagePost || hydrateErr.Key != "main" {
		t.Fatalf("unexpected error: %+v", hydrateErr)
	}

	_, err = decoder.DecodeJSON(Context{Key: "main"}, []byte(`null`))
	if !errors.As(err, &hydrateErr) || hydrateErr.Stage != StageParse {
		t.Fatalf("expected parse stage for null payload, got %v", err)
	}
}
