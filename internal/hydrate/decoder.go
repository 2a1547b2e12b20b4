// Package hydrate turns persisted JSON payloads into typed records, running
// migration hooks over the raw payload first so older storage shapes keep
// loading.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Stage names the step of Decode that failed.
type Stage string

const (
	StageParse  Stage = "parse"
	StagePre    Stage = "pre-hook"
	StageDecode Stage = "decode"
	StagePost   Stage = "post-hook"
)

// Error wraps a failure with the record key and the stage it happened in.
type Error struct {
	Key   string
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hydrate: %s key %q: %v", e.Stage, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Context identifies the stored record being decoded.
type Context struct {
	Key       string
	Partition string
}

// PreHook rewrites the generic payload before decoding. Returning nil keeps
// the payload as it was.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded record.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces JSON decoding of the migrated payload.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

type DecoderOption[T any] func(*Decoder[T])

// Decoder is safe for concurrent use once built.
type Decoder[T any] struct {
	pre    []PreHook
	post   []PostHook[T]
	strict bool
	custom CustomDecoder[T]
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithDisallowUnknownFields rejects payload keys T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) { d.strict = true }
}

func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) { d.custom = decoder }
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode runs the pre-hooks over a private copy of payload, decodes the
// result into T and then runs the post-hooks.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var record T
	if payload == nil {
		return record, &Error{Key: ctx.Key, Stage: StageParse, Err: errors.New("payload is nil")}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return record, &Error{Key: ctx.Key, Stage: StageParse, Err: err}
	}
	current, err := parse(raw)
	if err != nil {
		return record, &Error{Key: ctx.Key, Stage: StageParse, Err: err}
	}
	return d.run(ctx, current)
}

// DecodeJSON parses raw as a JSON object and decodes it. Numbers stay as
// json.Number so migrations can render them without float formatting.
func (d *Decoder[T]) DecodeJSON(ctx Context, raw []byte) (T, error) {
	payload, err := parse(raw)
	if err != nil {
		var zero T
		return zero, &Error{Key: ctx.Key, Stage: StageParse, Err: err}
	}
	return d.run(ctx, payload)
}

func (d *Decoder[T]) run(ctx Context, payload map[string]any) (T, error) {
	var record T
	for _, hook := range d.pre {
		next, err := hook(ctx, payload)
		if err != nil {
			return record, &Error{Key: ctx.Key, Stage: StagePre, Err: err}
		}
		if next != nil {
			payload = next
		}
	}

	var err error
	if d.custom != nil {
		record, err = d.custom(ctx, payload)
	} else {
		record, err = d.decode(payload)
	}
	if err != nil {
		return record, &Error{Key: ctx.Key, Stage: StageDecode, Err: err}
	}

	for _, hook := range d.post {
		if err := hook(ctx, &record); err != nil {
			var zero T
			return zero, &Error{Key: ctx.Key, Stage: StagePost, Err: err}
		}
	}
	return record, nil
}

func (d *Decoder[T]) decode(payload map[string]any) (T, error) {
	var record T
	raw, err := json.Marshal(payload)
	if err != nil {
		return record, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	err = dec.Decode(&record)
	return record, err
}

func parse(raw []byte) (map[string]any, error) {
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("payload is not an object")
	}
	return payload, nil
}
