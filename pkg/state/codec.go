package state

import (
	"encoding/json"
	"fmt"
)

// Codec converts records to and from the bytes held by byte-oriented
// backends.
type Codec[T any] interface {
	Encode(record T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec encodes records with encoding/json.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(record T) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("state: encode: %w", err)
	}
	return data, nil
}

func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("state: decode: %w", err)
	}
	return out, nil
}

// envelope is the on-disk layout used by byte-oriented backends: the encoded
// record next to its Meta.
type envelope struct {
	Meta   Meta            `json:"meta"`
	Record json.RawMessage `json:"record"`
}

// EncodeEnvelope wraps an encoded record together with meta.
func EncodeEnvelope[T any](codec Codec[T], record T, meta Meta) ([]byte, error) {
	if codec == nil {
		codec = JSONCodec[T]{}
	}
	payload, err := codec.Encode(record)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(envelope{Meta: meta, Record: payload})
	if err != nil {
		return nil, fmt.Errorf("state: encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope is the inverse of EncodeEnvelope.
func DecodeEnvelope[T any](codec Codec[T], data []byte) (T, Meta, error) {
	var zero T
	if codec == nil {
		codec = JSONCodec[T]{}
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, Meta{}, fmt.Errorf("state: decode envelope: %w", err)
	}
	record, err := codec.Decode(env.Record)
	if err != nil {
		return zero, Meta{}, err
	}
	return record, env.Meta, nil
}
