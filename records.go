package csvdoc

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/goliatone/go-csvdoc/internal/hydrate"
	"github.com/goliatone/go-csvdoc/pkg/state"
)

// DocumentRecord is the stored form of the document partition. Row IDs are
// not stored; restored rows receive fresh IDs.
type DocumentRecord struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

// ColumnRecord is the stored form of a ColumnSchema. Options is sorted and
// duplicate-free.
type ColumnRecord struct {
	IsEnum  bool     `json:"isEnum"`
	Options []string `json:"options"`
}

// SchemaRecord is the stored form of the schema partition.
type SchemaRecord struct {
	Headers      []string                `json:"headers"`
	ColumnSchema map[string]ColumnRecord `json:"columnSchema"`
	ColumnWidths map[string]int          `json:"columnWidths"`
}

func documentRecord(snap Snapshot) DocumentRecord {
	rows := make([]map[string]string, len(snap.Rows))
	for i, row := range snap.Rows {
		values := make(map[string]string, len(snap.Headers))
		for _, name := range snap.Headers {
			values[name] = row.Values[name]
		}
		rows[i] = values
	}
	return DocumentRecord{Headers: slices.Clone(snap.Headers), Rows: rows}
}

// schemaRecord serialises the schema with widths filtered to the current
// headers.
func schemaRecord(snap Snapshot, widths map[string]int) SchemaRecord {
	record := SchemaRecord{
		Headers:      slices.Clone(snap.Headers),
		ColumnSchema: make(map[string]ColumnRecord, len(snap.Headers)),
		ColumnWidths: make(map[string]int, len(snap.Headers)),
	}
	for _, name := range snap.Headers {
		column := snap.Schema[name]
		options := column.Options()
		if options == nil {
			options = []string{}
		}
		record.ColumnSchema[name] = ColumnRecord{IsEnum: column.Constrained, Options: options}
		if width, ok := widths[name]; ok {
			record.ColumnWidths[name] = width
		}
	}
	return record
}

// schema converts the stored column definitions back into option sets.
func (r SchemaRecord) schema() map[string]ColumnSchema {
	out := make(map[string]ColumnSchema, len(r.ColumnSchema))
	for name, column := range r.ColumnSchema {
		if !column.IsEnum {
			out[name] = ColumnSchema{Allowed: OptionSet{}}
			continue
		}
		out[name] = ColumnSchema{Constrained: true, Allowed: NewOptionSet(column.Options...)}
	}
	return out
}

func (r DocumentRecord) rows(newID func() string) []Row {
	out := make([]Row, 0, len(r.Rows))
	for _, values := range r.Rows {
		out = append(out, Row{ID: newID(), Values: maps.Clone(values)})
	}
	return out
}

// DocumentCodec encodes document records as JSON. Decoding also accepts the
// legacy combined payload {data, headers, enumColumns}.
func DocumentCodec() state.Codec[DocumentRecord] {
	return recordCodec[DocumentRecord]{
		partition: state.PartitionDocument,
		decoder:   hydrate.NewDecoder[DocumentRecord](hydrate.WithPreHook[DocumentRecord](migrateLegacyDocument)),
	}
}

// SchemaCodec encodes schema records as JSON. Decoding also accepts the
// legacy combined payload {data, headers, enumColumns}.
func SchemaCodec() state.Codec[SchemaRecord] {
	return recordCodec[SchemaRecord]{
		partition: state.PartitionSchema,
		decoder:   hydrate.NewDecoder[SchemaRecord](hydrate.WithPreHook[SchemaRecord](migrateLegacySchema)),
	}
}

type recordCodec[T any] struct {
	partition state.Partition
	decoder   *hydrate.Decoder[T]
}

func (c recordCodec[T]) Encode(record T) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("csvdoc: encode %s record: %w", c.partition, err)
	}
	return data, nil
}

func (c recordCodec[T]) Decode(data []byte) (T, error) {
	return c.decoder.DecodeJSON(hydrate.Context{Key: string(c.partition), Partition: string(c.partition)}, data)
}

func migrateLegacyDocument(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	data, legacy := payload["data"]
	if !legacy {
		return payload, nil
	}
	if _, current := payload["rows"]; current {
		return payload, nil
	}
	items, ok := data.([]any)
	if !ok && data != nil {
		return nil, fmt.Errorf("legacy data must be a list, got %T", data)
	}
	rows := make([]any, 0, len(items))
	for _, item := range items {
		values, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("legacy row must be an object, got %T", item)
		}
		row := make(map[string]any, len(values))
		for key, value := range values {
			if key == "__id" {
				continue
			}
			row[key] = legacyString(value)
		}
		rows = append(rows, row)
	}
	return map[string]any{"headers": payload["headers"], "rows": rows}, nil
}

func migrateLegacySchema(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	enums, legacy := payload["enumColumns"]
	if !legacy {
		return payload, nil
	}
	if _, current := payload["columnSchema"]; current {
		return payload, nil
	}
	columns, ok := enums.(map[string]any)
	if !ok && enums != nil {
		return nil, fmt.Errorf("legacy enumColumns must be an object, got %T", enums)
	}
	schema := make(map[string]any, len(columns))
	for name, raw := range columns {
		entry, _ := raw.(map[string]any)
		isEnum, _ := entry["isEnum"].(bool)
		options := []any{}
		// Sets stored by the legacy editor serialise as objects; only lists
		// carry values.
		if list, ok := entry["options"].([]any); ok && isEnum {
			for _, value := range list {
				options = append(options, legacyString(value))
			}
		}
		schema[name] = map[string]any{"isEnum": isEnum, "options": options}
	}
	return map[string]any{
		"headers":      payload["headers"],
		"columnSchema": schema,
		"columnWidths": map[string]any{},
	}, nil
}

func legacyString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
