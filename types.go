package csvdoc

import "slices"

// Column width bounds, in display units.
const (
	MinColumnWidth     = 50
	DefaultColumnWidth = 150
)

// Row is one record. Values holds an entry for every header of the snapshot
// it belongs to.
type Row struct {
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
}

// Get returns the value stored under column, "" when absent.
func (r Row) Get(column string) string {
	return r.Values[column]
}

func (r Row) clone() Row {
	values := make(map[string]string, len(r.Values))
	for key, value := range r.Values {
		values[key] = value
	}
	return Row{ID: r.ID, Values: values}
}

// ColumnSchema describes a column's value constraint. Allowed is empty and
// ignored when Constrained is false.
type ColumnSchema struct {
	Constrained bool      `json:"constrained"`
	Allowed     OptionSet `json:"-"`
}

// Options returns the allowed values in sorted order.
func (c ColumnSchema) Options() []string {
	if !c.Constrained {
		return nil
	}
	return c.Allowed.Sorted()
}

func (c ColumnSchema) clone() ColumnSchema {
	return ColumnSchema{Constrained: c.Constrained, Allowed: c.Allowed.Clone()}
}

func (c ColumnSchema) equal(other ColumnSchema) bool {
	if c.Constrained != other.Constrained {
		return false
	}
	return c.Allowed.Equal(other.Allowed)
}

// Snapshot is the unit of history: rows, headers and schema together.
// Snapshots handed out by the Engine are deep copies.
type Snapshot struct {
	Rows    []Row                   `json:"rows"`
	Headers []string                `json:"headers"`
	Schema  map[string]ColumnSchema `json:"-"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Rows:    make([]Row, len(s.Rows)),
		Headers: slices.Clone(s.Headers),
		Schema:  make(map[string]ColumnSchema, len(s.Schema)),
	}
	for i, row := range s.Rows {
		out.Rows[i] = row.clone()
	}
	for name, column := range s.Schema {
		out.Schema[name] = column.clone()
	}
	return out
}

// HasHeader reports whether name is one of the headers.
func (s Snapshot) HasHeader(name string) bool {
	return slices.Contains(s.Headers, name)
}

// RowIndex returns the position of the row with id, or -1.
func (s Snapshot) RowIndex(id string) int {
	for i, row := range s.Rows {
		if row.ID == id {
			return i
		}
	}
	return -1
}

// Equal compares content: headers, schema and row values in order. Row IDs
// are compared too.
func (s Snapshot) Equal(other Snapshot) bool {
	if !slices.Equal(s.Headers, other.Headers) || len(s.Rows) != len(other.Rows) || len(s.Schema) != len(other.Schema) {
		return false
	}
	for name, column := range s.Schema {
		peer, ok := other.Schema[name]
		if !ok || !column.equal(peer) {
			return false
		}
	}
	for i, row := range s.Rows {
		peer := other.Rows[i]
		if row.ID != peer.ID || len(row.Values) != len(peer.Values) {
			return false
		}
		for key, value := range row.Values {
			if peerValue, ok := peer.Values[key]; !ok || peerValue != value {
				return false
			}
		}
	}
	return true
}

// withRows returns a shallow copy sharing headers and schema.
func (s Snapshot) withRows(rows []Row) Snapshot {
	return Snapshot{Rows: rows, Headers: s.Headers, Schema: s.Schema}
}

// withSchemaEntry returns a copy whose schema map differs only at name.
func (s Snapshot) withSchemaEntry(name string, column ColumnSchema) Snapshot {
	schema := make(map[string]ColumnSchema, len(s.Schema)+1)
	for key, value := range s.Schema {
		schema[key] = value
	}
	schema[name] = column
	return Snapshot{Rows: s.Rows, Headers: s.Headers, Schema: schema}
}
