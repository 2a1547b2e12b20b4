package csvdoc

import "strings"

// MergeHeaders returns incoming headers in their order followed by any
// persisted-only headers, duplicates removed by name.
func MergeHeaders(incoming, persisted []string) []string {
	seen := make(map[string]struct{}, len(incoming)+len(persisted))
	out := make([]string, 0, len(incoming)+len(persisted))
	for _, source := range [][]string{incoming, persisted} {
		for _, name := range source {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// classifier decides which columns are constrained when a schema is built
// from loaded rows.
type classifier struct {
	designated map[string]struct{}
	threshold  int
}

func newClassifier(designated []string, threshold int) classifier {
	set := make(map[string]struct{}, len(designated))
	for _, name := range designated {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = struct{}{}
		}
	}
	return classifier{designated: set, threshold: threshold}
}

func (c classifier) isDesignated(name string) bool {
	_, ok := c.designated[name]
	return ok
}

// BuildSchema derives the schema for headers. A column is constrained when it
// is designated or the persisted schema marks it constrained; a persisted
// false never demotes a designated column. Constrained columns start from the
// persisted allowed set and gain every non-blank value found in rows.
func (c classifier) BuildSchema(headers []string, rows []Row, persisted map[string]ColumnSchema) map[string]ColumnSchema {
	observed := make(map[string]OptionSet, len(headers))
	for _, name := range headers {
		observed[name] = OptionSet{}
	}
	for _, row := range rows {
		for _, name := range headers {
			observed[name].add(row.Values[name])
		}
	}

	schema := make(map[string]ColumnSchema, len(headers))
	for _, name := range headers {
		prior, hasPrior := persisted[name]
		constrained := c.isDesignated(name) || (hasPrior && prior.Constrained)
		if !constrained && c.threshold > 0 {
			n := observed[name].Len()
			constrained = n > 0 && n <= c.threshold
		}
		if !constrained {
			schema[name] = ColumnSchema{Allowed: OptionSet{}}
			continue
		}
		allowed := OptionSet{}
		if hasPrior && prior.Constrained {
			allowed = prior.Allowed.Clone()
		}
		for value := range observed[name] {
			allowed[value] = struct{}{}
		}
		schema[name] = ColumnSchema{Constrained: true, Allowed: allowed}
	}
	return schema
}

// backfill returns rows carrying exactly the keys of headers. Rows that
// already match are reused as-is.
func backfill(rows []Row, headers []string) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		if rowMatches(row, headers) {
			out[i] = row
			continue
		}
		values := make(map[string]string, len(headers))
		for _, name := range headers {
			values[name] = row.Values[name]
		}
		out[i] = Row{ID: row.ID, Values: values}
	}
	return out
}

func rowMatches(row Row, headers []string) bool {
	if len(row.Values) != len(headers) {
		return false
	}
	for _, name := range headers {
		if _, ok := row.Values[name]; !ok {
			return false
		}
	}
	return true
}

// mergeWidths gives every header its stored width or the default. Stored
// widths below the minimum are clamped.
func mergeWidths(headers []string, stored map[string]int) map[string]int {
	out := make(map[string]int, len(headers))
	for _, name := range headers {
		width, ok := stored[name]
		if !ok {
			width = DefaultColumnWidth
		}
		out[name] = clampWidth(width)
	}
	return out
}

func clampWidth(width int) int {
	if width < MinColumnWidth {
		return MinColumnWidth
	}
	return width
}
