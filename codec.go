package csvdoc

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultExportPrefix names exported files when no prefix is configured.
const DefaultExportPrefix = "InterpreSure_Annotations_edited"

// Parse decodes CSV text into headers and rows. Each row receives a fresh
// random ID. Rows only carry keys for the cells present on their line;
// callers backfill missing columns.
func Parse(text string) ([]string, []Row, error) {
	return parse(text, uuid.NewString)
}

func parse(text string, newID func() string) ([]string, []Row, error) {
	if !utf8.ValidString(text) {
		return nil, nil, &ParseError{Err: ErrInvalidEncoding}
	}

	lines := strings.Split(text, "\n")
	var headers, columns []string
	var rows []Row
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 1
		cells, err := splitLine(line)
		if err != nil {
			return nil, nil, &ParseError{Line: lineNo, Err: err}
		}
		if headers == nil {
			headers, columns, err = headerNames(cells)
			if err != nil {
				return nil, nil, &ParseError{Line: lineNo, Err: err}
			}
			continue
		}
		values := make(map[string]string, len(headers))
		for idx, cell := range cells {
			if idx >= len(columns) {
				break
			}
			if name := columns[idx]; name != "" {
				values[name] = cell
			}
		}
		rows = append(rows, Row{ID: newID(), Values: values})
	}
	if headers == nil {
		return nil, nil, &ParseError{Err: ErrNoHeader}
	}
	return headers, rows, nil
}

// headerNames returns the header list and, per cell position, the column
// that position feeds. Trailing empty names are dropped; an empty name in the
// middle leaves a gap whose cells are skipped.
func headerNames(cells []string) (headers, columns []string, err error) {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	if end == 0 {
		return nil, nil, ErrNoHeader
	}
	seen := make(map[string]struct{}, end)
	columns = cells[:end]
	for _, name := range columns {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			return nil, nil, fmt.Errorf("%w %q", ErrDuplicateHeader, name)
		}
		seen[name] = struct{}{}
		headers = append(headers, name)
	}
	return headers, columns, nil
}

// splitLine tokenizes one physical line. Commas separate cells only outside
// double quotes. Each raw cell is trimmed before its quotes are decoded, so
// whitespace inside quotes survives.
func splitLine(line string) ([]string, error) {
	var cells []string
	start := 0
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				cells = append(cells, decodeCell(line[start:i]))
				start = i + 1
			}
		}
	}
	if quoted {
		return nil, ErrUnterminatedQuote
	}
	return append(cells, decodeCell(line[start:])), nil
}

// decodeCell strips the quotes from a trimmed raw cell. A quote toggles
// quoted mode and a doubled quote inside quotes is a literal quote.
func decodeCell(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, `"`) {
		return raw
	}
	var b strings.Builder
	quoted := false
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch == '"' && quoted && i+1 < len(raw) && raw[i+1] == '"':
			b.WriteByte('"')
			i++
		case ch == '"':
			quoted = !quoted
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// Serialize encodes rows in header order. The header line comes first; rows
// are separated by "\n" with no trailing newline.
func Serialize(rows []Row, headers []string) string {
	var b strings.Builder
	writeLine(&b, headers)
	cells := make([]string, len(headers))
	for _, row := range rows {
		for i, header := range headers {
			cells[i] = row.Values[header]
		}
		b.WriteByte('\n')
		writeLine(&b, cells)
	}
	return b.String()
}

func writeLine(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeCell(cell))
	}
}

// escapeCell quotes values that carry separators, quotes, line breaks or
// edge whitespace.
func escapeCell(value string) string {
	if !strings.ContainsAny(value, ",\"\n\r") && strings.TrimSpace(value) == value {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// ExportFilename returns "<prefix>_<YYYY-MM-DD>.csv" for the UTC date of now.
func ExportFilename(prefix string, now time.Time) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultExportPrefix
	}
	return fmt.Sprintf("%s_%s.csv", prefix, now.UTC().Format(time.DateOnly))
}
