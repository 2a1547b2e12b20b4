package csvdoc

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "row-" + strconv.Itoa(n)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		headers []string
		rows    []map[string]string
	}{
		{
			name:    "plain",
			input:   "A,B\nx,y\n",
			headers: []string{"A", "B"},
			rows:    []map[string]string{{"A": "x", "B": "y"}},
		},
		{
			name:    "quoted comma and doubled quote",
			input:   "A,B\n\"x, y\",\"say \"\"hi\"\"\"",
			headers: []string{"A", "B"},
			rows:    []map[string]string{{"A": "x, y", "B": `say "hi"`}},
		},
		{
			name:    "blank lines and CRLF",
			input:   "\r\n A , B \r\n\r\n1,2\r\n   \r\n3,4\r\n",
			headers: []string{"A", "B"},
			rows:    []map[string]string{{"A": "1", "B": "2"}, {"A": "3", "B": "4"}},
		},
		{
			name:    "trailing empty headers dropped",
			input:   "A,B,,,\nx,y,z,,",
			headers: []string{"A", "B"},
			rows:    []map[string]string{{"A": "x", "B": "y"}},
		},
		{
			name:    "missing cells are absent",
			input:   "A,B,C\nx",
			headers: []string{"A", "B", "C"},
			rows:    []map[string]string{{"A": "x"}},
		},
		{
			name:    "empty middle header skips its cells",
			input:   "A,,C\n1,2,3",
			headers: []string{"A", "C"},
			rows:    []map[string]string{{"A": "1", "C": "3"}},
		},
		{
			name:    "whitespace inside quotes kept",
			input:   "A,B\n  \" padded \" ,  bare  ",
			headers: []string{"A", "B"},
			rows:    []map[string]string{{"A": " padded ", "B": "bare"}},
		},
		{
			name:    "header only",
			input:   "A,B",
			headers: []string{"A", "B"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers, rows, err := parse(tc.input, sequentialIDs())
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(headers, tc.headers) {
				t.Fatalf("headers mismatch: want %v got %v", tc.headers, headers)
			}
			if len(rows) != len(tc.rows) {
				t.Fatalf("expected %d rows, got %d", len(tc.rows), len(rows))
			}
			for i, row := range rows {
				if row.ID != "row-"+strconv.Itoa(i+1) {
					t.Fatalf("unexpected id %q", row.ID)
				}
				if !reflect.DeepEqual(row.Values, tc.rows[i]) {
					t.Fatalf("row %d mismatch: want %v got %v", i, tc.rows[i], row.Values)
				}
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  error
		line  int
	}{
		{name: "empty", input: "\n  \n", want: ErrNoHeader},
		{name: "duplicate header", input: "A,B,A\n1,2,3", want: ErrDuplicateHeader, line: 1},
		{name: "unterminated quote", input: "A,B\n\n1,\"open", want: ErrUnterminatedQuote, line: 3},
		{name: "invalid utf8", input: "A\n\xff", want: ErrInvalidEncoding},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if parseErr.Line != tc.line {
				t.Fatalf("expected line %d, got %d", tc.line, parseErr.Line)
			}
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	headers := []string{"Name", "Note, with comma", "Quote"}
	rows := []Row{
		{ID: "a", Values: map[string]string{"Name": "plain", "Note, with comma": "x, y", "Quote": `he said "no"`}},
		{ID: "b", Values: map[string]string{"Name": "", "Note, with comma": "", "Quote": `""`}},
		{ID: "c", Values: map[string]string{"Name": "ΠΑΥΛΟΣ", "Note, with comma": "Paul’s", "Quote": "'single'"}},
		{ID: "d", Values: map[string]string{"Name": " padded ", "Note, with comma": "\ttab", "Quote": `" edge "`}},
	}

	text := Serialize(rows, headers)
	gotHeaders, gotRows, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(Serialize): %v\n%s", err, text)
	}
	if !reflect.DeepEqual(gotHeaders, headers) {
		t.Fatalf("headers mismatch: %v", gotHeaders)
	}
	if len(gotRows) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(gotRows))
	}
	for i := range rows {
		if !reflect.DeepEqual(gotRows[i].Values, rows[i].Values) {
			t.Fatalf("row %d mismatch:\nwant %v\n got %v", i, rows[i].Values, gotRows[i].Values)
		}
	}
}

func TestSerializeQuoting(t *testing.T) {
	rows := []Row{{Values: map[string]string{"A": "x,y", "B": `q"q`, "C": "plain", "D": " pad"}}}
	got := Serialize(rows, []string{"A", "B", "C", "D"})
	want := "A,B,C,D\n\"x,y\",\"q\"\"q\",plain,\" pad\""
	if got != want {
		t.Fatalf("want %q got %q", want, got)
	}
}

func TestDefaultCSVParses(t *testing.T) {
	headers, rows, err := Parse(DefaultCSV())
	if err != nil {
		t.Fatalf("default document: %v", err)
	}
	if len(headers) != 29 || headers[0] != "ID" || headers[len(headers)-1] != "Notes" {
		t.Fatalf("unexpected headers %v", headers)
	}
	if len(rows) != 14 {
		t.Fatalf("expected 14 rows, got %d", len(rows))
	}
	if rows[0].Values["TokenID"] != "57001001-01, 57001001-02, 57001001-03, 57001001-04" {
		t.Fatalf("quoted token list not preserved: %q", rows[0].Values["TokenID"])
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)
	if got := ExportFilename("", now); got != "InterpreSure_Annotations_edited_2024-03-09.csv" {
		t.Fatalf("unexpected default name %q", got)
	}
	if got := ExportFilename("notes", now); got != "notes_2024-03-09.csv" {
		t.Fatalf("unexpected name %q", got)
	}
}
