package httpapi

import (
	csvdoc "github.com/goliatone/go-csvdoc"
)

// DocumentResponse is the JSON view of the visible document.
type DocumentResponse struct {
	Headers []string                  `json:"headers"`
	Rows    []csvdoc.Row              `json:"rows"`
	Schema  map[string]ColumnResponse `json:"schema"`
	Widths  map[string]int            `json:"widths"`
	CanUndo bool                      `json:"can_undo"`
	CanRedo bool                      `json:"can_redo"`
}

type ColumnResponse struct {
	Constrained bool     `json:"constrained"`
	Options     []string `json:"options"`
}

type RowRequest struct {
	Values map[string]string `json:"values"`
}

type RowCreatedResponse struct {
	ID string `json:"id"`
}

type CellRequest struct {
	Value string `json:"value"`
	// Commit defaults to true; false records a transient edit.
	Commit *bool `json:"commit,omitempty"`
}

type ColumnRequest struct {
	Name        string   `json:"name"`
	Constrained bool     `json:"constrained"`
	Options     []string `json:"options"`
}

type OptionsRequest struct {
	Options []string `json:"options"`
}

type WidthRequest struct {
	Width int `json:"width"`
}

type HistoryResponse struct {
	Applied bool `json:"applied"`
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

type CheckResponse struct {
	Violations []csvdoc.Violation `json:"violations"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Column string `json:"column,omitempty"`
	RowID  string `json:"row_id,omitempty"`
	Line   int    `json:"line,omitempty"`
}

func documentResponse(e *csvdoc.Engine) DocumentResponse {
	snap := e.Snapshot()
	schema := make(map[string]ColumnResponse, len(snap.Headers))
	for _, name := range snap.Headers {
		column := snap.Schema[name]
		options := column.Options()
		if options == nil {
			options = []string{}
		}
		schema[name] = ColumnResponse{Constrained: column.Constrained, Options: options}
	}
	return DocumentResponse{
		Headers: snap.Headers,
		Rows:    snap.Rows,
		Schema:  schema,
		Widths:  e.Widths(),
		CanUndo: e.CanUndo(),
		CanRedo: e.CanRedo(),
	}
}
