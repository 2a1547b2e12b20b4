package csvdoc

import (
	"errors"
	"fmt"
)

// Parse errors.
var (
	ErrNoHeader          = errors.New("csvdoc: no header line")
	ErrDuplicateHeader   = errors.New("csvdoc: duplicate header name")
	ErrUnterminatedQuote = errors.New("csvdoc: unterminated quoted field")
	ErrInvalidEncoding   = errors.New("csvdoc: input is not valid UTF-8")
)

// Validation errors. Operations returning them leave the document untouched.
var (
	ErrUnknownRow      = errors.New("csvdoc: unknown row")
	ErrUnknownColumn   = errors.New("csvdoc: unknown column")
	ErrNotConstrained  = errors.New("csvdoc: column is not constrained")
	ErrEmptyOptions    = errors.New("csvdoc: options list is empty")
	ErrEmptyName       = errors.New("csvdoc: column name is empty")
	ErrDuplicateColumn = errors.New("csvdoc: column already exists")
	ErrRequiredValue   = errors.New("csvdoc: required value missing")
	ErrInvalidWidth    = errors.New("csvdoc: width must be positive")
	ErrClosed          = errors.New("csvdoc: engine closed")
)

// ParseError reports malformed CSV input. Line is 1-based and counts every
// physical line, blank ones included.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("csvdoc: parse line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("csvdoc: parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError reports rejected input for a public operation.
type ValidationError struct {
	Op     string
	Column string
	RowID  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Column != "" && e.RowID != "":
		return fmt.Sprintf("csvdoc: %s row=%s column=%q: %v", e.Op, e.RowID, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("csvdoc: %s column=%q: %v", e.Op, e.Column, e.Err)
	case e.RowID != "":
		return fmt.Sprintf("csvdoc: %s row=%s: %v", e.Op, e.RowID, e.Err)
	default:
		return fmt.Sprintf("csvdoc: %s: %v", e.Op, e.Err)
	}
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func invalid(op, column, rowID string, err error) error {
	return &ValidationError{Op: op, Column: column, RowID: rowID, Err: err}
}
