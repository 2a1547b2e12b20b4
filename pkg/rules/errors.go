package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBoolean is reported when a rule evaluates to a non-boolean value.
	ErrNotBoolean = errors.New("rules: result is not a boolean")
	// ErrUnknownEngine is returned for an unsupported engine name.
	ErrUnknownEngine = errors.New("rules: unknown engine")
	// ErrRuleFailed marks a rule that evaluated to false.
	ErrRuleFailed = errors.New("rules: check failed")
	// ErrEmptyExpression rejects a rule without an expression.
	ErrEmptyExpression = errors.New("rules: expression must not be empty")
	// ErrFunctionNotFound is returned when an expression calls an
	// unregistered helper.
	ErrFunctionNotFound = errors.New("rules: function not registered")
)

// EvaluationError ties a compile or runtime failure to the engine, the
// expression and the checked column.
type EvaluationError struct {
	Engine string
	Expr   string
	Column string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "rules: " + e.Engine
	if e.Column != "" {
		msg += " on " + e.Column
	}
	if e.Expr != "" {
		msg += fmt.Sprintf(" %q", e.Expr)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// annotate wraps err in an EvaluationError. When err already is one, only its
// empty fields are filled in.
func annotate(err error, engine, expr, column string) error {
	if err == nil {
		return nil
	}
	var existing *EvaluationError
	if !errors.As(err, &existing) {
		return &EvaluationError{Engine: engine, Expr: expr, Column: column, Err: err}
	}
	fill(&existing.Engine, engine)
	fill(&existing.Expr, expr)
	fill(&existing.Column, column)
	return existing
}

func fill(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
