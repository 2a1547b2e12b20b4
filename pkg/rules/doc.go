// Package rules evaluates per-column data-quality checks against document
// rows. A rule is a boolean expression; rows for which it evaluates to false
// (or fails to evaluate) are reported as violations. Rules never compute or
// rewrite cell values.
//
// Three engines are available: expr (github.com/expr-lang/expr), CEL
// (github.com/google/cel-go) and JavaScript (github.com/dop251/goja, only
// with the js_eval build tag). Every engine sees the same bindings:
//
//	value    the checked cell, "" for row-level rules
//	column   the checked column name
//	row      map of every column to its value
//	<Name>   each column whose name is a valid identifier
//	now      evaluation time
//	args     RuleContext.Args, empty for checks
//
// Functions registered on a FunctionRegistry are callable by name and via
// call("name", ...).
package rules
