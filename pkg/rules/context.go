package rules

import (
	"regexp"
	"time"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Row    map[string]string
	Column string
	Value  string
	Now    *time.Time
	Args   map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

func (ctx RuleContext) label() string {
	if ctx.Column != "" {
		return ctx.Column
	}
	return "row"
}

// bindings returns the variables shared by every engine. Column names that
// are not valid identifiers are only reachable through row.
func (ctx RuleContext) bindings() map[string]any {
	row := make(map[string]any, len(ctx.Row))
	out := make(map[string]any, len(ctx.Row)+5)
	for key, value := range ctx.Row {
		row[key] = value
		if identifierPattern.MatchString(key) && !reservedName(key) {
			out[key] = value
		}
	}
	out["row"] = row
	out["value"] = ctx.Value
	out["column"] = ctx.Column
	out["now"] = ctx.timestamp()
	out["args"] = ctx.Args
	return out
}

func reservedName(name string) bool {
	switch name {
	case "row", "value", "column", "now", "args", "call":
		return true
	default:
		return false
	}
}
