package rules

import (
	"slices"
	"strconv"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celEvaluator struct {
	settings evaluatorSettings
}

// NewCELEvaluator returns an Evaluator backed by cel-go. Column variables are
// declared per row shape, so type checking is deferred to the first
// evaluation against each distinct set of columns.
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	return &celEvaluator{settings: newSettings(opts)}
}

// Compile only parses; see NewCELEvaluator.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, annotate(ErrEmptyExpression, EngineCEL, "", "")
	}
	env, err := e.env(nil)
	if err != nil {
		return nil, annotate(err, EngineCEL, expression, "")
	}
	if _, issues := env.Parse(expression); issues.Err() != nil {
		return nil, annotate(issues.Err(), EngineCEL, expression, "")
	}
	return celRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) program(expression string, columns []string) (celgo.Program, error) {
	key := cacheKey(EngineCEL, append(slices.Clone(columns), expression)...)
	return program(e.settings, key, func() (celgo.Program, error) {
		env, err := e.env(columns)
		if err != nil {
			return nil, err
		}
		ast, issues := env.Compile(expression)
		if issues.Err() != nil {
			return nil, issues.Err()
		}
		return env.Program(ast)
	})
}

func (e *celEvaluator) env(columns []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("value", celgo.StringType),
		celgo.Variable("column", celgo.StringType),
		celgo.Variable("row", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
	}
	for _, name := range columns {
		opts = append(opts, celgo.Variable(name, celgo.StringType))
	}
	registry := e.settings.functions
	if registry == nil {
		return celgo.NewEnv(opts...)
	}

	dispatch := func(values ...ref.Val) ref.Val {
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("rules: call name must be a string")
		}
		return celCall(registry, name, values[1:])
	}
	var overloads []celgo.FunctionOpt
	for arity := 0; arity <= 2; arity++ {
		params := []*celgo.Type{celgo.StringType}
		for range arity {
			params = append(params, celgo.DynType)
		}
		overloads = append(overloads, celgo.Overload(overloadID("call", arity+1), params, celgo.DynType,
			celgo.FunctionBinding(dispatch)))
	}
	opts = append(opts, celgo.Function("call", overloads...))

	for name := range registry.All() {
		bound := func(values ...ref.Val) ref.Val { return celCall(registry, name, values) }
		opts = append(opts, celgo.Function(name,
			celgo.Overload(overloadID(name, 1), []*celgo.Type{celgo.DynType}, celgo.DynType, celgo.FunctionBinding(bound)),
			celgo.Overload(overloadID(name, 2), []*celgo.Type{celgo.DynType, celgo.DynType}, celgo.DynType, celgo.FunctionBinding(bound)),
		))
	}
	return celgo.NewEnv(opts...)
}

func overloadID(name string, arity int) string {
	return name + "_arity_" + strconv.Itoa(arity)
}

func celCall(registry *FunctionRegistry, name string, values []ref.Val) ref.Val {
	args := make([]any, len(values))
	for i, val := range values {
		args[i] = val.Value()
	}
	result, err := registry.Call(name, args...)
	switch {
	case err != nil:
		return types.NewErr("%s", err.Error())
	case result == nil:
		return types.NullValue
	default:
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

type celRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r celRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vars := ctx.bindings()
	prog, err := r.evaluator.program(r.expression, celColumns(vars))
	if err != nil {
		return nil, annotate(err, EngineCEL, r.expression, ctx.label())
	}
	out, _, err := prog.Eval(vars)
	if err != nil {
		return nil, annotate(err, EngineCEL, r.expression, ctx.label())
	}
	return out.Value(), nil
}

// celColumns lists the column variables to declare, skipping names CEL
// reserves as keywords.
func celColumns(vars map[string]any) []string {
	var columns []string
	for key := range vars {
		if !reservedName(key) && !celKeywords[key] {
			columns = append(columns, key)
		}
	}
	slices.Sort(columns)
	return columns
}

var celKeywords = map[string]bool{
	"true": true, "false": true, "null": true, "in": true, "as": true,
	"break": true, "const": true, "continue": true, "else": true, "for": true,
	"function": true, "if": true, "import": true, "let": true, "loop": true,
	"package": true, "namespace": true, "return": true, "var": true, "void": true, "while": true,
}
