package rules

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprEvaluator struct {
	settings evaluatorSettings
}

// NewExprEvaluator returns an Evaluator backed by expr-lang/expr. Unknown
// identifiers evaluate to nil, so rules may reference columns a row lacks.
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	return &exprEvaluator{settings: newSettings(opts)}
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, annotate(ErrEmptyExpression, EngineExpr, "", "")
	}
	prog, err := program(e.settings, cacheKey(EngineExpr, expression), func() (*exprvm.Program, error) {
		return exprlang.Compile(expression, e.compileOptions()...)
	})
	if err != nil {
		return nil, annotate(err, EngineExpr, expression, "")
	}
	return exprRule{evaluator: e, program: prog, expression: expression}, nil
}

func (e *exprEvaluator) compileOptions() []exprlang.Option {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for name, fn := range e.settings.functions.All() {
		options = append(options, exprlang.Function(name, func(arguments ...any) (any, error) {
			return fn(arguments...)
		}))
	}
	return options
}

type exprRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r exprRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	env := ctx.bindings()
	if registry := r.evaluator.settings.functions; registry != nil {
		env["call"] = registry.Call
	}
	result, err := exprlang.Run(r.program, env)
	if err != nil {
		return nil, annotate(err, EngineExpr, r.expression, ctx.label())
	}
	return result, nil
}
