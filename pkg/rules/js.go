//go:build js_eval

package rules

import (
	"github.com/dop251/goja"
)

type jsEvaluator struct {
	settings evaluatorSettings
}

// NewJSEvaluator returns an Evaluator backed by goja. The expression is
// wrapped in an immediately invoked function so statements are not allowed.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	return &jsEvaluator{settings: newSettings(opts)}
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, annotate(ErrEmptyExpression, EngineJS, "", "")
	}
	prog, err := program(e.settings, cacheKey(EngineJS, expression), func() (*goja.Program, error) {
		return goja.Compile("rule", "(function(){ return ("+expression+"); })()", false)
	})
	if err != nil {
		return nil, annotate(err, EngineJS, expression, "")
	}
	return jsRule{evaluator: e, program: prog, expression: expression}, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (r jsRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	result, err := r.run(ctx)
	if err != nil {
		return nil, annotate(err, EngineJS, r.expression, ctx.label())
	}
	return result, nil
}

// run builds a fresh runtime per evaluation; goja runtimes are not safe for
// concurrent use.
func (r jsRule) run(ctx RuleContext) (any, error) {
	vm := goja.New()
	globals := ctx.bindings()
	if registry := r.evaluator.settings.functions; registry != nil {
		globals["call"] = registry.Call
		for name, fn := range registry.All() {
			globals[name] = fn
		}
	}
	for key, value := range globals {
		if err := vm.Set(key, value); err != nil {
			return nil, err
		}
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool { return true }
