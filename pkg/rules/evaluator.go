package rules

import (
	"fmt"
	"strings"
)

// Evaluator compiles rule expressions for one engine.
type Evaluator interface {
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable program bound to one expression.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// ProgramCache stores compiled programs keyed by engine and expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Engine names accepted by NewEvaluator and Rule.Engine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// EvaluatorOption configures any of the engines.
type EvaluatorOption func(*evaluatorSettings)

type evaluatorSettings struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// UseCache shares a program cache with the evaluator.
func UseCache(cache ProgramCache) EvaluatorOption {
	return func(s *evaluatorSettings) { s.cache = cache }
}

// UseFunctions exposes a copy of registry to expressions.
func UseFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(s *evaluatorSettings) {
		if registry != nil {
			s.functions = registry.Clone()
		}
	}
}

func newSettings(opts []EvaluatorOption) evaluatorSettings {
	var s evaluatorSettings
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// program returns the cached program for key, building and storing it on a
// miss. A cached value of the wrong type is rebuilt.
func program[P any](s evaluatorSettings, key string, build func() (P, error)) (P, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if p, ok := cached.(P); ok {
				return p, nil
			}
		}
	}
	p, err := build()
	if err != nil {
		return p, err
	}
	if s.cache != nil {
		s.cache.Set(key, p)
	}
	return p, nil
}

func cacheKey(engine string, parts ...string) string {
	return engine + ":" + strings.Join(parts, "\x1f")
}

// NewEvaluator returns the evaluator for engine, or nil when the engine is
// unknown or not compiled in.
func NewEvaluator(engine string, opts ...EvaluatorOption) Evaluator {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...)
	case EngineCEL:
		return NewCELEvaluator(opts...)
	case EngineJS:
		return NewJSEvaluator(opts...)
	default:
		return nil
	}
}

// Eval compiles expression with ev and evaluates it once against ctx.
func Eval(ev Evaluator, ctx RuleContext, expression string) (any, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: evaluator not available", ErrUnknownEngine)
	}
	compiled, err := ev.Compile(expression)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(ctx)
}
