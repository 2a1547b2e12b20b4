package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Rule is a boolean check attached to a column. An empty Column makes the
// rule row-level. Engine defaults to expr.
type Rule struct {
	Name    string `json:"name,omitempty" yaml:"name"`
	Column  string `json:"column,omitempty" yaml:"column"`
	Expr    string `json:"expr" yaml:"expr"`
	Message string `json:"message,omitempty" yaml:"message"`
	Engine  string `json:"engine,omitempty" yaml:"engine"`
}

func (r Rule) label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Expr
}

// Violation reports a row that failed a rule.
type Violation struct {
	RowID   string `json:"row_id"`
	Column  string `json:"column,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Input is the row view a Checker evaluates.
type Input struct {
	ID     string
	Values map[string]string
}

// CheckerOption customises a Checker.
type CheckerOption func(*Checker)

// WithProgramCache overrides the compiled program cache.
func WithProgramCache(cache ProgramCache) CheckerOption {
	return func(c *Checker) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithFunctionRegistry exposes custom functions to every engine.
func WithFunctionRegistry(registry *FunctionRegistry) CheckerOption {
	return func(c *Checker) {
		if registry != nil {
			c.registry = registry.Clone()
		}
	}
}

// WithLogger attaches an evaluation logger.
func WithLogger(logger Logger) CheckerOption {
	return func(c *Checker) {
		if logger == nil {
			c.logger = noopLogger{}
			return
		}
		c.logger = logger
	}
}

// WithClock overrides the time bound to now.
func WithClock(clock func() time.Time) CheckerOption {
	return func(c *Checker) {
		if clock != nil {
			c.clock = clock
		}
	}
}

type compiledCheck struct {
	rule     Rule
	engine   string
	compiled CompiledRule
}

// Checker compiles a rule set once and evaluates it against rows.
type Checker struct {
	cache    ProgramCache
	registry *FunctionRegistry
	logger   Logger
	clock    func() time.Time
	checks   []compiledCheck
}

// NewChecker compiles every rule. Compilation errors for all rules are
// joined so a bad rule file reports every problem at once.
func NewChecker(ruleset []Rule, opts ...CheckerOption) (*Checker, error) {
	c := &Checker{
		cache:    NewMapCache(),
		registry: DefaultFunctions(),
		logger:   noopLogger{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	evaluators := map[string]Evaluator{}
	var errs []error
	for _, rule := range ruleset {
		engine := strings.ToLower(strings.TrimSpace(rule.Engine))
		if engine == "" {
			engine = EngineExpr
		}
		evaluator, ok := evaluators[engine]
		if !ok {
			evaluator = NewEvaluator(engine, UseCache(c.cache), UseFunctions(c.registry))
			if evaluator == nil {
				errs = append(errs, fmt.Errorf("%w: %q for rule %q", ErrUnknownEngine, engine, rule.label()))
				continue
			}
			evaluators[engine] = evaluator
		}
		compiled, err := evaluator.Compile(rule.Expr)
		if err != nil {
			errs = append(errs, annotate(err, engine, rule.Expr, rule.Column))
			continue
		}
		c.checks = append(c.checks, compiledCheck{rule: rule, engine: engine, compiled: compiled})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Len reports the number of compiled rules.
func (c *Checker) Len() int {
	if c == nil {
		return 0
	}
	return len(c.checks)
}

// CheckRow evaluates every rule against one row. Rules bound to a column the
// row does not carry are skipped.
func (c *Checker) CheckRow(row Input) []Violation {
	if c == nil || len(c.checks) == 0 {
		return nil
	}
	now := c.clock()
	var out []Violation
	for _, check := range c.checks {
		value := ""
		if check.rule.Column != "" {
			v, ok := row.Values[check.rule.Column]
			if !ok {
				continue
			}
			value = v
		}
		ctx := RuleContext{
			Row:    row.Values,
			Column: check.rule.Column,
			Value:  value,
			Now:    &now,
		}
		start := time.Now()
		result, err := check.compiled.Evaluate(ctx)
		if err == nil {
			err = asPass(result)
		}
		c.logger.LogEvaluation(LogEvent{
			Engine:   check.engine,
			Expr:     check.rule.Expr,
			Column:   check.rule.Column,
			RowID:    row.ID,
			Duration: time.Since(start),
			Err:      err,
		})
		if err == nil {
			continue
		}
		out = append(out, Violation{
			RowID:   row.ID,
			Column:  check.rule.Column,
			Rule:    check.rule.label(),
			Message: violationMessage(check.rule, err),
			Err:     err,
		})
	}
	return out
}

// Check evaluates every row, honoring ctx cancellation between rows.
func (c *Checker) Check(ctx context.Context, rows []Input) ([]Violation, error) {
	var out []Violation
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, c.CheckRow(row)...)
	}
	return out, nil
}

func asPass(result any) error {
	passed, ok := result.(bool)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrNotBoolean, result)
	}
	if !passed {
		return ErrRuleFailed
	}
	return nil
}

func violationMessage(rule Rule, err error) string {
	if errors.Is(err, ErrRuleFailed) {
		if rule.Message != "" {
			return rule.Message
		}
		return fmt.Sprintf("rule %q failed", rule.label())
	}
	return err.Error()
}
