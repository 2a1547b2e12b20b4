package rules

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Function is a helper callable from rule expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry holds helpers by case-insensitive name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register adds fn under name. Names are folded to lower case and must be
// unique.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case key == "":
		return fmt.Errorf("rules: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("rules: function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, taken := r.functions[key]; taken {
		return fmt.Errorf("rules: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{functions: maps.Clone(r.functions)}
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn := r.lookup(name)
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return fn(args...)
}

func (r *FunctionRegistry) lookup(name string) Function {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.functions[strings.ToLower(name)]
}

// Names lists registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

// All yields every function in name order. A nil registry yields nothing.
func (r *FunctionRegistry) All() iter.Seq2[string, Function] {
	return func(yield func(string, Function) bool) {
		for _, name := range r.Names() {
			if fn := r.lookup(name); fn != nil && !yield(name, fn) {
				return
			}
		}
	}
}

// DefaultFunctions returns the helpers every Checker starts with:
// blank(x) and oneof(x, candidates...).
func DefaultFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("blank", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("blank expects 1 argument, got %d", len(args))
		}
		return strings.TrimSpace(fmt.Sprint(args[0])) == "", nil
	})
	_ = registry.Register("oneof", func(args ...any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("oneof expects at least 1 argument")
		}
		needle := fmt.Sprint(args[0])
		return slices.ContainsFunc(args[1:], func(candidate any) bool {
			return fmt.Sprint(candidate) == needle
		}), nil
	})
	return registry
}
