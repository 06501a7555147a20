package conditions

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rendis/routinegraph/pkg/schema"
)

// ExprEngine evaluates link conditions with expr-lang/expr. Variables are
// exposed the same way as for CEL (vars, routine, run); undefined names
// evaluate to nil. Compiled programs are cached.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates a new Expr condition engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{
		cache: make(map[string]*vm.Program),
	}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Evaluate compiles (or reuses) the expression and runs it against vars.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, vars map[string]any) (bool, error) {
	if expression == "" {
		return false, schema.NewError(schema.ErrCodeCondition, "empty expr condition")
	}

	prg, err := e.getOrCompile(expression)
	if err != nil {
		return false, err
	}

	out, err := vm.Run(prg, activation(vars))
	if err != nil {
		return false, schema.NewErrorf(schema.ErrCodeCondition,
			"expr evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	b, ok := out.(bool)
	if !ok {
		return false, notBoolean(e.Name(), expression, out)
	}
	return b, nil
}

func (e *ExprEngine) getOrCompile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression,
		expr.Env(activation(nil)),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCondition,
			"expr compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	e.cache[expression] = prg
	return prg, nil
}

var _ Engine = (*ExprEngine)(nil)
