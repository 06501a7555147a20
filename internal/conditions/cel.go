package conditions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rendis/routinegraph/pkg/schema"
)

// scopes are the top-level variables a condition can read.
var scopes = []string{"vars", "routine", "run"}

// CELEngine evaluates link conditions written in Google's Common Expression
// Language. Compiled programs are cached and safe for concurrent use.
type CELEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELEngine creates a CEL engine exposing three map variables:
//   - vars:    answers collected during the run
//   - routine: routine metadata (id, languages)
//   - run:     run metadata (id, percent)
func NewCELEngine() (*CELEngine, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)

	opts := make([]cel.EnvOption, 0, len(scopes))
	for _, s := range scopes {
		opts = append(opts, cel.Variable(s, mapType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &CELEngine{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Evaluate compiles (or reuses) the expression and runs it against vars.
// A result that is not a boolean is a CONDITION_ERROR.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, vars map[string]any) (bool, error) {
	if expression == "" {
		return false, schema.NewError(schema.ErrCodeCondition, "empty CEL condition")
	}

	prg, err := e.getOrCompile(expression)
	if err != nil {
		return false, err
	}

	out, _, err := prg.ContextEval(ctx, activation(vars))
	if err != nil {
		return false, schema.NewErrorf(schema.ErrCodeCondition,
			"CEL evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, notBoolean(e.Name(), expression, out.Value())
	}
	return b, nil
}

func (e *CELEngine) getOrCompile(expression string) (cel.Program, error) {
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

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCondition,
			"CEL compile error in %q: %s", expression, issues.Err().Error()).
			WithCause(issues.Err()).
			WithDetails(map[string]any{"expression": expression})
	}

	prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCondition,
			"CEL program error for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	e.cache[expression] = prg
	return prg, nil
}

// activation fills missing scopes with empty maps so lookups fail with a
// "no such key" error instead of an unknown variable.
func activation(vars map[string]any) map[string]any {
	act := make(map[string]any, len(scopes))
	for _, key := range scopes {
		if v, ok := vars[key]; ok && v != nil {
			act[key] = v
		} else {
			act[key] = map[string]any{}
		}
	}
	return act
}

func notBoolean(engine, expression string, got any) error {
	return schema.NewErrorf(schema.ErrCodeCondition,
		"%s condition %q returned %T, want bool", engine, expression, got).
		WithDetails(map[string]any{"expression": expression})
}

var _ Engine = (*CELEngine)(nil)
