package conditions

import "context"

// Engine evaluates the boolean condition attached to a link.
// Two implementations: CEL (default) and Expr.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, vars map[string]any) (bool, error)
}
