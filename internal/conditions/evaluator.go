package conditions

import (
	"context"
	"log/slog"

	"github.com/rendis/routinegraph/pkg/schema"
)

// DefaultEngine is used for links that do not name an engine.
const DefaultEngine = "cel"

// Evaluator routes link conditions to the engine each link names.
type Evaluator struct {
	engines map[string]Engine
	logger  *slog.Logger
}

// NewEvaluator creates an evaluator with the CEL and Expr engines
// registered. A nil logger discards output.
func NewEvaluator(logger *slog.Logger) (*Evaluator, error) {
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{
		engines: map[string]Engine{
			celEngine.Name(): celEngine,
			"expr":           NewExprEngine(),
		},
		logger: logger,
	}, nil
}

// Register adds or replaces an engine under its name.
func (ev *Evaluator) Register(e Engine) {
	ev.engines[e.Name()] = e
}

// Allows reports whether a link may be followed. Links without a condition
// are always allowed.
func (ev *Evaluator) Allows(ctx context.Context, link schema.Link, vars map[string]any) (bool, error) {
	if link.Condition == "" {
		return true, nil
	}
	name := link.ConditionEngine
	if name == "" {
		name = DefaultEngine
	}
	engine, ok := ev.engines[name]
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeCondition, "unknown condition engine %q", name).
			WithDetails(map[string]any{"link_id": link.ID})
	}
	ok, err := engine.Evaluate(ctx, link.Condition, vars)
	if err != nil {
		return false, err
	}
	ev.logger.DebugContext(ctx, "link condition evaluated",
		slog.String("link_id", link.ID),
		slog.String("engine", name),
		slog.Bool("allowed", ok),
	)
	return ok, nil
}

// Filter returns the links whose conditions hold, in their original order.
// The first evaluation error aborts the filter.
func (ev *Evaluator) Filter(ctx context.Context, links []schema.Link, vars map[string]any) ([]schema.Link, error) {
	out := make([]schema.Link, 0, len(links))
	for _, l := range links {
		ok, err := ev.Allows(ctx, l, vars)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// Check compiles every condition in the graph without evaluating it, so
// syntax errors surface when a routine is loaded rather than mid-run.
func (ev *Evaluator) Check(g schema.Graph) error {
	for _, l := range g.Links {
		if l.Condition == "" {
			continue
		}
		if err := ev.compile(l); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) compile(l schema.Link) error {
	name := l.ConditionEngine
	if name == "" {
		name = DefaultEngine
	}
	switch e := ev.engines[name].(type) {
	case *CELEngine:
		_, err := e.getOrCompile(l.Condition)
		return tagLink(err, l)
	case *ExprEngine:
		_, err := e.getOrCompile(l.Condition)
		return tagLink(err, l)
	case nil:
		return schema.NewErrorf(schema.ErrCodeCondition, "unknown condition engine %q", name).
			WithDetails(map[string]any{"link_id": l.ID})
	default:
		return nil
	}
}

func tagLink(err error, l schema.Link) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*schema.RoutineError); ok {
		return re.WithNode(l.FromID)
	}
	return err
}
