package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rendis/routinegraph/internal/conditions"
	"github.com/rendis/routinegraph/internal/document"
	"github.com/rendis/routinegraph/internal/layout"
	"github.com/rendis/routinegraph/internal/run"
	"github.com/rendis/routinegraph/internal/steps"
	"github.com/rendis/routinegraph/pkg/schema"
)

// maxMoves bounds a walk; every move completes a step, so a finite tree
// never gets close.
const maxMoves = 10000

var (
	walkVars   map[string]string
	walkChoose map[string]string
	walkExpand map[string]string
	walkJSON   bool
	walkRunID  string
)

var walkCmd = &cobra.Command{
	Use:   "walk <file>",
	Short: "Run a routine step by step without a user",
	Long: `Walks the step tree of a routine from its first step to the end. At a
decision the link given with --choose for that node is taken if its
condition holds, otherwise the first available link. Subroutine stubs are
expanded from the documents given with --expand, or completed as a single
step.

Examples:
  routinegraph walk routine.yaml --var plan=paid
  routinegraph walk routine.yaml --choose L1=to-review --expand pick-plan=plan.yaml --json`,
	Args: cobra.ExactArgs(1),
	RunE: runWalk,
}

func init() {
	walkCmd.Flags().StringToStringVar(&walkVars, "var", nil, "condition variable, as name=value (value parsed as YAML)")
	walkCmd.Flags().StringToStringVar(&walkChoose, "choose", nil, "link to take at a decision, as node=link")
	walkCmd.Flags().StringToStringVar(&walkExpand, "expand", nil, "document expanding a subroutine, as routine=file")
	walkCmd.Flags().BoolVar(&walkJSON, "json", false, "print the run record as JSON")
	walkCmd.Flags().StringVar(&walkRunID, "run-id", "", "run ID (default: random)")
}

func runWalk(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx, g, err := s.load(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	vars, err := parseVars(walkVars)
	if err != nil {
		return err
	}

	ev, err := conditions.NewEvaluator(s.logger)
	if err != nil {
		return err
	}
	opts := []run.Option{
		run.WithLanguages(s.cfg.Languages...),
		run.WithConditions(ev),
		run.WithLogger(s.logger),
	}
	if walkRunID != "" {
		opts = append(opts, run.WithRunID(walkRunID))
	}
	tracker, err := run.New(layout.Recompute(g).Graph, opts...)
	if err != nil {
		return err
	}

	w := &walker{
		session: s,
		tracker: tracker,
		vars: map[string]any{
			"vars":    vars,
			"routine": map[string]any{"id": g.RoutineID},
			"run":     map[string]any{"id": tracker.RunID()},
		},
		out:   cmd.OutOrStdout(),
		trace: !walkJSON,
	}
	if err := w.walk(ctx); err != nil {
		return err
	}

	p := tracker.Snapshot()
	if walkJSON {
		return document.Encode(cmd.OutOrStdout(), p, document.FormatJSON)
	}
	fmt.Fprintf(w.out, "done: %d/%d (%.0f%%)\n", p.CompletedComplexity, p.TotalComplexity, p.PercentComplete)
	return nil
}

// walker drives a Tracker to the end of the run. vars is the condition
// activation: the vars, routine and run scopes.
type walker struct {
	*session
	tracker *run.Tracker
	vars    map[string]any
	out     io.Writer
	trace   bool
}

func (w *walker) walk(ctx context.Context) error {
	m := w.tracker.Current()
	for i := 0; !m.Done; i++ {
		if i == maxMoves {
			return fmt.Errorf("run did not finish after %d moves", maxMoves)
		}
		step := steps.StepAt(w.tracker.Tree(), m.Location)
		w.printf("%s %s\n", m.Location, describeStep(step))

		switch {
		case m.NeedsExpansion:
			sub := step.(*steps.SubroutineStep)
			path, ok := walkExpand[sub.Routine.ID]
			if !ok {
				m = w.tracker.ToNext(ctx)
				continue
			}
			expansion, err := w.expansion(ctx, path)
			if err != nil {
				return err
			}
			expansion.RoutineID = sub.Routine.ID
			m = w.tracker.Expand(ctx, expansion)
		case m.AwaitingChoice:
			next, err := w.choose(ctx, step.(*steps.DecisionStep))
			if err != nil {
				return err
			}
			m = next
		default:
			m = w.tracker.ToNext(ctx)
		}
	}
	return nil
}

func (w *walker) choose(ctx context.Context, decision *steps.DecisionStep) (run.Move, error) {
	links, err := w.tracker.AvailableLinks(ctx, w.vars)
	if err != nil {
		return run.Move{}, err
	}
	if len(links) == 0 {
		return run.Move{}, schema.NewError(schema.ErrCodeValidation, "no link is available at this decision").
			WithNode(decision.NodeID)
	}

	pick := links[0]
	if want, ok := walkChoose[decision.NodeID]; ok {
		found := false
		for _, l := range links {
			if l.ID == want {
				pick, found = l, true
				break
			}
		}
		if !found {
			return run.Move{}, schema.NewErrorf(schema.ErrCodeNotFound, "link %q is not available", want).
				WithNode(decision.NodeID)
		}
	}
	w.printf("  -> %s (%s)\n", pick.ID, pick.ToID)
	return w.tracker.Choose(ctx, pick.ID)
}

func (w *walker) expansion(ctx context.Context, path string) (*steps.RoutineListStep, error) {
	_, g, err := w.load(ctx, path)
	if err != nil {
		return nil, err
	}
	tree := steps.BuildTree(layout.Recompute(g).Graph, w.cfg.Languages)
	if tree == nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "subroutine %q has no steps to run", g.RoutineID)
	}
	return tree, nil
}

func (w *walker) printf(format string, args ...any) {
	if w.trace {
		fmt.Fprintf(w.out, format, args...)
	}
}

// parseVars decodes each value as a YAML scalar so "true" and "3" reach
// the condition engines as a bool and an int.
func parseVars(raw map[string]string) (map[string]any, error) {
	vars := make(map[string]any, len(raw))
	for k, v := range raw {
		var val any
		if err := yaml.Unmarshal([]byte(v), &val); err != nil {
			return nil, fmt.Errorf("parse --var %s: %w", k, err)
		}
		vars[k] = val
	}
	return vars, nil
}
