package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/routinegraph/internal/layout"
	"github.com/rendis/routinegraph/internal/steps"
	"github.com/rendis/routinegraph/pkg/schema"
)

var stepsCmd = &cobra.Command{
	Use:   "steps <file>",
	Short: "Print the step tree a runner walks",
	Long: `Builds the step tree of a routine and prints it with each step's
location and complexity. Subroutines with their own graph are marked as
stubs; decisions list the links they offer.`,
	Args: cobra.ExactArgs(1),
	RunE: runSteps,
}

func runSteps(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	_, g, err := s.load(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	tree := steps.BuildTree(layout.Recompute(g).Graph, s.cfg.Languages)
	if tree == nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "routine %q has no steps to run", g.RoutineID)
	}
	printTree(cmd.OutOrStdout(), tree)
	return nil
}

func printTree(w io.Writer, tree *steps.RoutineListStep) {
	title := tree.Title
	if title == "" {
		title = tree.RoutineID
	}
	fmt.Fprintf(w, "%s (complexity %d)\n", title, tree.Complexity())
	printChildren(w, tree, nil)
}

func printChildren(w io.Writer, list *steps.RoutineListStep, prefix steps.Location) {
	for i, child := range list.Steps {
		loc := append(prefix.Clone(), i+1)
		indent := strings.Repeat("  ", len(loc)-1)
		fmt.Fprintf(w, "%s%s %s\n", indent, loc, describeStep(child))
		if l, ok := child.(*steps.RoutineListStep); ok {
			printChildren(w, l, loc)
		}
	}
}

func describeStep(s steps.Step) string {
	switch st := s.(type) {
	case *steps.RoutineListStep:
		name := st.Title
		if name == "" {
			name = st.NodeID
		}
		if name == "" {
			name = st.RoutineID
		}
		var tags []string
		if st.IsOrdered {
			tags = append(tags, "ordered")
		}
		if st.IsOptional {
			tags = append(tags, "optional")
		}
		return fmt.Sprintf("%s%s (%d)", name, bracket(tags), st.Complexity())
	case *steps.SubroutineStep:
		name := st.Title
		if name == "" {
			name = st.Routine.ID
		}
		var tags []string
		if st.IsOptional {
			tags = append(tags, "optional")
		}
		if steps.NeedsExpansion(st) {
			tags = append(tags, "stub")
		}
		return fmt.Sprintf("%s%s (%d)", name, bracket(tags), st.Complexity())
	case *steps.DecisionStep:
		links := make([]string, 0, len(st.Links))
		for _, l := range st.Links {
			links = append(links, l.ID+"->"+l.ToID)
		}
		return fmt.Sprintf("decision at %s: %s", st.NodeID, strings.Join(links, ", "))
	default:
		return fmt.Sprintf("%T", s)
	}
}

func bracket(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " [" + strings.Join(tags, ", ") + "]"
}
