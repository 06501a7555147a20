package steps

import "github.com/rendis/routinegraph/pkg/schema"

// Step is a node of the step tree driving a routine run. The set of
// implementations is closed: *DecisionStep, *SubroutineStep and
// *RoutineListStep.
type Step interface {
	// Complexity is the weight of the step in run progress.
	Complexity() int
	step()
}

// DecisionStep is a branch point: the runner chooses one of Links.
type DecisionStep struct {
	NodeID string
	Links  []schema.Link
}

// SubroutineStep is a leaf referencing a routine. When the routine has its
// own graph the step is a stub that must be expanded before it can run.
type SubroutineStep struct {
	Routine     schema.RoutineRef
	Index       int
	IsOptional  bool
	Title       string
	Description string
}

// RoutineListStep groups steps run in order. NodeID is empty for the tree
// root and for expanded subroutines, which carry RoutineID instead.
type RoutineListStep struct {
	NodeID      string
	RoutineID   string
	IsOrdered   bool
	IsOptional  bool
	Title       string
	Description string
	Steps       []Step
}

func (*DecisionStep) step()    {}
func (*SubroutineStep) step()  {}
func (*RoutineListStep) step() {}

// Complexity of a decision is always 1.
func (s *DecisionStep) Complexity() int { return 1 }

// Complexity of a subroutine is the referenced routine's complexity.
func (s *SubroutineStep) Complexity() int { return s.Routine.Complexity }

// Complexity of a routine list is the sum of its children; an empty list
// weighs nothing.
func (s *RoutineListStep) Complexity() int {
	total := 0
	for _, child := range s.Steps {
		total += child.Complexity()
	}
	return total
}

// NeedsExpansion reports whether a step is a subroutine stub whose routine
// has its own graph that has not been loaded into the tree yet.
func NeedsExpansion(s Step) bool {
	sub, ok := s.(*SubroutineStep)
	return ok && sub.Routine.NodesCount > 0
}

// clone returns a shallow copy of a routine list with its own Steps slice.
func (s *RoutineListStep) clone() *RoutineListStep {
	out := *s
	out.Steps = append([]Step(nil), s.Steps...)
	return &out
}
