package steps

// InjectExpansion replaces the first subroutine step, depth first, whose
// routine is expansion.RoutineID with the expanded subtree. The input tree
// is left untouched; unchanged branches are shared with the result.
//
// Once replaced, the subroutine is no longer a bare leaf, so injecting the
// same expansion again only matches another stub of the same routine, if
// the tree holds one. Without a matching stub the tree is returned as is.
func InjectExpansion(tree, expansion *RoutineListStep) *RoutineListStep {
	if tree == nil || expansion == nil {
		return tree
	}
	loc := findSubroutine(tree, expansion.RoutineID, nil)
	if loc == nil {
		return tree
	}
	return ExpandAt(tree, loc, expansion)
}

// ExpandAt replaces the subroutine step at loc with the expanded subtree.
// Any other step at loc leaves the tree unchanged, so repeating the call
// is a no-op.
func ExpandAt(tree *RoutineListStep, loc Location, expansion *RoutineListStep) *RoutineListStep {
	stub, ok := StepAt(tree, loc).(*SubroutineStep)
	if !ok || len(loc) == 0 || expansion == nil {
		return tree
	}

	sub := expansion.clone()
	if sub.RoutineID == "" {
		sub.RoutineID = stub.Routine.ID
	}
	if sub.Title == "" {
		sub.Title = stub.Title
		sub.Description = stub.Description
	}
	sub.IsOptional = sub.IsOptional || stub.IsOptional
	return replaceAt(tree, loc, sub)
}

func replaceAt(list *RoutineListStep, loc Location, s Step) *RoutineListStep {
	out := list.clone()
	idx := loc[0] - 1
	if len(loc) == 1 {
		out.Steps[idx] = s
		return out
	}
	child := out.Steps[idx].(*RoutineListStep)
	out.Steps[idx] = replaceAt(child, loc[1:], s)
	return out
}

func findSubroutine(list *RoutineListStep, routineID string, prefix Location) Location {
	for i, child := range list.Steps {
		loc := append(prefix.Clone(), i+1)
		switch s := child.(type) {
		case *SubroutineStep:
			if s.Routine.ID == routineID {
				return loc
			}
		case *RoutineListStep:
			if len(loc) < MaxDepth {
				if found := findSubroutine(s, routineID, loc); found != nil {
					return found
				}
			}
		}
	}
	return nil
}
