package steps

// StepAt resolves a location against the tree. It returns nil when an
// index is out of range, when a non-list step is indexed into, or when the
// location is deeper than MaxDepth.
func StepAt(tree *RoutineListStep, loc Location) Step {
	if tree == nil || len(loc) > MaxDepth {
		return nil
	}
	var cur Step = tree
	for _, idx := range loc {
		list, ok := cur.(*RoutineListStep)
		if !ok || idx < 1 || idx > len(list.Steps) {
			return nil
		}
		cur = list.Steps[idx-1]
	}
	return cur
}

// FirstLocation returns the location of the first runnable step, or nil
// when the tree holds none.
func FirstLocation(tree *RoutineListStep) Location {
	if tree == nil || len(tree.Steps) == 0 {
		return nil
	}
	loc, ok := DescendFirst(tree, Location{1})
	if ok {
		return loc
	}
	if loc == nil {
		return nil
	}
	return advance(tree, loc)
}

// NextLocation returns the step that follows cur in run order. A decision
// has no automatic successor: the runner picks a link instead, so the
// result is nil. Nil is also returned at the end of the tree.
//
// Empty routine lists met on the way are skipped. A subroutine stub is
// returned as is; callers check NeedsExpansion on the result and expand
// it before running it.
func NextLocation(tree *RoutineListStep, cur Location) Location {
	switch StepAt(tree, cur).(type) {
	case nil, *DecisionStep:
		return nil
	}
	return advance(tree, cur)
}

// PreviousLocation returns the step run before cur: the last position
// greater than 1 is decremented, the location truncated there, and the
// result descended to its last leaf. Nil is returned at the first step.
func PreviousLocation(tree *RoutineListStep, cur Location) Location {
	if StepAt(tree, cur) == nil {
		return nil
	}
	loc := cur.Clone()
	for {
		i := len(loc) - 1
		for i >= 0 && loc[i] <= 1 {
			i--
		}
		if i < 0 {
			return nil
		}
		loc = loc[:i+1]
		loc[i]--

		leaf, ok := descendLast(tree, loc)
		if ok {
			return leaf
		}
		if leaf == nil {
			return nil
		}
		loc = leaf
	}
}

// DescendFirst walks from loc through first children until it reaches a
// decision or a subroutine. It returns false with the location of the
// empty routine list that stopped it, or nil when loc is invalid.
func DescendFirst(tree *RoutineListStep, loc Location) (Location, bool) {
	return descend(tree, loc, func(list *RoutineListStep) int { return 1 })
}

func descendLast(tree *RoutineListStep, loc Location) (Location, bool) {
	return descend(tree, loc, func(list *RoutineListStep) int { return len(list.Steps) })
}

func descend(tree *RoutineListStep, loc Location, pick func(*RoutineListStep) int) (Location, bool) {
	loc = loc.Clone()
	for {
		switch s := StepAt(tree, loc).(type) {
		case nil:
			return nil, false
		case *RoutineListStep:
			if len(s.Steps) == 0 || len(loc) >= MaxDepth {
				return loc, false
			}
			loc = append(loc, pick(s))
		default:
			return loc, true
		}
	}
}

// advance moves to the next sibling of the deepest ancestor that has one
// and descends from there.
func advance(tree *RoutineListStep, loc Location) Location {
	loc = loc.Clone()
	for len(loc) > 0 {
		last := len(loc) - 1
		parent, _ := StepAt(tree, loc[:last]).(*RoutineListStep)
		if parent == nil || loc[last] >= len(parent.Steps) {
			loc = loc[:last]
			continue
		}
		loc[last]++
		leaf, ok := DescendFirst(tree, loc)
		if ok {
			return leaf
		}
		if leaf == nil {
			return nil
		}
		loc = leaf
	}
	return nil
}

// LocationOfNode finds the routine list built from nodeID nearest to the
// step at from: each ancestor's children are searched, innermost first.
// It is used to follow the link chosen at a decision.
func LocationOfNode(tree *RoutineListStep, from Location, nodeID string) Location {
	for depth := len(from) - 1; depth >= 0; depth-- {
		scope := from[:depth]
		list, ok := StepAt(tree, scope).(*RoutineListStep)
		if !ok {
			continue
		}
		for i, child := range list.Steps {
			if rl, ok := child.(*RoutineListStep); ok && rl.NodeID == nodeID {
				loc := append(scope.Clone(), i+1)
				return loc
			}
		}
	}
	return nil
}
