package steps

import (
	"sort"

	"github.com/rendis/routinegraph/pkg/schema"
)

// BuildTree converts a routine graph into the step tree used to run it.
// The root is a synthetic routine list holding, in order: a decision for
// the Start node when it branches, then one routine list per on-graph
// RoutineList node by column and row. Each of those lists its subroutines
// by item index, followed by a decision when the node branches.
//
// A graph without nodes or links yields nil.
func BuildTree(g schema.Graph, languages []string) *RoutineListStep {
	if len(g.Nodes) == 0 || len(g.Links) == 0 {
		return nil
	}

	text := schema.PickTranslation(g.Translations, languages)
	root := &RoutineListStep{
		RoutineID:   g.RoutineID,
		IsOrdered:   true,
		Title:       text.Title,
		Description: text.Description,
	}

	if start, ok := g.StartNode(); ok {
		if out := g.Outgoing(start.ID); len(out) > 1 {
			root.Steps = append(root.Steps, &DecisionStep{NodeID: start.ID, Links: out})
		}
	}

	var lists []schema.Node
	for _, n := range g.Nodes {
		if _, ok := n.Data.(schema.RoutineListData); ok && n.OnGraph() {
			lists = append(lists, n)
		}
	}
	sort.SliceStable(lists, func(i, j int) bool {
		ci, ri, _ := lists[i].Position()
		cj, rj, _ := lists[j].Position()
		if ci != cj {
			return ci < cj
		}
		return ri < rj
	})

	for _, n := range lists {
		root.Steps = append(root.Steps, listStep(g, n, languages))
	}
	return root
}

func listStep(g schema.Graph, n schema.Node, languages []string) *RoutineListStep {
	data := n.Data.(schema.RoutineListData)
	text := schema.PickTranslation(n.Translations, languages)
	step := &RoutineListStep{
		NodeID:      n.ID,
		IsOrdered:   data.IsOrdered,
		IsOptional:  data.IsOptional,
		Title:       text.Title,
		Description: text.Description,
	}

	items := append([]schema.RoutineListItem(nil), data.Items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Index < items[j].Index })
	for _, item := range items {
		step.Steps = append(step.Steps, subroutineStep(item, languages))
	}

	if out := g.Outgoing(n.ID); len(out) > 1 {
		step.Steps = append(step.Steps, &DecisionStep{NodeID: n.ID, Links: out})
	}
	return step
}

// subroutineStep prefers the item's own text and falls back to the routine's.
func subroutineStep(item schema.RoutineListItem, languages []string) *SubroutineStep {
	text := schema.PickTranslation(item.Translations, languages)
	if text.Title == "" {
		text = schema.PickTranslation(item.Routine.Translations, languages)
	}
	return &SubroutineStep{
		Routine:     item.Routine,
		Index:       item.Index,
		IsOptional:  item.IsOptional,
		Title:       text.Title,
		Description: text.Description,
	}
}
