package diagram

import (
	"fmt"
	"sort"

	"github.com/rendis/routinegraph/internal/layout"
	"github.com/rendis/routinegraph/internal/run"
	"github.com/rendis/routinegraph/internal/steps"
	"github.com/rendis/routinegraph/pkg/schema"
)

// Build converts a layout view into a DiagramModel. Titles are picked with
// the preferred languages.
func Build(view *layout.View, languages []string) (*DiagramModel, error) {
	if view == nil {
		return nil, fmt.Errorf("diagram: view is nil")
	}

	g := view.Graph
	model := &DiagramModel{
		Title:  schema.PickTranslation(g.Translations, languages).Title,
		Status: view.Report.Status.String(),
		Issues: view.Report.Messages(),
	}
	if model.Title == "" {
		model.Title = g.RoutineID
	}

	for col, column := range view.Columns {
		if len(column) == 0 {
			continue
		}
		ids := make([]string, 0, len(column))
		for _, n := range column {
			dn := toNode(n, languages)
			dn.Column = col
			_, dn.Row, _ = n.Position()
			model.Nodes = append(model.Nodes, dn)
			ids = append(ids, n.ID)
		}
		model.Columns = append(model.Columns, ids)
	}
	for _, n := range view.OffGraph {
		dn := toNode(n, languages)
		dn.Staged = true
		model.Nodes = append(model.Nodes, dn)
		model.Staged = append(model.Staged, n.ID)
	}

	for _, l := range g.Links {
		model.Edges = append(model.Edges, Edge{From: l.FromID, To: l.ToID, Label: l.Condition})
	}
	return model, nil
}

func toNode(n schema.Node, languages []string) *Node {
	dn := &Node{ID: n.ID, Label: schema.PickTranslation(n.Translations, languages).Title}
	switch d := n.Data.(type) {
	case schema.StartData:
		dn.Kind = NodeKindStart
		if dn.Label == "" {
			dn.Label = "Start"
		}
	case schema.EndData:
		dn.Kind = NodeKindEnd
		if !d.WasSuccessful {
			dn.Kind = NodeKindFailed
		}
		if dn.Label == "" {
			dn.Label = "End"
		}
	case schema.RoutineListData:
		dn.Kind = NodeKindList
		items := append([]schema.RoutineListItem(nil), d.Items...)
		sort.SliceStable(items, func(i, j int) bool { return items[i].Index < items[j].Index })
		for _, it := range items {
			title := schema.PickTranslation(it.Translations, languages).Title
			if title == "" {
				title = schema.PickTranslation(it.Routine.Translations, languages).Title
			}
			if title == "" {
				title = it.Routine.ID
			}
			dn.Items = append(dn.Items, title)
		}
	}
	if dn.Label == "" {
		dn.Label = n.ID
	}
	return dn
}

// Overlay marks nodes with the progress of a run over tree. A node is
// running when the open step belongs to it, completed when every step
// under it was completed, pending otherwise.
func Overlay(model *DiagramModel, tree *steps.RoutineListStep, progress run.Progress) {
	if model == nil || tree == nil {
		return
	}
	visited := func(loc steps.Location) bool {
		for _, v := range progress.Visited {
			if v.Equal(loc) {
				return true
			}
		}
		return false
	}

	for i, child := range tree.Steps {
		loc := steps.Location{i + 1}
		var nodeID string
		switch s := child.(type) {
		case *steps.RoutineListStep:
			nodeID = s.NodeID
		case *steps.DecisionStep:
			nodeID = s.NodeID
		}
		n := model.node(nodeID)
		if n == nil {
			continue
		}

		leaves := leafLocations(child, loc)
		overlay := &StatusOverlay{Status: "pending", Total: len(leaves)}
		for _, leaf := range leaves {
			if visited(leaf) {
				overlay.Completed++
			}
		}
		switch {
		case !progress.Done && hasPrefix(progress.Current, loc):
			overlay.Status = "running"
		case overlay.Total > 0 && overlay.Completed == overlay.Total:
			overlay.Status = "completed"
		}
		n.Status = overlay
	}
}

func leafLocations(s steps.Step, loc steps.Location) []steps.Location {
	list, ok := s.(*steps.RoutineListStep)
	if !ok {
		return []steps.Location{loc}
	}
	var out []steps.Location
	for i, child := range list.Steps {
		out = append(out, leafLocations(child, append(loc.Clone(), i+1))...)
	}
	return out
}

func hasPrefix(loc, prefix steps.Location) bool {
	return len(loc) >= len(prefix) && loc[:len(prefix)].Equal(prefix)
}
