package layout

import (
	"fmt"
	"sort"

	"github.com/rendis/routinegraph/pkg/schema"
)

// View is the derived layout of a routine graph: the node grid, the staged
// nodes and the validity report. It is a pure function of the input graph.
type View struct {
	Graph     schema.Graph           // input graph after pruning (or reset)
	Columns   [][]schema.Node        // on-graph nodes by column, rows ascending, plus one empty column
	OffGraph  []schema.Node          // nodes without a grid slot
	NodesByID map[string]schema.Node // every node, on- or off-graph
	Report    schema.StatusReport
}

// Recompute analyzes a graph and returns its layout view. It never fails:
// a malformed graph surfaces only through Report.
//
// Dangling links are pruned before the structural checks run, so calling
// Recompute on View.Graph yields the same view again.
func Recompute(g schema.Graph) *View {
	g = g.Clone()
	v := &View{NodesByID: make(map[string]schema.Node, len(g.Nodes))}

	var onGraph []schema.Node
	for _, n := range g.Nodes {
		v.NodesByID[n.ID] = n
		if n.OnGraph() {
			onGraph = append(onGraph, n)
		} else {
			v.OffGraph = append(v.OffGraph, n)
		}
	}

	if a, b, collided := findCollision(onGraph); collided {
		col, row, _ := a.Position()
		for i := range g.Nodes {
			g.Nodes[i] = g.Nodes[i].Unplaced()
			v.NodesByID[g.Nodes[i].ID] = g.Nodes[i]
		}
		g.Links = []schema.Link{}
		v.Graph = g
		v.OffGraph = append([]schema.Node(nil), g.Nodes...)
		v.Report.AddInvalid(schema.IssuePositionCollision, fmt.Sprintf(
			"Nodes %s and %s share column %d, row %d; all positions and links were reset",
			label(a), label(b), col, row))
		return v
	}

	g.Links = pruneLinks(g.Nodes, g.Links)
	v.Graph = g

	checkStructure(&v.Report, onGraph, g.Links)
	checkCompleteness(&v.Report, g.Nodes)

	v.Columns = bucketColumns(onGraph)
	return v
}

// findCollision returns the first pair of on-graph nodes sharing a slot.
func findCollision(onGraph []schema.Node) (schema.Node, schema.Node, bool) {
	type slot struct{ col, row int }
	seen := make(map[slot]schema.Node, len(onGraph))
	for _, n := range onGraph {
		col, row, _ := n.Position()
		key := slot{col, row}
		if prev, ok := seen[key]; ok {
			return prev, n, true
		}
		seen[key] = n
	}
	return schema.Node{}, schema.Node{}, false
}

// checkStructure runs the checks whose failure makes a routine Invalid.
func checkStructure(r *schema.StatusReport, onGraph []schema.Node, links []schema.Link) {
	incoming := make(map[string]int, len(onGraph))
	outgoing := make(map[string][]string, len(onGraph))
	for _, l := range links {
		incoming[l.ToID]++
		outgoing[l.FromID] = append(outgoing[l.FromID], l.ToID)
	}

	var starts, entries []schema.Node
	dangling := false
	for _, n := range onGraph {
		if n.Kind() == schema.NodeKindStart {
			starts = append(starts, n)
		}
		if incoming[n.ID] == 0 {
			entries = append(entries, n)
		}
		if len(outgoing[n.ID]) == 0 && n.Kind() != schema.NodeKindEnd {
			dangling = true
		}
	}

	if len(starts) != 1 {
		r.AddInvalid(schema.IssueStartCount, fmt.Sprintf(
			"Routine must have exactly one start node (found %d)", len(starts)))
	}
	if len(entries) != 1 {
		r.AddInvalid(schema.IssueEntryCount, fmt.Sprintf(
			"Routine must have exactly one node without incoming links (found %d)", len(entries)))
	} else if len(starts) == 1 && entries[0].ID != starts[0].ID {
		r.AddInvalid(schema.IssueEntryNotStart, fmt.Sprintf(
			"The routine must begin at the start node, not at %s", label(entries[0])))
	}
	if dangling {
		r.AddInvalid(schema.IssueDanglingPath, "Not all paths end with an end node")
	}

	if len(starts) != 1 {
		return
	}
	reached := map[string]bool{starts[0].ID: true}
	queue := []string{starts[0].ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range outgoing[id] {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	if unreached := len(onGraph) - len(reached); unreached > 0 {
		r.AddInvalid(schema.IssueUnreachable, fmt.Sprintf(
			"%d node(s) cannot be reached from the start node", unreached))
	}
}

// checkCompleteness runs the checks whose failure only makes a routine Incomplete.
func checkCompleteness(r *schema.StatusReport, nodes []schema.Node) {
	for _, n := range nodes {
		if !n.OnGraph() {
			r.AddIncomplete(schema.IssueOffGraph, "Some nodes are not linked")
			break
		}
	}
	for _, n := range nodes {
		if rl, ok := n.Data.(schema.RoutineListData); ok && len(rl.Items) == 0 {
			r.Add(schema.Issue{
				Code:    schema.IssueEmptyRoutineList,
				Message: fmt.Sprintf("Node %s has no subroutines", label(n)),
				Status:  schema.StatusIncomplete,
				NodeID:  n.ID,
			})
		}
	}
}

// bucketColumns groups on-graph nodes by column, sorts each column by row
// and appends an empty trailing column.
func bucketColumns(onGraph []schema.Node) [][]schema.Node {
	maxCol := -1
	for _, n := range onGraph {
		if col, _, _ := n.Position(); col > maxCol {
			maxCol = col
		}
	}
	columns := make([][]schema.Node, maxCol+2)
	for _, n := range onGraph {
		col, _, _ := n.Position()
		columns[col] = append(columns[col], n)
	}
	for _, column := range columns {
		sort.SliceStable(column, func(i, j int) bool {
			_, ri, _ := column[i].Position()
			_, rj, _ := column[j].Position()
			return ri < rj
		})
	}
	return columns
}

// pruneLinks keeps only links whose endpoints are both on-graph nodes.
func pruneLinks(nodes []schema.Node, links []schema.Link) []schema.Link {
	placed := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.OnGraph() {
			placed[n.ID] = true
		}
	}
	kept := make([]schema.Link, 0, len(links))
	for _, l := range links {
		if placed[l.FromID] && placed[l.ToID] {
			kept = append(kept, l)
		}
	}
	return kept
}

// label returns the node's first title, or its ID when untitled.
func label(n schema.Node) string {
	for _, t := range n.Translations {
		if t.Title != "" {
			return fmt.Sprintf("%q", t.Title)
		}
	}
	return n.ID
}
