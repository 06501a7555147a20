package layout

import "github.com/rendis/routinegraph/pkg/schema"

// AutoPosition assigns grid slots to a graph imported without positions.
// Columns are the longest-path depth from the Start node; rows follow
// discovery order within a column. Nodes that cannot be ordered from the
// Start node (unreachable or on a cycle) end up off-graph.
func AutoPosition(g schema.Graph) schema.Graph {
	out := g.Clone()
	start, ok := out.StartNode()
	if !ok {
		for i := range out.Nodes {
			out.Nodes[i] = out.Nodes[i].Unplaced()
		}
		return out
	}

	outgoing := make(map[string][]string, len(out.Nodes))
	for _, l := range out.Links {
		outgoing[l.FromID] = append(outgoing[l.FromID], l.ToID)
	}

	// Restrict to the part of the graph reachable from start.
	reachable := map[string]bool{start.ID: true}
	order := []string{start.ID}
	for i := 0; i < len(order); i++ {
		for _, next := range outgoing[order[i]] {
			if !reachable[next] {
				reachable[next] = true
				order = append(order, next)
			}
		}
	}

	inDegree := make(map[string]int, len(reachable))
	for id := range reachable {
		for _, next := range outgoing[id] {
			if reachable[next] {
				inDegree[next]++
			}
		}
	}

	depth := map[string]int{start.ID: 0}
	queue := []string{start.ID}
	var sorted []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		for _, next := range outgoing[id] {
			if !reachable[next] {
				continue
			}
			if d := depth[id] + 1; d > depth[next] {
				depth[next] = d
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	placed := make(map[string]bool, len(sorted))
	for _, id := range sorted {
		placed[id] = true
	}

	rows := make(map[int]int)
	for _, id := range order {
		if !placed[id] {
			continue
		}
		col := depth[id]
		idx := indexOfNode(out.Nodes, id)
		out.Nodes[idx] = out.Nodes[idx].At(col, rows[col])
		rows[col]++
	}
	for i, n := range out.Nodes {
		if !placed[n.ID] {
			out.Nodes[i] = n.Unplaced()
		}
	}
	return out
}
