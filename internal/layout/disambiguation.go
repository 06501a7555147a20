package layout

import "github.com/rendis/routinegraph/pkg/schema"

// Disambiguation lists the links an edit could apply to when the editor
// cannot pick one on its own. The host presents them and calls the
// link-addressed edit with the chosen candidate.
type Disambiguation struct {
	NodeID     string
	Candidates []schema.Link
}

// EditResult is the outcome of an edit that may need a caller decision.
// When Disambiguation is set, Graph is an unchanged copy of the input.
type EditResult struct {
	Graph          schema.Graph
	Disambiguation *Disambiguation
}

// NeedsDisambiguation reports whether the edit is waiting for a choice.
func (r EditResult) NeedsDisambiguation() bool {
	return r.Disambiguation != nil
}

// InsertAfter inserts a node on the single outgoing link of nodeID. With
// several outgoing links the candidates are returned instead.
func (e *Editor) InsertAfter(g schema.Graph, nodeID string, node schema.Node) EditResult {
	return e.insertAround(g, nodeID, node, g.Outgoing(nodeID))
}

// InsertBefore inserts a node on the single incoming link of nodeID. With
// several incoming links the candidates are returned instead.
func (e *Editor) InsertBefore(g schema.Graph, nodeID string, node schema.Node) EditResult {
	return e.insertAround(g, nodeID, node, g.Incoming(nodeID))
}

func (e *Editor) insertAround(g schema.Graph, nodeID string, node schema.Node, candidates []schema.Link) EditResult {
	switch len(candidates) {
	case 0:
		e.ignoredNode("insert around node: no links", nodeID)
		return EditResult{Graph: g.Clone()}
	case 1:
		return EditResult{Graph: e.InsertNodeOnLink(g, candidates[0].ID, node)}
	default:
		return EditResult{
			Graph:          g.Clone(),
			Disambiguation: &Disambiguation{NodeID: nodeID, Candidates: candidates},
		}
	}
}

// RelinkCandidates returns the source-to-target links a host may offer
// before deleting or unlinking nodeID when DeleteNode would not repair the
// graph by itself (several sources and several targets). The returned
// links have no ID; pass the chosen ones to AddLink after the delete.
func RelinkCandidates(g schema.Graph, nodeID string) []schema.Link {
	froms, tos := neighbours(g, nodeID)
	if len(froms) <= 1 || len(tos) <= 1 {
		return nil
	}
	var out []schema.Link
	for _, from := range froms {
		for _, to := range tos {
			if from == to || hasLink(g.Links, from, to) {
				continue
			}
			out = append(out, schema.Link{FromID: from, ToID: to})
		}
	}
	return out
}
