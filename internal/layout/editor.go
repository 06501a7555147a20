package layout

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/rendis/routinegraph/internal/logging"
	"github.com/rendis/routinegraph/pkg/schema"
)

// Editor applies structural edits to routine graphs. Every edit returns a
// new graph and leaves its input untouched, so callers can keep previous
// graphs as undo history. Edits that reference unknown nodes or links
// return an unchanged copy.
//
// Callers must Recompute after every edit, in the order edits were applied.
type Editor struct {
	newID  func() string
	logger *slog.Logger
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithIDGenerator overrides how IDs for synthesized nodes and links are made.
func WithIDGenerator(fn func() string) EditorOption {
	return func(e *Editor) { e.newID = fn }
}

// WithLogger sets the logger used to report ignored edits.
func WithLogger(logger *slog.Logger) EditorOption {
	return func(e *Editor) { e.logger = logger }
}

// NewEditor creates an Editor that issues UUIDs for new nodes and links.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{
		newID:  uuid.NewString,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InsertNodeOnLink splits a link with a new node. The node takes the slot
// of the link's target, and every node from that column on shifts one
// column to the right.
func (e *Editor) InsertNodeOnLink(g schema.Graph, linkID string, node schema.Node) schema.Graph {
	out := g.Clone()
	link, ok := out.Link(linkID)
	if !ok {
		e.ignored("insert on link", "link_id", linkID)
		return out
	}
	to, ok := out.Node(link.ToID)
	col, row, placed := to.Position()
	if !ok || !placed {
		e.ignored("insert on link: target not on graph", "link_id", linkID)
		return out
	}

	node = e.prepare(node)
	out.Nodes = removeNode(out.Nodes, node.ID)
	shiftColumns(out.Nodes, col, 1)
	out.Nodes = append(out.Nodes, node.At(col, row))

	out.Links = removeLink(out.Links, linkID)
	out.Links = append(out.Links,
		schema.Link{ID: e.newID(), FromID: link.FromID, ToID: node.ID},
		schema.Link{ID: e.newID(), FromID: node.ID, ToID: link.ToID},
	)
	return out
}

// InsertBranch starts a parallel branch from a link's source. The new node
// goes below the last node of the target's column and is followed by a new
// End node one column to the right.
func (e *Editor) InsertBranch(g schema.Graph, linkID string, node schema.Node) schema.Graph {
	out := g.Clone()
	link, ok := out.Link(linkID)
	if !ok {
		e.ignored("insert branch", "link_id", linkID)
		return out
	}
	to, ok := out.Node(link.ToID)
	col, _, placed := to.Position()
	if !ok || !placed {
		e.ignored("insert branch: target not on graph", "link_id", linkID)
		return out
	}

	node = e.prepare(node)
	out.Nodes = removeNode(out.Nodes, node.ID)
	row := nextRow(out.Nodes, col)

	// Keep the End node's slot free.
	if occupied(out.Nodes, col+1, row) {
		shiftRows(out.Nodes, col+1, row, 1)
	}

	end := schema.Node{ID: e.newID(), Data: schema.EndData{}}.At(col+1, row)
	out.Nodes = append(out.Nodes, node.At(col, row), end)
	out.Links = append(out.Links,
		schema.Link{ID: e.newID(), FromID: link.FromID, ToID: node.ID},
		schema.Link{ID: e.newID(), FromID: node.ID, ToID: end.ID},
	)
	return out
}

// DeleteNode removes a node and its links. When the node had exactly one
// source, that source is linked to every target; when it had exactly one
// target, every source is linked to it. Any other shape is ambiguous and
// no replacement link is made; see RelinkCandidates.
func (e *Editor) DeleteNode(g schema.Graph, nodeID string) schema.Graph {
	out := g.Clone()
	if _, ok := out.Node(nodeID); !ok {
		e.ignoredNode("delete node", nodeID)
		return out
	}
	relinks := e.relink(out, nodeID)
	out.Nodes = removeNode(out.Nodes, nodeID)
	out.Links = append(removeLinksTouching(out.Links, nodeID), relinks...)
	return out
}

// UnlinkNode moves a node off-graph, repairing links the way DeleteNode does.
func (e *Editor) UnlinkNode(g schema.Graph, nodeID string) schema.Graph {
	out := g.Clone()
	idx := indexOfNode(out.Nodes, nodeID)
	if idx < 0 {
		e.ignoredNode("unlink node", nodeID)
		return out
	}
	relinks := e.relink(out, nodeID)
	out.Nodes[idx] = out.Nodes[idx].Unplaced()
	out.Links = append(removeLinksTouching(out.Links, nodeID), relinks...)
	return out
}

// MoveNode places a node at a new slot. Nodes at or below the target row
// in the target column shift down one row. When the move empties the
// node's original column and the target is another column, later columns
// shift left to close it.
func (e *Editor) MoveNode(g schema.Graph, nodeID string, column, row int) schema.Graph {
	out := g.Clone()
	idx := indexOfNode(out.Nodes, nodeID)
	if idx < 0 {
		e.ignoredNode("move node", nodeID)
		return out
	}
	column, row = max(column, 0), max(row, 0)

	if oldCol, oldRow, placed := out.Nodes[idx].Position(); placed {
		if oldCol == column && oldRow == row {
			return out
		}
		out.Nodes[idx] = out.Nodes[idx].Unplaced()
		if column != oldCol && columnSize(out.Nodes, oldCol) == 0 {
			shiftColumns(out.Nodes, oldCol+1, -1)
			if column > oldCol {
				column--
			}
		}
	}

	shiftRows(out.Nodes, column, row, 1)
	out.Nodes[idx] = out.Nodes[idx].At(column, row)
	return out
}

// CleanUp closes row gaps in every column, gives every on-graph node that
// has no way out a new unsuccessful End node, and drops links with a
// missing endpoint. Applying it twice changes nothing the second time.
func (e *Editor) CleanUp(g schema.Graph) schema.Graph {
	out := g.Clone()
	out.Links = pruneLinks(out.Nodes, out.Links)

	byColumn := make(map[int][]int)
	for i, n := range out.Nodes {
		if col, _, ok := n.Position(); ok {
			byColumn[col] = append(byColumn[col], i)
		}
	}
	for col, idxs := range byColumn {
		sort.Slice(idxs, func(a, b int) bool {
			return lessByPosition(out.Nodes[idxs[a]], out.Nodes[idxs[b]])
		})
		for row, i := range idxs {
			out.Nodes[i] = out.Nodes[i].At(col, row)
		}
	}

	hasOutgoing := make(map[string]bool, len(out.Links))
	for _, l := range out.Links {
		hasOutgoing[l.FromID] = true
	}

	var dangling []schema.Node
	for _, n := range out.Nodes {
		if n.OnGraph() && n.Kind() != schema.NodeKindEnd && !hasOutgoing[n.ID] {
			dangling = append(dangling, n)
		}
	}
	sort.Slice(dangling, func(a, b int) bool { return lessByPosition(dangling[a], dangling[b]) })

	for _, n := range dangling {
		col, _, _ := n.Position()
		end := schema.Node{ID: e.newID(), Data: schema.EndData{WasSuccessful: false}}.
			At(col+1, nextRow(out.Nodes, col+1))
		out.Nodes = append(out.Nodes, end)
		out.Links = append(out.Links, schema.Link{ID: e.newID(), FromID: n.ID, ToID: end.ID})
	}
	return out
}

// AddNode stages a node off-graph. Adding an existing ID is ignored.
func (e *Editor) AddNode(g schema.Graph, node schema.Node) schema.Graph {
	out := g.Clone()
	node = e.prepare(node)
	if _, exists := out.Node(node.ID); exists {
		e.ignoredNode("add node: duplicate id", node.ID)
		return out
	}
	out.Nodes = append(out.Nodes, node.Unplaced())
	return out
}

// AddLink connects two existing nodes. Self links and duplicates are ignored.
func (e *Editor) AddLink(g schema.Graph, fromID, toID string) schema.Graph {
	out := g.Clone()
	_, fromOK := out.Node(fromID)
	_, toOK := out.Node(toID)
	if !fromOK || !toOK || fromID == toID || hasLink(out.Links, fromID, toID) {
		e.ignored("add link", "from_id", fromID, "to_id", toID)
		return out
	}
	out.Links = append(out.Links, schema.Link{ID: e.newID(), FromID: fromID, ToID: toID})
	return out
}

// RemoveLink deletes a single link.
func (e *Editor) RemoveLink(g schema.Graph, linkID string) schema.Graph {
	out := g.Clone()
	out.Links = removeLink(out.Links, linkID)
	return out
}

// relink builds the replacement links for removing nodeID from the graph.
func (e *Editor) relink(g schema.Graph, nodeID string) []schema.Link {
	froms, tos := neighbours(g, nodeID)

	var pairs [][2]string
	switch {
	case len(froms) == 1 && len(tos) >= 1:
		for _, to := range tos {
			pairs = append(pairs, [2]string{froms[0], to})
		}
	case len(tos) == 1 && len(froms) >= 1:
		for _, from := range froms {
			pairs = append(pairs, [2]string{from, tos[0]})
		}
	}

	var links []schema.Link
	for _, p := range pairs {
		if p[0] == p[1] || hasLink(g.Links, p[0], p[1]) {
			continue
		}
		links = append(links, schema.Link{ID: e.newID(), FromID: p[0], ToID: p[1]})
	}
	return links
}

// prepare copies a caller-supplied node and assigns an ID when missing.
func (e *Editor) prepare(node schema.Node) schema.Node {
	node = node.Clone()
	if node.ID == "" {
		node.ID = e.newID()
	}
	return node
}

func (e *Editor) ignored(op string, args ...any) {
	e.logger.Debug("edit ignored: "+op, args...)
}

func (e *Editor) ignoredNode(op, nodeID string) {
	e.logger.DebugContext(logging.WithNodeID(context.Background(), nodeID), "edit ignored: "+op)
}

// neighbours returns the distinct sources and targets of a node, in link
// order, excluding the node itself.
func neighbours(g schema.Graph, nodeID string) (froms, tos []string) {
	seenFrom := map[string]bool{nodeID: true}
	seenTo := map[string]bool{nodeID: true}
	for _, l := range g.Links {
		if l.ToID == nodeID && !seenFrom[l.FromID] {
			seenFrom[l.FromID] = true
			froms = append(froms, l.FromID)
		}
		if l.FromID == nodeID && !seenTo[l.ToID] {
			seenTo[l.ToID] = true
			tos = append(tos, l.ToID)
		}
	}
	return froms, tos
}

func indexOfNode(nodes []schema.Node, id string) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func removeNode(nodes []schema.Node, id string) []schema.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

func removeLink(links []schema.Link, id string) []schema.Link {
	out := make([]schema.Link, 0, len(links))
	for _, l := range links {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}

func removeLinksTouching(links []schema.Link, nodeID string) []schema.Link {
	out := make([]schema.Link, 0, len(links))
	for _, l := range links {
		if l.FromID != nodeID && l.ToID != nodeID {
			out = append(out, l)
		}
	}
	return out
}

func hasLink(links []schema.Link, fromID, toID string) bool {
	for _, l := range links {
		if l.FromID == fromID && l.ToID == toID {
			return true
		}
	}
	return false
}

// shiftColumns moves every on-graph node at or after column by delta.
func shiftColumns(nodes []schema.Node, column, delta int) {
	for i, n := range nodes {
		if col, row, ok := n.Position(); ok && col >= column {
			nodes[i] = n.At(col+delta, row)
		}
	}
}

// shiftRows moves every node of column at or below row by delta.
func shiftRows(nodes []schema.Node, column, row, delta int) {
	for i, n := range nodes {
		if col, r, ok := n.Position(); ok && col == column && r >= row {
			nodes[i] = n.At(col, r+delta)
		}
	}
}

func occupied(nodes []schema.Node, column, row int) bool {
	for _, n := range nodes {
		if col, r, ok := n.Position(); ok && col == column && r == row {
			return true
		}
	}
	return false
}

func columnSize(nodes []schema.Node, column int) int {
	size := 0
	for _, n := range nodes {
		if col, _, ok := n.Position(); ok && col == column {
			size++
		}
	}
	return size
}

// nextRow returns the row after the last occupied row of a column.
func nextRow(nodes []schema.Node, column int) int {
	next := 0
	for _, n := range nodes {
		if col, r, ok := n.Position(); ok && col == column && r+1 > next {
			next = r + 1
		}
	}
	return next
}

// lessByPosition orders on-graph nodes by column, row, then ID.
func lessByPosition(a, b schema.Node) bool {
	ac, ar, _ := a.Position()
	bc, br, _ := b.Position()
	if ac != bc {
		return ac < bc
	}
	if ar != br {
		return ar < br
	}
	return a.ID < b.ID
}
