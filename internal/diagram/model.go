package diagram

// NodeKind classifies a diagram node by its routine node kind.
type NodeKind string

const (
	NodeKindStart  NodeKind = "start"
	NodeKindEnd    NodeKind = "end"
	NodeKindFailed NodeKind = "failed" // End node with wasSuccessful=false
	NodeKindList   NodeKind = "list"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title   string
	Status  string
	Issues  []string
	Nodes   []*Node
	Edges   []Edge
	Columns [][]string // node IDs by grid column, rows ascending
	Staged  []string   // off-graph node IDs
}

// Node is a routine node placed on the diagram.
type Node struct {
	ID     string
	Label  string
	Kind   NodeKind
	Items  []string // subroutine titles of a RoutineList, by index
	Column int
	Row    int
	Staged bool
	Status *StatusOverlay
}

// StatusOverlay carries run progress for a node.
type StatusOverlay struct {
	Status    string // completed | running | pending
	Completed int    // steps done under the node
	Total     int
}

// Edge is a link between two nodes. Label carries the link condition.
type Edge struct {
	From  string
	To    string
	Label string
}

func (m *DiagramModel) node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
