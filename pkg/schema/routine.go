package schema

import (
	"encoding/json"
	"fmt"
)

// NodeKind enumerates the kinds of nodes in a routine graph.
type NodeKind string

const (
	NodeKindStart       NodeKind = "Start"
	NodeKindEnd         NodeKind = "End"
	NodeKindRoutineList NodeKind = "RoutineList"
)

// NodeData is the kind-specific payload of a Node. The set of
// implementations is closed: StartData, EndData and RoutineListData.
type NodeData interface {
	Kind() NodeKind
	nodeData()
}

// StartData is the (empty) payload of a Start node.
type StartData struct{}

// EndData is the payload of an End node.
type EndData struct {
	WasSuccessful bool `json:"wasSuccessful"`
}

// RoutineListData is the payload of a RoutineList node.
type RoutineListData struct {
	IsOrdered  bool              `json:"isOrdered"`
	IsOptional bool              `json:"isOptional"`
	Items      []RoutineListItem `json:"items"`
}

func (StartData) Kind() NodeKind       { return NodeKindStart }
func (EndData) Kind() NodeKind         { return NodeKindEnd }
func (RoutineListData) Kind() NodeKind { return NodeKindRoutineList }

func (StartData) nodeData()       {}
func (EndData) nodeData()         {}
func (RoutineListData) nodeData() {}

// RoutineListItem references a subroutine taking part in a RoutineList node.
type RoutineListItem struct {
	ID           string        `json:"id"`
	Index        int           `json:"index"`
	IsOptional   bool          `json:"isOptional"`
	Routine      RoutineRef    `json:"routine"`
	Translations []Translation `json:"translations,omitempty"`
}

// RoutineRef is a handle to another routine definition.
type RoutineRef struct {
	ID           string        `json:"id"`
	Complexity   int           `json:"complexity"`
	NodesCount   int           `json:"nodesCount,omitempty"` // > 0 when the routine has its own graph
	Translations []Translation `json:"translations,omitempty"`
}

// Node is a vertex of a routine graph. A node is on-graph when both
// ColumnIndex and RowIndex are set, off-graph (staged) otherwise.
type Node struct {
	ID           string
	ColumnIndex  *int
	RowIndex     *int
	Data         NodeData
	Translations []Translation
}

// Kind returns the node kind derived from its payload, "" when unset.
func (n Node) Kind() NodeKind {
	if n.Data == nil {
		return ""
	}
	return n.Data.Kind()
}

// Position returns the node's grid slot and whether it is on-graph.
// Negative indices are not a slot.
func (n Node) Position() (column, row int, ok bool) {
	if n.ColumnIndex == nil || n.RowIndex == nil || *n.ColumnIndex < 0 || *n.RowIndex < 0 {
		return 0, 0, false
	}
	return *n.ColumnIndex, *n.RowIndex, true
}

// OnGraph reports whether the node has been placed on the grid.
func (n Node) OnGraph() bool {
	_, _, ok := n.Position()
	return ok
}

// At returns a copy of the node placed at the given slot.
func (n Node) At(column, row int) Node {
	n.ColumnIndex = &column
	n.RowIndex = &row
	return n
}

// Unplaced returns a copy of the node moved off-graph.
func (n Node) Unplaced() Node {
	n.ColumnIndex = nil
	n.RowIndex = nil
	return n
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.ColumnIndex != nil {
		c := *n.ColumnIndex
		out.ColumnIndex = &c
	}
	if n.RowIndex != nil {
		r := *n.RowIndex
		out.RowIndex = &r
	}
	if rl, ok := n.Data.(RoutineListData); ok {
		items := make([]RoutineListItem, len(rl.Items))
		copy(items, rl.Items)
		rl.Items = items
		out.Data = rl
	}
	if n.Translations != nil {
		out.Translations = append([]Translation(nil), n.Translations...)
	}
	return out
}

type nodeJSON struct {
	ID           string          `json:"id"`
	Kind         NodeKind        `json:"kind"`
	ColumnIndex  *int            `json:"columnIndex,omitempty"`
	RowIndex     *int            `json:"rowIndex,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Translations []Translation   `json:"translations,omitempty"`
}

// MarshalJSON encodes the node with a kind discriminator and a data object.
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		ID:           n.ID,
		Kind:         n.Kind(),
		ColumnIndex:  n.ColumnIndex,
		RowIndex:     n.RowIndex,
		Translations: n.Translations,
	}
	switch d := n.Data.(type) {
	case EndData, RoutineListData:
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		out.Data = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a node, selecting the payload type by kind.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	n.ID = in.ID
	n.ColumnIndex = in.ColumnIndex
	n.RowIndex = in.RowIndex
	n.Translations = in.Translations

	switch in.Kind {
	case NodeKindStart, "":
		n.Data = StartData{}
	case NodeKindEnd:
		var d EndData
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &d); err != nil {
				return fmt.Errorf("node %s: end data: %w", in.ID, err)
			}
		}
		n.Data = d
	case NodeKindRoutineList:
		var d RoutineListData
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &d); err != nil {
				return fmt.Errorf("node %s: routine list data: %w", in.ID, err)
			}
		}
		n.Data = d
	default:
		return fmt.Errorf("node %s: unknown kind %q", in.ID, in.Kind)
	}
	return nil
}

// Link is a directed edge between two nodes. Condition is an optional
// boolean expression deciding whether the link can be taken at a decision.
type Link struct {
	ID              string `json:"id"`
	FromID          string `json:"fromId"`
	ToID            string `json:"toId"`
	Condition       string `json:"condition,omitempty"`
	ConditionEngine string `json:"conditionEngine,omitempty"` // cel | expr (default: cel)
}

// Graph is a routine definition: its nodes and the links between them.
type Graph struct {
	RoutineID    string        `json:"routineId,omitempty"`
	Translations []Translation `json:"translations,omitempty"`
	Nodes        []Node        `json:"nodes"`
	Links        []Link        `json:"links"`
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	out := Graph{RoutineID: g.RoutineID}
	if g.Translations != nil {
		out.Translations = append([]Translation(nil), g.Translations...)
	}
	if g.Nodes != nil {
		out.Nodes = make([]Node, len(g.Nodes))
		for i, n := range g.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if g.Links != nil {
		out.Links = append([]Link(nil), g.Links...)
	}
	return out
}

// Node returns the node with the given ID.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Outgoing returns the links leaving the given node, in graph order.
func (g Graph) Outgoing(nodeID string) []Link {
	var out []Link
	for _, l := range g.Links {
		if l.FromID == nodeID {
			out = append(out, l)
		}
	}
	return out
}

// Incoming returns the links entering the given node, in graph order.
func (g Graph) Incoming(nodeID string) []Link {
	var in []Link
	for _, l := range g.Links {
		if l.ToID == nodeID {
			in = append(in, l)
		}
	}
	return in
}

// Link returns the link with the given ID.
func (g Graph) Link(id string) (Link, bool) {
	for _, l := range g.Links {
		if l.ID == id {
			return l, true
		}
	}
	return Link{}, false
}

// StartNode returns the first Start node, if any.
func (g Graph) StartNode() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Kind() == NodeKindStart {
			return n, true
		}
	}
	return Node{}, false
}
