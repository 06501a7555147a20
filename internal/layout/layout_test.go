package layout

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/routinegraph/pkg/schema"
)

// --- helpers ---

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func testEditor() *Editor {
	return NewEditor(WithIDGenerator(seqIDs()))
}

func startNode(id string, col, row int) schema.Node {
	return schema.Node{ID: id, Data: schema.StartData{}}.At(col, row)
}

func endNode(id string, col, row int) schema.Node {
	return schema.Node{ID: id, Data: schema.EndData{WasSuccessful: true}}.At(col, row)
}

func listNode(id string, col, row int) schema.Node {
	return schema.Node{ID: id, Data: schema.RoutineListData{
		Items: []schema.RoutineListItem{{ID: id + "-item", Routine: schema.RoutineRef{ID: id + "-routine", Complexity: 1}}},
	}}.At(col, row)
}

func link(id, from, to string) schema.Link {
	return schema.Link{ID: id, FromID: from, ToID: to}
}

// linear is S(0,0) -> L(1,0) -> E(2,0).
func linear() schema.Graph {
	return schema.Graph{
		RoutineID: "r1",
		Nodes:     []schema.Node{startNode("S", 0, 0), listNode("L", 1, 0), endNode("E", 2, 0)},
		Links:     []schema.Link{link("l1", "S", "L"), link("l2", "L", "E")},
	}
}

func position(t *testing.T, g schema.Graph, id string) (int, int) {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %s missing", id)
	col, row, placed := n.Position()
	require.True(t, placed, "node %s is off-graph", id)
	return col, row
}

func linkPairs(g schema.Graph) [][2]string {
	pairs := make([][2]string, 0, len(g.Links))
	for _, l := range g.Links {
		pairs = append(pairs, [2]string{l.FromID, l.ToID})
	}
	return pairs
}

func issueCodes(r schema.StatusReport) []string {
	codes := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

// --- recompute ---

func TestRecompute_ValidLinear(t *testing.T) {
	v := Recompute(linear())

	assert.Equal(t, schema.StatusValid, v.Report.Status)
	assert.Empty(t, v.Report.Issues)
	require.Len(t, v.Columns, 4, "3 occupied columns plus a trailing empty one")
	assert.Equal(t, "S", v.Columns[0][0].ID)
	assert.Equal(t, "L", v.Columns[1][0].ID)
	assert.Equal(t, "E", v.Columns[2][0].ID)
	assert.Empty(t, v.Columns[3])
	assert.Empty(t, v.OffGraph)
	assert.Len(t, v.NodesByID, 3)
}

func TestRecompute_ColumnsSortedByRow(t *testing.T) {
	g := schema.Graph{
		Nodes: []schema.Node{
			startNode("S", 0, 0),
			listNode("B", 1, 4), listNode("A", 1, 1),
			endNode("E", 2, 0),
		},
		Links: []schema.Link{
			link("1", "S", "A"), link("2", "S", "B"),
			link("3", "A", "E"), link("4", "B", "E"),
		},
	}
	v := Recompute(g)
	assert.Equal(t, schema.StatusValid, v.Report.Status)
	require.Len(t, v.Columns[1], 2)
	assert.Equal(t, "A", v.Columns[1][0].ID)
	assert.Equal(t, "B", v.Columns[1][1].ID)
}

func TestRecompute_PositionCollisionResetsGraph(t *testing.T) {
	g := linear()
	g.Nodes[1] = g.Nodes[1].At(0, 0)

	v := Recompute(g)

	assert.Equal(t, schema.StatusInvalid, v.Report.Status)
	assert.Equal(t, []string{schema.IssuePositionCollision}, issueCodes(v.Report))
	assert.Empty(t, v.Columns)
	assert.Empty(t, v.Graph.Links)
	assert.Len(t, v.OffGraph, 3)
	for _, n := range v.Graph.Nodes {
		assert.False(t, n.OnGraph(), "node %s should be off-graph", n.ID)
		assert.False(t, v.NodesByID[n.ID].OnGraph())
	}

	// Input is not mutated.
	assert.True(t, g.Nodes[0].OnGraph())
	assert.Len(t, g.Links, 2)
}

func TestRecompute_StartNodeCount(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		g := schema.Graph{
			Nodes: []schema.Node{listNode("L", 0, 0), endNode("E", 1, 0)},
			Links: []schema.Link{link("1", "L", "E")},
		}
		v := Recompute(g)
		assert.Equal(t, schema.StatusInvalid, v.Report.Status)
		assert.Contains(t, v.Report.Messages(), "Routine must have exactly one start node (found 0)")
	})

	t.Run("two", func(t *testing.T) {
		g := schema.Graph{
			Nodes: []schema.Node{startNode("S1", 0, 0), startNode("S2", 0, 1), endNode("E", 1, 0)},
			Links: []schema.Link{link("1", "S1", "E"), link("2", "S2", "E")},
		}
		v := Recompute(g)
		assert.Equal(t, schema.StatusInvalid, v.Report.Status)
		assert.Contains(t, v.Report.Messages(), "Routine must have exactly one start node (found 2)")
	})

	t.Run("one", func(t *testing.T) {
		v := Recompute(linear())
		assert.Equal(t, schema.StatusValid, v.Report.Status)
	})
}

func TestRecompute_EntryNodeChecks(t *testing.T) {
	t.Run("two entries", func(t *testing.T) {
		g := linear()
		g.Nodes = append(g.Nodes, listNode("X", 1, 1))
		g.Links = append(g.Links, link("3", "X", "E"))

		v := Recompute(g)
		assert.Equal(t, schema.StatusInvalid, v.Report.Status)
		assert.Contains(t, issueCodes(v.Report), schema.IssueEntryCount)
	})

	t.Run("entry is not start", func(t *testing.T) {
		g := schema.Graph{
			Nodes: []schema.Node{listNode("L", 0, 0), startNode("S", 1, 0), endNode("E", 2, 0)},
			Links: []schema.Link{link("1", "L", "S"), link("2", "S", "E")},
		}
		v := Recompute(g)
		assert.Equal(t, schema.StatusInvalid, v.Report.Status)
		assert.Contains(t, issueCodes(v.Report), schema.IssueEntryNotStart)
	})
}

func TestRecompute_DanglingPath(t *testing.T) {
	g := linear()
	g.Links = g.Links[:1] // L no longer reaches E

	v := Recompute(g)
	assert.Equal(t, schema.StatusInvalid, v.Report.Status)
	assert.Contains(t, v.Report.Messages(), "Not all paths end with an end node")
}

func TestRecompute_UnreachableCycle(t *testing.T) {
	g := linear()
	g.Nodes = append(g.Nodes, listNode("A", 1, 1), listNode("B", 2, 1))
	g.Links = append(g.Links, link("3", "A", "B"), link("4", "B", "A"), link("5", "A", "E"))

	v := Recompute(g)
	assert.Equal(t, schema.StatusInvalid, v.Report.Status)
	assert.Equal(t, []string{schema.IssueUnreachable}, issueCodes(v.Report))
}

func TestRecompute_IncompleteChecks(t *testing.T) {
	g := linear()
	g.Nodes = append(g.Nodes, listNode("staged", 0, 0).Unplaced())
	g.Nodes[1].Data = schema.RoutineListData{}

	v := Recompute(g)
	assert.Equal(t, schema.StatusIncomplete, v.Report.Status)
	assert.Equal(t, []string{schema.IssueOffGraph, schema.IssueEmptyRoutineList}, issueCodes(v.Report))
	assert.Equal(t, "L", v.Report.Issues[1].NodeID)
	require.Len(t, v.OffGraph, 1)
	assert.Equal(t, "staged", v.OffGraph[0].ID)
}

func TestRecompute_InvalidOutranksIncomplete(t *testing.T) {
	g := linear()
	g.Nodes = append(g.Nodes, listNode("staged", 0, 0).Unplaced())
	g.Links = g.Links[:1]

	v := Recompute(g)
	assert.Equal(t, schema.StatusInvalid, v.Report.Status)
	assert.Contains(t, issueCodes(v.Report), schema.IssueOffGraph)
}

func TestRecompute_PrunesDanglingLinksIdempotently(t *testing.T) {
	g := linear()
	g.Nodes = append(g.Nodes, listNode("staged", 0, 0).Unplaced())
	g.Links = append(g.Links,
		link("ghost", "L", "missing"),
		link("staged-in", "S", "staged"),
		link("staged-out", "staged", "E"),
	)

	first := Recompute(g)
	assert.Equal(t, [][2]string{{"S", "L"}, {"L", "E"}}, linkPairs(first.Graph))

	second := Recompute(first.Graph)
	assert.Equal(t, first.Graph.Links, second.Graph.Links)
	assert.Equal(t, first.Report, second.Report)
	if diff := cmp.Diff(first.Columns, second.Columns); diff != "" {
		t.Errorf("columns changed on second pass (-first +second):\n%s", diff)
	}
}

func TestRecompute_EmptyGraph(t *testing.T) {
	v := Recompute(schema.Graph{})
	assert.Equal(t, schema.StatusInvalid, v.Report.Status)
	require.Len(t, v.Columns, 1)
	assert.Empty(t, v.Columns[0])
}
