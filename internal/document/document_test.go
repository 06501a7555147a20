package document

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/routinegraph/pkg/schema"
)

const graphqlPayload = `{
  "data": {
    "routine": {
      "routineId": "r1",
      "nodes": [
        {"id": "S", "kind": "Start", "columnIndex": 0, "rowIndex": 0},
        {"id": "E", "kind": "End", "columnIndex": 1, "rowIndex": 0, "data": {"wasSuccessful": false}},
        {"id": "staged", "kind": "RoutineList", "data": {"items": []}}
      ],
      "links": [{"id": "l1", "fromId": "S", "toId": "E"}]
    }
  }
}`

func requireCode(t *testing.T, err error, code string) *schema.RoutineError {
	t.Helper()
	var re *schema.RoutineError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, code, re.Code)
	return re
}

func TestLoader_YAMLFile(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	g, err := l.LoadFile(context.Background(), "testdata/onboarding.yaml")
	require.NoError(t, err)

	assert.Equal(t, "onboarding", g.RoutineID)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, schema.NodeKindStart, g.Nodes[0].Kind())

	list, ok := g.Nodes[1].Data.(schema.RoutineListData)
	require.True(t, ok)
	assert.True(t, list.IsOrdered)
	require.Len(t, list.Items, 2)
	assert.Equal(t, 4, list.Items[1].Routine.NodesCount)

	assert.Equal(t, schema.EndData{WasSuccessful: true}, g.Nodes[2].Data)
	col, row, onGraph := g.Nodes[2].Position()
	assert.True(t, onGraph)
	assert.Equal(t, 2, col)
	assert.Equal(t, 0, row)
	assert.Equal(t, "vars.accepted == true", g.Links[1].Condition)
}

func TestLoader_SelectsFromPayload(t *testing.T) {
	l, err := NewLoader(WithQuery(".data.routine"))
	require.NoError(t, err)

	g, err := l.Load(context.Background(), strings.NewReader(graphqlPayload), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "r1", g.RoutineID)
	require.Len(t, g.Nodes, 3)
	assert.False(t, g.Nodes[2].OnGraph())
	assert.Equal(t, []schema.Link{{ID: "l1", FromID: "S", ToID: "E"}}, g.Links)
}

func TestLoader_WithoutQueryRejectsPayload(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	_, err = l.Load(context.Background(), strings.NewReader(graphqlPayload), FormatJSON)
	requireCode(t, err, schema.ErrCodeValidation)
}

func TestLoader_SchemaViolations(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	doc := `{"nodes": [{"id": "S", "kind": "Middle", "columnIndex": -1}], "links": [{"id": "l1", "fromId": "S"}]}`
	_, err = l.Load(context.Background(), strings.NewReader(doc), FormatJSON)
	re := requireCode(t, err, schema.ErrCodeValidation)
	violations, ok := re.Details["violations"].([]string)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(violations), 3)
}

func TestLoader_DuplicateIDs(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	doc := `{"nodes": [{"id": "S", "kind": "Start"}, {"id": "S", "kind": "End"}], "links": []}`
	_, err = l.Load(context.Background(), strings.NewReader(doc), FormatJSON)
	re := requireCode(t, err, schema.ErrCodeValidation)
	assert.Contains(t, re.Message, `duplicate node id "S"`)
}

func TestLoader_WithoutSchemaCheck(t *testing.T) {
	l, err := NewLoader(WithoutSchemaCheck())
	require.NoError(t, err)

	doc := `{"nodes": [{"id": "S", "kind": "Start", "extra": 1}], "links": []}`
	g, err := l.Load(context.Background(), strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
}

func TestLoader_DocumentErrors(t *testing.T) {
	l, err := NewLoader(WithQuery(".data.missing"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Load(ctx, strings.NewReader(`{"data": {}}`), FormatJSON)
	requireCode(t, err, schema.ErrCodeDocument)

	_, err = l.Load(ctx, strings.NewReader(`{not json`), FormatJSON)
	requireCode(t, err, schema.ErrCodeDocument)

	_, err = l.Load(ctx, strings.NewReader(""), FormatYAML)
	requireCode(t, err, schema.ErrCodeDocument)

	_, err = l.Load(ctx, strings.NewReader("{}"), Format("toml"))
	requireCode(t, err, schema.ErrCodeDocument)

	_, err = l.LoadFile(ctx, "testdata/missing.json")
	requireCode(t, err, schema.ErrCodeNotFound)
}

func TestSelector(t *testing.T) {
	s := NewSelector()
	ctx := context.Background()
	doc := map[string]any{"items": []any{map[string]any{"n": int64(1)}, map[string]any{"n": int64(2)}}}

	got, err := s.Select(ctx, ".items[1].n", doc)
	require.NoError(t, err)
	assert.Equal(t, float64(2), got)

	same, err := s.Select(ctx, ".", doc)
	require.NoError(t, err)
	assert.Equal(t, doc, same)

	_, err = s.Select(ctx, ".items[]", doc)
	requireCode(t, err, schema.ErrCodeDocument)

	_, err = s.Select(ctx, ".items[", doc)
	requireCode(t, err, schema.ErrCodeDocument)

	_, err = s.Select(ctx, "empty", doc)
	requireCode(t, err, schema.ErrCodeDocument)

	_, err = s.Select(ctx, `error("boom")`, doc)
	requireCode(t, err, schema.ErrCodeDocument)

	assert.Len(t, s.cache, 4)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatOf("r.yml"))
	assert.Equal(t, FormatYAML, FormatOf("R.YAML"))
	assert.Equal(t, FormatJSON, FormatOf("r.json"))
	assert.Equal(t, FormatJSON, FormatOf("r"))
}

func TestEncode_RoundTrip(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)
	ctx := context.Background()

	g, err := l.LoadFile(ctx, "testdata/onboarding.yaml")
	require.NoError(t, err)

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, g, format))

			again, err := l.Load(ctx, &buf, format)
			require.NoError(t, err)
			assert.Equal(t, g, again)
		})
	}
}

func TestEncode_YAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, schema.Link{ID: "l1", FromID: "a", ToID: "b"}, FormatYAML))
	assert.Contains(t, buf.String(), "fromId: a")
	assert.NotContains(t, buf.String(), "condition")
}
