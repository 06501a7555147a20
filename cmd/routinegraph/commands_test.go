package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/routinegraph/internal/run"
	"github.com/rendis/routinegraph/internal/steps"
	"github.com/rendis/routinegraph/pkg/schema"
)

// set assigns v to *p for the duration of the test.
func set[T any](t *testing.T, p *T, v T) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

// resetFlags puts every flag variable back to its default for the test.
func resetFlags(t *testing.T) {
	t.Helper()
	set(t, &logLevel, "")
	set(t, &logFormat, "")
	set(t, &languages, nil)
	set(t, &query, "")
	set(t, &noSchema, false)

	set(t, &validateJSON, false)
	set(t, &validateStrict, false)
	set(t, &layoutFormat, "json")
	set(t, &cleanupOutput, "")
	set(t, &cleanupAutoPosition, false)
	set(t, &diagramFormat, "mermaid")
	set(t, &diagramOutput, "")
	set(t, &diagramProgress, "")
	set(t, &walkVars, nil)
	set(t, &walkChoose, nil)
	set(t, &walkExpand, nil)
	set(t, &walkJSON, false)
	set(t, &walkRunID, "")
}

// newTestCmd returns a bare command writing to a buffer, with HOME
// isolated and flags reset.
func newTestCmd(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	isolate(t)
	resetFlags(t)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	return cmd, &out
}

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

// --- validate ---

func TestRunValidate_Valid(t *testing.T) {
	cmd, out := newTestCmd(t)

	require.NoError(t, runValidate(cmd, []string{testdata("onboarding.yaml")}))
	assert.Equal(t, "onboarding: valid\n", out.String())
}

func TestRunValidate_Invalid(t *testing.T) {
	cmd, out := newTestCmd(t)

	err := runValidate(cmd, []string{testdata("collision.json")})
	require.Error(t, err)

	var rerr *schema.RoutineError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, schema.ErrCodeValidation, rerr.Code)
	assert.Contains(t, out.String(), "broken: invalid")
	assert.Contains(t, out.String(), "[POSITION_COLLISION]")
}

func TestRunValidate_BadCondition(t *testing.T) {
	cmd, out := newTestCmd(t)

	err := runValidate(cmd, []string{testdata("badcondition.yaml")})
	require.Error(t, err)
	assert.Contains(t, out.String(), "checkout: invalid")
	assert.Contains(t, out.String(), "[CONDITION_ERROR]")
}

func TestRunValidate_Strict(t *testing.T) {
	cmd, out := newTestCmd(t)

	require.NoError(t, runValidate(cmd, []string{testdata("staged.json")}))
	assert.Contains(t, out.String(), "draft: incomplete")
	assert.Contains(t, out.String(), "[OFF_GRAPH]")

	validateStrict = true
	assert.Error(t, runValidate(cmd, []string{testdata("staged.json")}))
}

func TestRunValidate_JSON(t *testing.T) {
	cmd, out := newTestCmd(t)
	validateJSON = true

	require.NoError(t, runValidate(cmd, []string{testdata("staged.json")}))

	var report schema.StatusReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, schema.StatusIncomplete, report.Status)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, schema.IssueOffGraph, report.Issues[0].Code)
}

func TestRunValidate_MissingFile(t *testing.T) {
	cmd, _ := newTestCmd(t)

	err := runValidate(cmd, []string{testdata("nope.yaml")})
	var rerr *schema.RoutineError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, schema.ErrCodeNotFound, rerr.Code)
}

// --- layout / cleanup ---

func TestRunLayout(t *testing.T) {
	cmd, out := newTestCmd(t)

	require.NoError(t, runLayout(cmd, []string{testdata("staged.json")}))

	var got layoutOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "draft", got.RoutineID)
	assert.Equal(t, schema.StatusIncomplete, got.Status)
	require.Len(t, got.Columns, 6, "columns 0..4 plus the trailing empty one")
	assert.Empty(t, got.Columns[0])
	assert.Equal(t, []string{"S"}, got.Columns[1])
	assert.Equal(t, []string{"L"}, got.Columns[3])
	assert.Equal(t, []string{"E"}, got.Columns[4])
	assert.Equal(t, []string{"X"}, got.OffGraph)
}

func TestRunLayout_YAML(t *testing.T) {
	cmd, out := newTestCmd(t)
	layoutFormat = "yaml"

	require.NoError(t, runLayout(cmd, []string{testdata("onboarding.yaml")}))
	assert.Contains(t, out.String(), "routineId: onboarding")
	assert.Contains(t, out.String(), "status: valid")
}

func TestRunLayout_UnknownFormat(t *testing.T) {
	cmd, _ := newTestCmd(t)
	layoutFormat = "toml"

	assert.Error(t, runLayout(cmd, []string{testdata("onboarding.yaml")}))
}

func TestRunCleanup(t *testing.T) {
	cmd, out := newTestCmd(t)

	require.NoError(t, runCleanup(cmd, []string{testdata("staged.json")}))

	var g schema.Graph
	require.NoError(t, json.Unmarshal(out.Bytes(), &g))
	l, ok := g.Node("L")
	require.True(t, ok)
	col, row, ok := l.Position()
	require.True(t, ok)
	assert.Equal(t, 3, col)
	assert.Equal(t, 0, row, "row gap closed")
	assert.Len(t, g.Links, 2, "link to the off-graph node dropped")
}

func TestRunCleanup_AutoPositionToFile(t *testing.T) {
	cmd, out := newTestCmd(t)
	cleanupAutoPosition = true
	cleanupOutput = filepath.Join(t.TempDir(), "clean.yaml")

	require.NoError(t, runCleanup(cmd, []string{testdata("staged.json")}))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(cleanupOutput)
	require.NoError(t, err)
	assert.Contains(t, string(data), "routineId: draft")

	// The written YAML loads back, with every node placed.
	out.Reset()
	require.NoError(t, runLayout(cmd, []string{cleanupOutput}))
	var got layoutOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Empty(t, got.OffGraph)
}

// --- steps ---

func TestRunSteps(t *testing.T) {
	cmd, out := newTestCmd(t)

	require.NoError(t, runSteps(cmd, []string{testdata("onboarding.yaml")}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Onboarding (complexity 5)", lines[0])
	assert.Equal(t, "1 L1 [ordered] (5)", lines[1])
	assert.Equal(t, "  1.1 setup-account (3)", lines[2])
	assert.Equal(t, "  1.2 pick-plan [stub] (2)", lines[3])
}

func TestRunSteps_Decision(t *testing.T) {
	cmd, out := newTestCmd(t)

	require.NoError(t, runSteps(cmd, []string{testdata("branching.yaml")}))
	assert.Equal(t, `Checkout (complexity 4)
1 Cart (2)
  1.1 review-cart (1)
  1.2 decision at L1: to-free->E1, to-paid->L2
2 Payment (2)
  2.1 pay (2)
`, out.String())
}

// --- diagram ---

func TestRunDiagram_Mermaid(t *testing.T) {
	cmd, out := newTestCmd(t)

	require.NoError(t, runDiagram(cmd, []string{testdata("branching.yaml")}))
	assert.True(t, strings.HasPrefix(out.String(), "graph LR"))
	assert.Contains(t, out.String(), "n_L1")
}

func TestRunDiagram_ASCIIWithProgress(t *testing.T) {
	cmd, out := newTestCmd(t)
	diagramFormat = "ascii"
	diagramProgress = filepath.Join(t.TempDir(), "progress.json")

	progress := run.Progress{
		RunID:     "run-1",
		RoutineID: "checkout",
		Current:   steps.Location{2, 1},
		Visited:   []steps.Location{{1, 1}, {1, 2}},
	}
	data, err := json.Marshal(progress)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(diagramProgress, data, 0o644))

	require.NoError(t, runDiagram(cmd, []string{testdata("branching.yaml")}))
	assert.Contains(t, out.String(), "[OK]")
	assert.Contains(t, out.String(), "[RUN 0/1]")
}

func TestRunDiagram_SVGToFile(t *testing.T) {
	cmd, out := newTestCmd(t)
	diagramFormat = "svg"
	diagramOutput = filepath.Join(t.TempDir(), "routine.svg")

	require.NoError(t, runDiagram(cmd, []string{testdata("onboarding.yaml")}))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(diagramOutput)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestRunDiagram_UnknownFormat(t *testing.T) {
	cmd, _ := newTestCmd(t)
	diagramFormat = "gif"

	assert.Error(t, runDiagram(cmd, []string{testdata("onboarding.yaml")}))
}

// --- walk ---

func TestRunWalk_FollowsConditions(t *testing.T) {
	cmd, out := newTestCmd(t)
	walkVars = map[string]string{"plan": "paid"}

	require.NoError(t, runWalk(cmd, []string{testdata("branching.yaml")}))
	assert.Equal(t, `1.1 review-cart (1)
1.2 decision at L1: to-free->E1, to-paid->L2
  -> to-paid (L2)
2.1 pay (2)
done: 4/4 (100%)
`, out.String())
}

func TestRunWalk_EndsEarly(t *testing.T) {
	cmd, out := newTestCmd(t)
	walkVars = map[string]string{"plan": "free"}

	require.NoError(t, runWalk(cmd, []string{testdata("branching.yaml")}))
	assert.Contains(t, out.String(), "  -> to-free (E1)\n")
	assert.True(t, strings.HasSuffix(out.String(), "done: 2/4 (50%)\n"))
}

func TestRunWalk_NoAvailableLink(t *testing.T) {
	cmd, _ := newTestCmd(t)
	walkVars = map[string]string{"plan": "trial"}

	err := runWalk(cmd, []string{testdata("branching.yaml")})
	var rerr *schema.RoutineError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "L1", rerr.NodeID)
}

func TestRunWalk_ChooseMustBeAvailable(t *testing.T) {
	cmd, _ := newTestCmd(t)
	walkVars = map[string]string{"plan": "paid"}
	walkChoose = map[string]string{"L1": "to-free"}

	err := runWalk(cmd, []string{testdata("branching.yaml")})
	var rerr *schema.RoutineError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, schema.ErrCodeNotFound, rerr.Code)
}

func TestRunWalk_ExpandsStubs(t *testing.T) {
	cmd, out := newTestCmd(t)
	walkExpand = map[string]string{"pick-plan": testdata("pick-plan.yaml")}

	require.NoError(t, runWalk(cmd, []string{testdata("onboarding.yaml")}))
	assert.Equal(t, `1.1 setup-account (3)
1.2 pick-plan [stub] (2)
1.2.1.1 choose-tier (1)
1.2.1.2 confirm-plan (1)
done: 5/5 (100%)
`, out.String())
}

func TestRunWalk_JSON(t *testing.T) {
	cmd, out := newTestCmd(t)
	walkJSON = true
	walkRunID = "run-42"

	require.NoError(t, runWalk(cmd, []string{testdata("onboarding.yaml")}))

	var p run.Progress
	require.NoError(t, json.Unmarshal(out.Bytes(), &p))
	assert.Equal(t, "run-42", p.RunID)
	assert.Equal(t, "onboarding", p.RoutineID)
	assert.True(t, p.Done)
	assert.Equal(t, 5, p.CompletedComplexity)
	assert.Equal(t, []steps.Location{{1, 1}, {1, 2}}, p.Visited)
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars(map[string]string{"ok": "true", "n": "3", "name": "ana"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true, "n": 3, "name": "ana"}, vars)

	_, err = parseVars(map[string]string{"bad": "[unclosed"})
	assert.Error(t, err)
}

// --- config ---

func TestRunConfig(t *testing.T) {
	cmd, out := newTestCmd(t)
	t.Setenv("ROUTINEGRAPH_LOG_FORMAT", "json")

	require.NoError(t, runConfig(cmd, nil))
	assert.Contains(t, out.String(), `"log_format": "json"`)
	assert.Contains(t, out.String(), "overridden: log_format\n")
}
