package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/routinegraph/internal/document"
	"github.com/rendis/routinegraph/internal/layout"
	"github.com/rendis/routinegraph/pkg/schema"
)

var layoutFormat string

var layoutCmd = &cobra.Command{
	Use:   "layout <file>",
	Short: "Print the grid layout of a routine",
	Long: `Prints the derived layout: node IDs per grid column (rows ascending),
the off-graph nodes and the status report.`,
	Args: cobra.ExactArgs(1),
	RunE: runLayout,
}

var (
	cleanupOutput       string
	cleanupAutoPosition bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <file>",
	Short: "Compact a routine's positions and drop dangling links",
	Long: `Removes empty columns, gaps in rows and links touching off-graph nodes,
then writes the routine back out. With --auto-position, nodes without a
position are first placed from the links.`,
	Args: cobra.ExactArgs(1),
	RunE: runCleanup,
}

func init() {
	layoutCmd.Flags().StringVarP(&layoutFormat, "format", "f", "json", "output format: json or yaml")

	cleanupCmd.Flags().StringVarP(&cleanupOutput, "output", "o", "", "write to this file instead of stdout")
	cleanupCmd.Flags().BoolVar(&cleanupAutoPosition, "auto-position", false, "place unpositioned nodes before cleaning up")
}

// layoutOutput is the printed form of a layout.View.
type layoutOutput struct {
	RoutineID string         `json:"routineId,omitempty"`
	Status    schema.Status  `json:"status"`
	Columns   [][]string     `json:"columns"`
	OffGraph  []string       `json:"offGraph"`
	Issues    []schema.Issue `json:"issues,omitempty"`
}

func newLayoutOutput(v *layout.View) layoutOutput {
	out := layoutOutput{
		RoutineID: v.Graph.RoutineID,
		Status:    v.Report.Status,
		Columns:   make([][]string, 0, len(v.Columns)),
		OffGraph:  make([]string, 0, len(v.OffGraph)),
		Issues:    v.Report.Issues,
	}
	for _, col := range v.Columns {
		ids := make([]string, 0, len(col))
		for _, n := range col {
			ids = append(ids, n.ID)
		}
		out.Columns = append(out.Columns, ids)
	}
	for _, n := range v.OffGraph {
		out.OffGraph = append(out.OffGraph, n.ID)
	}
	return out
}

func runLayout(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(layoutFormat)
	if err != nil {
		return err
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	_, g, err := s.load(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	return document.Encode(cmd.OutOrStdout(), newLayoutOutput(layout.Recompute(g)), format)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx, g, err := s.load(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	if cleanupAutoPosition {
		g = layout.AutoPosition(g)
	}
	g = layout.NewEditor(layout.WithLogger(s.logger)).CleanUp(g)
	s.logger.InfoContext(ctx, "routine cleaned up", "nodes", len(g.Nodes), "links", len(g.Links))

	if cleanupOutput == "" {
		return document.Encode(cmd.OutOrStdout(), g, document.FormatOf(args[0]))
	}
	f, err := os.Create(cleanupOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", cleanupOutput, err)
	}
	if err := document.Encode(f, g, document.FormatOf(cleanupOutput)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseFormat(s string) (document.Format, error) {
	switch f := document.Format(s); f {
	case document.FormatJSON, document.FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
	}
}
