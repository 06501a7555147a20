package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/routinegraph/internal/diagram"
	"github.com/rendis/routinegraph/internal/layout"
	"github.com/rendis/routinegraph/internal/run"
	"github.com/rendis/routinegraph/internal/steps"
)

var (
	diagramFormat   string
	diagramOutput   string
	diagramProgress string
)

var diagramCmd = &cobra.Command{
	Use:   "diagram <file>",
	Short: "Render a routine as Mermaid, ASCII, PNG or SVG",
	Long: `Renders the layout grid of a routine. With --progress, nodes are
colored with the run record written by "walk --json".`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagram,
}

func init() {
	diagramCmd.Flags().StringVarP(&diagramFormat, "format", "f", "mermaid", "output format: mermaid, ascii, png or svg")
	diagramCmd.Flags().StringVarP(&diagramOutput, "output", "o", "", "write to this file instead of stdout")
	diagramCmd.Flags().StringVar(&diagramProgress, "progress", "", "run record (JSON) to overlay")
}

func runDiagram(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx, g, err := s.load(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	view := layout.Recompute(g)
	model, err := diagram.Build(view, s.cfg.Languages)
	if err != nil {
		return err
	}
	if diagramProgress != "" {
		progress, err := readProgress(diagramProgress)
		if err != nil {
			return err
		}
		diagram.Overlay(model, steps.BuildTree(view.Graph, s.cfg.Languages), progress)
	}

	var out []byte
	switch diagramFormat {
	case "mermaid":
		out = []byte(diagram.RenderMermaid(model))
	case "ascii":
		out = []byte(diagram.RenderASCII(model))
	case "png", "svg":
		out, err = diagram.RenderImage(ctx, model, diagram.ImageFormat(diagramFormat))
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown diagram format %q", diagramFormat)
	}

	if diagramOutput == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(diagramOutput, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", diagramOutput, err)
	}
	s.logger.InfoContext(ctx, "diagram written", "path", diagramOutput, "format", diagramFormat)
	return nil
}

func readProgress(path string) (run.Progress, error) {
	var p run.Progress
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read progress: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse progress %s: %w", path, err)
	}
	return p, nil
}
