package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rendis/routinegraph/internal/conditions"
	"github.com/rendis/routinegraph/internal/document"
	"github.com/rendis/routinegraph/internal/layout"
	"github.com/rendis/routinegraph/pkg/schema"
)

var (
	validateJSON   bool
	validateStrict bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Report the validity status of a routine",
	Long: `Derives the layout of a routine and reports whether it is valid,
incomplete or invalid, with one line per failed check. Link conditions are
compiled too. The command fails when the routine is invalid, or when it is
incomplete and --strict is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the status report as JSON")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat incomplete routines as failures")
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx, g, err := s.load(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	view := layout.Recompute(g)
	report := view.Report

	ev, err := conditions.NewEvaluator(s.logger)
	if err != nil {
		return err
	}
	if err := ev.Check(view.Graph); err != nil {
		issue := schema.Issue{Code: schema.ErrCodeCondition, Message: err.Error(), Status: schema.StatusInvalid}
		var rerr *schema.RoutineError
		if errors.As(err, &rerr) {
			issue.Message, issue.NodeID = rerr.Message, rerr.NodeID
		}
		report.Add(issue)
	}
	s.logger.DebugContext(ctx, "routine validated", "status", report.Status.String(), "issues", len(report.Issues))

	out := cmd.OutOrStdout()
	if validateJSON {
		if err := document.Encode(out, report, document.FormatJSON); err != nil {
			return err
		}
	} else {
		printReport(out, g.RoutineID, &report)
	}

	if err := report.ToError(); err != nil {
		return err
	}
	if validateStrict && report.Status == schema.StatusIncomplete {
		return schema.NewErrorf(schema.ErrCodeValidation, "routine %q is incomplete", g.RoutineID)
	}
	return nil
}

func printReport(w io.Writer, routineID string, report *schema.StatusReport) {
	name := routineID
	if name == "" {
		name = "routine"
	}
	fmt.Fprintf(w, "%s: %s\n", name, report.Status)
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "  [%s] %s\n", issue.Code, issue.Message)
	}
}
