package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/routinegraph/internal/document"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Prints the configuration after layering settings.json, ROUTINEGRAPH_*
environment variables and flags over the defaults, followed by the settings
that differ from the defaults.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig(cmd)
	out := cmd.OutOrStdout()
	if err := document.Encode(out, cfg, document.FormatJSON); err != nil {
		return err
	}
	fmt.Fprintf(out, "settings: %s\n", settingsPath())
	if changed := diffConfigs(defaultConfig(), cfg); len(changed) > 0 {
		fmt.Fprintf(out, "overridden: %s\n", strings.Join(changed, ", "))
	}
	return nil
}
