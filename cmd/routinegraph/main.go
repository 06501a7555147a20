// Command routinegraph lays out, validates, renders and walks routine graphs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/routinegraph/internal/document"
	"github.com/rendis/routinegraph/internal/logging"
	"github.com/rendis/routinegraph/pkg/schema"
)

var (
	// Global flags
	logLevel  string
	logFormat string
	languages []string
	query     string
	noSchema  bool
)

var rootCmd = &cobra.Command{
	Use:   "routinegraph",
	Short: "Lay out, validate, render and walk routine graphs",
	Long: `routinegraph works on routine documents (JSON or YAML): it derives the
grid layout and validity status, cleans up positions, builds the step tree
a runner walks, and renders diagrams.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().StringSliceVar(&languages, "lang", nil, "preferred translation languages, in order")
	rootCmd.PersistentFlags().StringVarP(&query, "query", "q", "", "jq query selecting the routine inside the document")
	rootCmd.PersistentFlags().BoolVar(&noSchema, "no-schema", false, "skip JSON Schema validation of the document")

	rootCmd.AddCommand(
		validateCmd,
		layoutCmd,
		cleanupCmd,
		stepsCmd,
		diagramCmd,
		walkCmd,
		configCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is the per-invocation state shared by the subcommands.
type session struct {
	cfg    Config
	logger *slog.Logger
	loader *document.Loader
}

// effectiveConfig layers the command's changed flags over loadConfig.
func effectiveConfig(cmd *cobra.Command) Config {
	cfg := loadConfig()
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("lang") {
		cfg.Languages = languages
	}
	if flags.Changed("no-schema") {
		cfg.SchemaCheck = !noSchema
	}
	return cfg
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg := effectiveConfig(cmd)

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	opts := []document.LoaderOption{document.WithLogger(logger)}
	if query != "" {
		opts = append(opts, document.WithQuery(query))
	}
	if !cfg.SchemaCheck {
		opts = append(opts, document.WithoutSchemaCheck())
	}
	loader, err := document.NewLoader(opts...)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}
	return &session{cfg: cfg, logger: logger, loader: loader}, nil
}

// load reads a routine document and returns a context tagged with its ID.
func (s *session) load(ctx context.Context, path string) (context.Context, schema.Graph, error) {
	g, err := s.loader.LoadFile(ctx, path)
	if err != nil {
		return ctx, schema.Graph{}, fmt.Errorf("load %s: %w", path, err)
	}
	return logging.WithRoutineID(ctx, g.RoutineID), g, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
