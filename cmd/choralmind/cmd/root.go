// Package cmd provides the CLI commands for ChoralMind.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/logging"
	"github.com/Aman-CERP/choralmind/pkg/version"
)

// globalOptions holds the persistent flags and lazily loaded configuration
// shared by every subcommand.
type globalOptions struct {
	dir     string
	logFile string
	debug   bool
	verbose bool

	// quiet forces file-only logging (stdio protocol servers).
	quiet bool

	cfg            *config.Config
	loggingCleanup func()
}

// NewRootCmd creates the root command for the choralmind CLI.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "choralmind",
		Short: "Find English and Yoruba hymns from a remembered line",
		Long: `ChoralMind indexes bilingual hymnals and answers "which hymn is this?"
questions from a single remembered line.

Ingest the source PDFs once per language, then search from the CLI,
the interactive TUI, the HTTP API or an MCP client.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("choralmind version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&g.dir, "dir", ".", "Project directory containing choralmind.yaml and .env")
	cmd.PersistentFlags().StringVar(&g.logFile, "log-file", logging.DefaultLogPath(), "Log file path (empty disables file logging)")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Also write logs to stderr")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return g.startLogging()
	}
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		g.stopLogging()
		return nil
	}

	cmd.AddCommand(newIngestCmd(g))
	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newAskCmd(g))
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newTUICmd(g))
	cmd.AddCommand(newStatusCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newStatsCmd(g))
	cmd.AddCommand(newSetupCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx and prints any error.
func ExecuteContext(ctx context.Context) error {
	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprint(root.ErrOrStderr(), errors.FormatForCLI(err))
	}
	return err
}

// startLogging installs the default slog logger. The level comes from the
// configuration when it loads; config errors surface in the command itself.
func (g *globalOptions) startLogging() error {
	level := "info"
	if cfg, err := config.Load(g.dir); err == nil {
		level = cfg.Server.LogLevel
	}
	if g.debug {
		level = "debug"
	}

	cfg := logging.Config{
		Level:         level,
		FilePath:      g.logFile,
		WriteToStderr: g.verbose && !g.quiet,
	}
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	g.loggingCleanup = cleanup
	slog.Debug("cli_started", slog.String("version", version.Version), slog.String("dir", g.dir))
	return nil
}

func (g *globalOptions) stopLogging() {
	if g.loggingCleanup != nil {
		g.loggingCleanup()
		g.loggingCleanup = nil
	}
}

// config loads the configuration once. Relative source paths are resolved
// against the project directory.
func (g *globalOptions) config() (*config.Config, error) {
	if g.cfg != nil {
		return g.cfg, nil
	}
	cfg, err := config.Load(g.dir)
	if err != nil {
		return nil, err
	}
	for name, src := range cfg.Sources {
		if src.Path != "" && !filepath.IsAbs(src.Path) {
			src.Path = filepath.Join(g.dir, src.Path)
			cfg.Sources[name] = src
		}
	}
	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(g.dir, cfg.DataDir)
	}
	g.cfg = cfg
	return cfg, nil
}

// parseLanguages resolves --lang / --all into a language list.
func parseLanguages(lang string, all bool) ([]hymn.Language, error) {
	if all || lang == "" {
		if !all {
			return nil, errors.New(errors.ErrCodeUnknownLanguage, "a language is required", nil).
				WithSuggestion("Pass --lang english|yoruba or --all")
		}
		return hymn.Languages(), nil
	}
	l, err := parseLanguage(lang)
	if err != nil {
		return nil, err
	}
	return []hymn.Language{l}, nil
}

func parseLanguage(s string) (hymn.Language, error) {
	l, err := hymn.ParseLanguage(s)
	if err != nil {
		return 0, errors.New(errors.ErrCodeUnknownLanguage, err.Error(), err).
			WithSuggestion("Use --lang english or --lang yoruba")
	}
	return l, nil
}
