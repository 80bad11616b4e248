package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/output"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration",
		Long: `Inspect and create ChoralMind configuration.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/choralmind/config.yaml)
  3. Project config (choralmind.yaml in --dir)
  4. .env in --dir
  5. Environment variables (CHORALMIND_*)`,
		Example: `  # Write a project config with the defaults
  choralmind config init

  # Show the effective configuration
  choralmind config show

  # Print config file locations
  choralmind config path`,
	}

	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigPathCmd(g))

	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create choralmind.yaml in the project directory",
		Long: `Write choralmind.yaml with the default configuration. An existing file
is kept unless --force is given, in which case it is backed up first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, g.dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing choralmind.yaml (a backup is kept)")

	return cmd
}

func runConfigInit(cmd *cobra.Command, dir string, force bool) error {
	out := output.New(cmd.OutOrStdout())
	path := filepath.Join(dir, config.ProjectConfigName)

	var backup string
	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Project configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Status("💡", "Use --force to overwrite it (a backup is kept)")
			return nil
		}
		var err error
		if backup, err = config.BackupFile(path); err != nil {
			return err
		}
	}

	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}

	out.Success("Created project configuration")
	out.Statusf("📁", "Location: %s", path)
	if backup != "" {
		out.Statusf("💾", "Backup: %s", backup)
	}
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Point sources.english.path and sources.yoruba.path at your hymnals")
	out.Status("", "  2. Run 'choralmind ingest --all'")
	return nil
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Example: `  choralmind config show
  choralmind config show --json
  choralmind config show --source defaults`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg *config.Config
			switch source {
			case "merged":
				var err error
				if cfg, err = g.config(); err != nil {
					return err
				}
			case "defaults":
				cfg = config.NewConfig()
			default:
				return fmt.Errorf("unknown source %q (supported: merged, defaults)", source)
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			out.Code(string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults")

	return cmd
}

func newConfigPathCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file locations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "user:    %s\n", config.GetUserConfigPath())
			project := filepath.Join(g.dir, config.ProjectConfigName)
			_, _ = fmt.Fprintf(w, "project: %s\n", project)

			backups, err := config.ListBackups(project)
			if err != nil {
				return err
			}
			for _, b := range backups {
				_, _ = fmt.Fprintf(w, "backup:  %s\n", b)
			}
			return nil
		},
	}
}

