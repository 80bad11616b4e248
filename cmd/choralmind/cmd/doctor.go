package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/preflight"
)

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that ChoralMind can ingest and answer",
		Long: `Check the data directory, source documents, published indexes and
the embedding and completion providers.

Exits non-zero when a required check fails.`,
		Example: `  choralmind doctor
  choralmind doctor --offline --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}

			checker := preflight.New(cfg,
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithVerbose(g.verbose),
				preflight.WithOffline(offline))
			results := checker.RunAll(cmd.Context())

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"status": checker.SummaryStatus(results),
					"checks": results,
				}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return errors.New(errors.ErrCodeConfigInvalid,
					fmt.Sprintf("system check failed (%s)", checker.SummaryStatus(results)), nil).
					WithSuggestion("Fix the failed checks above and run 'choralmind doctor' again")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the provider checks")

	return cmd
}
