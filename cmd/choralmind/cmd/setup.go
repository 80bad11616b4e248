package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/choralmind/internal/lifecycle"
	"github.com/Aman-CERP/choralmind/internal/output"
)

func newSetupCmd(g *globalOptions) *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Pull the Ollama models the configuration needs",
		Long: `Check that the embedding and completion models named in the
configuration are installed in Ollama, and pull the missing ones.

Providers that do not use Ollama (static embeddings, completion none)
need nothing.`,
		Example: `  choralmind setup
  choralmind setup --check`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())

			reqs := lifecycle.Requirements(cfg)
			if len(reqs) == 0 {
				out.Success("No Ollama models required")
				return nil
			}

			lastStatus := ""
			statuses, err := lifecycle.Ensure(cmd.Context(), reqs, lifecycle.EnsureOptions{
				Pull: !checkOnly,
				Progress: func(p lifecycle.PullProgress) {
					if p.Status != lastStatus && p.Total == 0 {
						out.Statusf("", "%s: %s", p.Model, p.Status)
					}
					lastStatus = p.Status
				},
			})
			for _, st := range statuses {
				switch {
				case st.Pulled:
					out.Successf("%s model %s pulled", st.Role, st.Model)
				case st.Installed:
					out.Successf("%s model %s installed", st.Role, st.Model)
				default:
					out.Warningf("%s model %s missing (run 'ollama pull %s')", st.Role, st.Model, st.Model)
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report missing models, do not pull")

	return cmd
}
