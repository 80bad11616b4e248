package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/choralmind/internal/embed"
	"github.com/Aman-CERP/choralmind/internal/ingest"
	"github.com/Aman-CERP/choralmind/internal/output"
	"github.com/Aman-CERP/choralmind/internal/profiling"
	"github.com/Aman-CERP/choralmind/internal/ui"
)

func newIngestCmd(g *globalOptions) *cobra.Command {
	var (
		lang     string
		all      bool
		parallel bool
		plain    bool
		noColor  bool
		profile  profiling.Options
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build and publish hymn indexes",
		Long: `Load the source documents of a language, split them into hymns,
chunk and embed every hymn, and publish the result as a new index
generation.

Each language is rebuilt in full. Queries keep using the previous
generation until the new one is published; a failed build publishes
nothing.`,
		Example: `  # Rebuild the English index
  choralmind ingest --lang english

  # Rebuild every language concurrently
  choralmind ingest --all --parallel

  # Plain progress output (CI, pipes)
  choralmind ingest --all --plain`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			langs, err := parseLanguages(lang, all)
			if err != nil {
				return err
			}
			cfg, err := g.config()
			if err != nil {
				return err
			}

			if profile.Enabled() {
				session, err := profiling.Start(profile)
				if err != nil {
					return err
				}
				defer func() {
					if err := session.Stop(); err != nil {
						output.New(cmd.ErrOrStderr()).Warningf("profiling: %v", err)
					}
				}()
			}

			emb, err := embed.New(cmd.Context(), cfg.Embeddings)
			if err != nil {
				return err
			}
			defer func() { _ = emb.Close() }()

			renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
				ui.WithForcePlain(plain),
				ui.WithNoColor(noColor || ui.DetectNoColor()),
				ui.WithTitle("ChoralMind ingest")))

			runner, err := ingest.NewRunner(ingest.Dependencies{
				Config:   cfg,
				Embedder: emb,
				Renderer: renderer,
			})
			if err != nil {
				return err
			}

			results, err := runner.RunAll(cmd.Context(), langs, parallel)
			reportIngest(output.New(cmd.OutOrStdout()), results)
			return err
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Language to ingest (english, yoruba)")
	cmd.Flags().BoolVar(&all, "all", false, "Ingest every language")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Ingest languages concurrently")
	cmd.Flags().BoolVar(&plain, "plain", false, "Plain text progress instead of the TUI")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&profile.CPU, "cpu-profile", "", "Write a CPU profile to this file")
	cmd.Flags().StringVar(&profile.Heap, "mem-profile", "", "Write a heap profile to this file")
	cmd.Flags().StringVar(&profile.Trace, "trace", "", "Write an execution trace to this file")

	return cmd
}

// reportIngest prints the per-language warnings the renderer summary
// does not cover.
func reportIngest(out *output.Writer, results []*ingest.Result) {
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Ambiguous {
			out.Warningf("%s: source text produced no hymns; an empty index was published", res.Language.DisplayName())
		}
		if len(res.Excluded) == 0 {
			continue
		}
		out.Warningf("%s: %d header line(s) did not open a hymn", res.Language.DisplayName(), len(res.Excluded))
		for _, h := range res.Excluded {
			out.Statusf("", "  offset %d: %q", h.Offset, h.Line)
		}
	}
}
