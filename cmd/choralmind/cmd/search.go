package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/output"
	"github.com/Aman-CERP/choralmind/internal/synth"
)

func newSearchCmd(g *globalOptions) *cobra.Command {
	var (
		lang   string
		k      int
		format string
	)

	cmd := &cobra.Command{
		Use:   "search <line...>",
		Short: "Show the hymn excerpts closest to a remembered line",
		Long: `Search one language index for the chunks nearest to a remembered
line, without composing an answer.`,
		Example: `  choralmind search "abide with me fast falls the eventide"
  choralmind search --lang yoruba -k 5 "Jesu olugbala"
  choralmind search --format json "rock of ages"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := parseLanguage(lang)
			if err != nil {
				return err
			}
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())

			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				out.Warning(synth.EmptyQueryMessage)
				return nil
			}

			cfg, err := g.config()
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), cfg, []hymn.Language{l})
			if err != nil {
				return err
			}
			defer rt.Close()

			results, err := rt.hymnal.Retrieve(cmd.Context(), query, l, k)
			if err != nil {
				return err
			}

			if f == output.FormatJSON {
				return out.JSON(searchJSON{Query: query, Language: l, Results: results})
			}
			out.Results(l, results)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "english", "Language to search (english, yoruba)")
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "Number of excerpts (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

type searchJSON struct {
	Query    string                 `json:"query"`
	Language hymn.Language          `json:"language"`
	Results  []hymn.RetrievalResult `json:"results"`
}
