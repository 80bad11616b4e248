package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/output"
	"github.com/Aman-CERP/choralmind/internal/synth"
)

func newAskCmd(g *globalOptions) *cobra.Command {
	var (
		lang   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "ask <line...>",
		Short: "Identify the hymn a remembered line comes from",
		Long: `Retrieve the closest excerpts for a remembered line and ask the
completion model which hymn it belongs to.

When nothing matches the answer says so; when the model is unavailable
the answer is an apology rather than an error.`,
		Example: `  choralmind ask "when I survey the wondrous cross"
  choralmind ask --lang yoruba "Olorun Oba"`,
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

			answer, err := rt.hymnal.Ask(cmd.Context(), query, l)
			if err != nil {
				return err
			}

			if f == output.FormatJSON {
				return out.JSON(answer)
			}
			out.Answer(answer.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "english", "Language to search (english, yoruba)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
