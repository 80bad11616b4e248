package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/synth"
	"github.com/Aman-CERP/choralmind/internal/ui"
)

func newTUICmd(g *globalOptions) *cobra.Command {
	var (
		lang    string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Search hymns interactively as you type",
		Long: `Open an interactive search. Answers refresh shortly after you stop
typing; Tab switches language, Enter searches at once, Esc quits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := parseLanguage(lang)
			if err != nil {
				return err
			}
			cfg, err := g.config()
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			model := ui.NewSearchModel(ui.SearchConfig{
				Ask: func(ctx context.Context, query string, lang hymn.Language) (string, error) {
					answer, err := rt.hymnal.Ask(ctx, query, lang)
					if err != nil {
						return "", err
					}
					return answer.Text, nil
				},
				Languages: hymn.Languages(),
				Language:  l,
				Debounce:  cfg.Server.Debounce,
				Timeout:   cfg.Completion.Timeout,
				NoColor:   noColor,
				Intro:     synth.WelcomeMessage + "\n" + synth.LanguageSelectedMessage(l),
			})

			_, err = tea.NewProgram(model,
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "english", "Initial language (english, yoruba)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
