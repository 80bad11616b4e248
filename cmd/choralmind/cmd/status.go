package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/embed"
	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
	"github.com/Aman-CERP/choralmind/internal/llm"
	"github.com/Aman-CERP/choralmind/internal/store"
	"github.com/Aman-CERP/choralmind/internal/ui"
)

// providerCheckTimeout bounds the availability probes.
const providerCheckTimeout = 3 * time.Second

func newStatusCmd(g *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index and provider status",
		Long: `Show the published generation of each language and whether the
embedding and completion providers are reachable.`,
		Example: `  choralmind status
  choralmind status --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			info := collectStatus(cmd.Context(), cfg)

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || ui.DetectNoColor())
			if jsonOutput {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

// collectStatus gathers the report without loading any index into memory.
func collectStatus(ctx context.Context, cfg *config.Config) ui.StatusInfo {
	info := ui.StatusInfo{
		DataDir:         cfg.DataDir,
		EmbedderType:    cfg.Embeddings.Provider,
		EmbedderModel:   cfg.Embeddings.Model,
		EmbedderStatus:  "offline",
		CompleterModel:  cfg.Completion.Model,
		CompleterStatus: "offline",
	}

	for _, lang := range hymn.Languages() {
		info.Languages = append(info.Languages, languageStatus(cfg, lang))
	}

	ctx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
	defer cancel()

	if emb, err := embed.New(ctx, cfg.Embeddings); err == nil {
		info.EmbedderModel = emb.ModelName()
		if emb.Available(ctx) {
			info.EmbedderStatus = "ready"
		}
		_ = emb.Close()
	}
	if c, err := llm.New(cfg.Completion); err == nil {
		info.CompleterModel = c.ModelName()
		switch {
		case cfg.Completion.Provider == "none":
			info.CompleterStatus = "disabled"
		case c.Available(ctx):
			info.CompleterStatus = "ready"
		}
		_ = c.Close()
	}
	return info
}

func languageStatus(cfg *config.Config, lang hymn.Language) ui.LanguageStatus {
	st := ui.LanguageStatus{Language: lang.DisplayName()}

	langDir := cfg.LanguageDir(lang)
	genDir, err := index.ResolveCurrent(langDir, lang)
	if errors.HasCode(err, errors.ErrCodeIndexNotFound) {
		return st
	}
	if err != nil {
		st.Error = err.Error()
		return st
	}
	m, err := index.ReadManifest(genDir)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	st.Indexed = true
	st.Generation = m.Generation
	st.Backend = m.Backend
	st.Model = m.Model
	st.Dimensions = m.Dimensions
	st.Hymns = m.Hymns
	st.Chunks = m.Chunks
	st.BuiltAt = m.BuiltAt
	st.SizeBytes = dirSize(genDir)

	records, err := store.ReadCorpus(filepath.Join(genDir, store.CorpusFile), lang)
	switch {
	case err != nil:
		st.Error = err.Error()
	case len(records) != m.Hymns:
		st.Error = fmt.Sprintf("corpus holds %d hymns, manifest records %d", len(records), m.Hymns)
	}
	return st
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}
