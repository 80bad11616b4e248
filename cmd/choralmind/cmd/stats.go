package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/output"
	"github.com/Aman-CERP/choralmind/internal/telemetry"
)

// statsLimit caps the term and zero-result lists.
const statsLimit = 10

func newStatsCmd(g *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		days       int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show query statistics",
		Long: `Display the locally recorded query telemetry: queries per language,
top query terms, queries that matched nothing and the latency distribution.`,
		Example: `  choralmind stats
  choralmind stats --days 30 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return errors.New(errors.ErrCodeInvalidInput,
					fmt.Sprintf("--days must be positive, got %d", days), nil)
			}
			cfg, err := g.config()
			if err != nil {
				return err
			}
			snap, err := loadStats(cfg, days)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(snap)
			}
			printStats(out, snap, days)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to include")

	return cmd
}

// loadStats reads the last days of telemetry. A missing database is an
// empty report, not an error.
func loadStats(cfg *config.Config, days int) (*telemetry.Snapshot, error) {
	now := time.Now()
	empty := &telemetry.Snapshot{
		LanguageCounts:      map[string]int64{},
		LatencyDistribution: map[telemetry.LatencyBucket]int64{},
		Since:               now.AddDate(0, 0, -(days - 1)),
	}

	path := filepath.Join(cfg.DataDir, telemetry.FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return empty, nil
	}

	store, err := telemetry.OpenSQLiteStore(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	defer func() { _ = store.Close() }()

	from := empty.Since.Format(telemetry.DateLayout)
	to := now.Format(telemetry.DateLayout)
	snap, err := store.Summary(from, to, statsLimit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	snap.Since = empty.Since
	return snap, nil
}

var latencyLabels = []struct {
	bucket telemetry.LatencyBucket
	label  string
}{
	{telemetry.BucketP50, "<50ms"},
	{telemetry.BucketP250, "50-250ms"},
	{telemetry.BucketP1000, "250ms-1s"},
	{telemetry.BucketP5000, "1-5s"},
	{telemetry.BucketSlow, ">5s"},
}

func printStats(out *output.Writer, snap *telemetry.Snapshot, days int) {
	out.Statusf("", "Query Statistics (last %d days)", days)
	out.Newline()
	out.Statusf("", "Total Queries: %d", snap.TotalQueries)
	out.Statusf("", "Zero Results:  %.1f%%", snap.ZeroResultPercentage())

	if len(snap.LanguageCounts) > 0 {
		out.Newline()
		out.Status("", "By Language:")
		for _, lang := range hymn.Languages() {
			if n, ok := snap.LanguageCounts[lang.String()]; ok {
				out.Statusf("", "  %s: %d", lang, n)
			}
		}
	}

	out.Newline()
	if len(snap.TopTerms) == 0 {
		out.Status("", "Top Query Terms: (none recorded yet)")
	} else {
		out.Status("", "Top Query Terms:")
		for i, tc := range snap.TopTerms {
			out.Statusf("", "  %d. %s (%d)", i+1, tc.Term, tc.Count)
		}
	}

	out.Newline()
	if len(snap.ZeroResultQueries) == 0 {
		out.Status("", "Recent Zero-Result Queries: (none)")
	} else {
		out.Status("", "Recent Zero-Result Queries:")
		for _, z := range snap.ZeroResultQueries {
			out.Statusf("", "  - %q (%s)", z.Query, z.Language)
		}
	}

	if len(snap.LatencyDistribution) > 0 {
		out.Newline()
		out.Status("", "Latency Distribution:")
		for _, l := range latencyLabels {
			if n, ok := snap.LatencyDistribution[l.bucket]; ok {
				out.Statusf("", "  %s: %d", l.label, n)
			}
		}
	}
}
