package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/feasai/viability-engine/internal/stats"
	"github.com/feasai/viability-engine/internal/store"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the dashboard statistics document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("stats"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		dashboard, err := buildDashboard(ctx, st)
		if err != nil {
			return err
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(dashboard)
		}

		formatDashboard(os.Stdout, dashboard)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "emit the document as JSON")
	rootCmd.AddCommand(statsCmd)
}

// buildDashboard gathers the store aggregates and computes the document.
func buildDashboard(ctx context.Context, st store.Store) (*stats.Dashboard, error) {
	now := time.Now().UTC()

	total, err := st.CountAnalyses(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "stats: count analyses")
	}
	daily, err := st.CountsByDay(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, eris.Wrap(err, "stats: counts by day")
	}
	categories, err := st.CountsByCategory(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "stats: counts by category")
	}
	topUsers, err := st.TopUsers(ctx, now.AddDate(0, 0, -30), 10)
	if err != nil {
		return nil, eris.Wrap(err, "stats: top users")
	}
	allScores, err := st.OverallScores(ctx, time.Time{})
	if err != nil {
		return nil, eris.Wrap(err, "stats: overall scores")
	}
	recentScores, err := st.OverallScores(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, eris.Wrap(err, "stats: recent scores")
	}

	return stats.BuildDashboard(stats.Input{
		Total:        total,
		DailyCounts:  daily,
		Categories:   categories,
		TopUsers:     topUsers,
		AllScores:    allScores,
		RecentScores: recentScores,
		Now:          now,
	})
}

// formatDashboard writes a human-readable rendering to w.
func formatDashboard(out io.Writer, d *stats.Dashboard) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Total analyses:\t%d\n", d.TotalAnalyses)
	_, _ = fmt.Fprintf(w, "Conversion rate:\t%.1f%%\n", d.ConversionRate)
	_, _ = fmt.Fprintf(w, "Distribution:\thigh %.1f%% / medium %.1f%% / low %.1f%%\n",
		d.Distribution.High, d.Distribution.Medium, d.Distribution.Low)
	_, _ = fmt.Fprintf(w, "Last 30 days:\t%d analyses, mean %.1f, median %.1f, min %.0f, max %.0f\n",
		d.Summary.Count, d.Summary.Mean, d.Summary.Median, d.Summary.Min, d.Summary.Max)

	_, _ = fmt.Fprintln(w, "\nDAY\tCOUNT")
	for _, p := range d.Daily {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", p.Day, p.Count)
	}

	if len(d.Categories) > 0 {
		_, _ = fmt.Fprintln(w, "\nCATEGORY\tCOUNT")
		for _, c := range d.Categories {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", c.Category, c.Count)
		}
	}

	if len(d.TopUsers) > 0 {
		_, _ = fmt.Fprintln(w, "\nUSER\tCOUNT")
		for _, u := range d.TopUsers {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", u.User, u.Count)
		}
	}

	_ = w.Flush()
}
