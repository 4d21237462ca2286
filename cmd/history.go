package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored analyses",
	Long:  "Commands for listing, viewing and deleting analysis records.",
}

// -- history list --

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis records, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		user, _ := cmd.Flags().GetString("user")
		category, _ := cmd.Flags().GetString("category")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		records, err := st.ListAnalyses(ctx, store.AnalysisFilter{
			User:     user,
			Category: model.Category(category),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return eris.Wrap(err, "history list")
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses found.")
			return nil
		}

		formatAnalysisList(os.Stdout, records)
		return nil
	},
}

// -- history show --

var historyShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show full details of one analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		record, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "history show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

// -- history delete --

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <analysis-id>",
	Short: "Delete one analysis record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.DeleteAnalysis(ctx, args[0]); err != nil {
			return eris.Wrap(err, "history delete")
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	historyListCmd.Flags().String("user", "", "filter by requesting user")
	historyListCmd.Flags().String("category", "", "filter by category")
	historyListCmd.Flags().Int("limit", 50, "max number of records to display")
	historyListCmd.Flags().Int("offset", 0, "records to skip")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// formatAnalysisList writes a tabular listing to w.
func formatAnalysisList(out io.Writer, records []model.Analysis) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUSER\tCATEGORY\tPROVIDER\tSCORE\tVERDICT\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t--------\t-----\t-------\t-------")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%s\t%s\n",
			truncateID(r.ID),
			r.User,
			r.Category,
			r.Provider,
			r.Result.OverallScore,
			r.Result.Verdict,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
