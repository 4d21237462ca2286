package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/store"
)

var (
	reclassifyDryRun bool
	reclassifyForce  bool
	reclassifyLimit  int
)

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Re-run the classifier over stored analyses",
	Long:  "Recomputes the category of stored records from their descriptions. By default only records whose category is missing or unrecognized are rewritten; --force reclassifies everything. --dry-run reports without mutating.",
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

		cls, err := initClassifier()
		if err != nil {
			return err
		}

		records, err := st.ListAnalyses(ctx, store.AnalysisFilter{Limit: reclassifyLimit})
		if err != nil {
			return eris.Wrap(err, "reclassify: list analyses")
		}

		var examined, changed int
		for _, r := range records {
			examined++

			current := r.Category
			next := cls.Classify(r.Description)
			if next == current {
				continue
			}
			if !reclassifyForce && current != "" && model.KnownCategory(current) {
				continue
			}

			changed++
			if reclassifyDryRun {
				fmt.Printf("%s: %s -> %s (dry run)\n", truncateID(r.ID), current, next)
				continue
			}

			if err := st.UpdateCategory(ctx, r.ID, next); err != nil {
				return eris.Wrapf(err, "reclassify: update %s", r.ID)
			}
			zap.L().Info("record reclassified",
				zap.String("id", r.ID),
				zap.String("from", string(current)),
				zap.String("to", string(next)),
			)
		}

		fmt.Fprintf(os.Stderr, "examined %d, changed %d", examined, changed)
		if reclassifyDryRun {
			fmt.Fprint(os.Stderr, " (dry run, nothing written)")
		}
		fmt.Fprintln(os.Stderr)
		return nil
	},
}

func init() {
	reclassifyCmd.Flags().BoolVar(&reclassifyDryRun, "dry-run", false, "report changes without writing them")
	reclassifyCmd.Flags().BoolVar(&reclassifyForce, "force", false, "reclassify records with a valid category too")
	reclassifyCmd.Flags().IntVar(&reclassifyLimit, "limit", 10000, "max number of records to examine")
	rootCmd.AddCommand(reclassifyCmd)
}
