package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/store"
)

var (
	exportOut   string
	exportUser  string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analysis history to an xlsx workbook",
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

		records, err := st.ListAnalyses(ctx, store.AnalysisFilter{
			User:  exportUser,
			Limit: exportLimit,
		})
		if err != nil {
			return eris.Wrap(err, "export: list analyses")
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses to export.")
			return nil
		}

		if err := writeWorkbook(exportOut, records); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "exported %d analyses to %s\n", len(records), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "analyses.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportUser, "user", "", "filter by requesting user")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 10000, "max number of records to export")
	rootCmd.AddCommand(exportCmd)
}

// writeWorkbook renders records into a single-sheet workbook, one analysis
// per row with per-factor score columns.
func writeWorkbook(path string, records []model.Analysis) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Analyses")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "User", "Category", "Provider", "Model", "Overall", "Verdict", "Created"} {
		header.AddCell().Value = h
	}
	for _, k := range model.KnownFactors {
		header.AddCell().Value = model.FactorLabel(k)
	}
	header.AddCell().Value = "Description"
	header.AddCell().Value = "Recommendations"

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().Value = r.ID
		row.AddCell().Value = r.User
		row.AddCell().Value = string(r.Category)
		row.AddCell().Value = string(r.Provider)
		row.AddCell().Value = r.Result.Model
		row.AddCell().SetFloat(r.Result.OverallScore)
		row.AddCell().Value = string(r.Result.Verdict)
		row.AddCell().Value = r.CreatedAt.Format("2006-01-02 15:04:05")

		for _, k := range model.KnownFactors {
			cell := row.AddCell()
			if v := r.Result.Score(k); v >= 0 {
				cell.SetFloat(v)
			}
		}

		row.AddCell().Value = r.Description
		row.AddCell().Value = strings.Join(r.Result.Recommendations, "; ")
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
