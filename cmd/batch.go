package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/feasai/viability-engine/internal/model"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze project descriptions from a CSV file",
	Long:  "Reads rows of user,description[,provider] from a CSV file and runs analyses concurrently. Individual failures are logged and counted, never abort the batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := os.Open(batchFile)
		if err != nil {
			return eris.Wrapf(err, "open batch file %s", batchFile)
		}
		defer f.Close()

		requests, err := readBatchCSV(f)
		if err != nil {
			return err
		}

		return processBatch(ctx, env, requests, batchLimit, cfg.Batch.MaxConcurrent)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "CSV file with user,description[,provider] rows (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of rows to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// readBatchCSV parses user,description[,provider] rows. A header row naming
// the first column "user" is skipped; blank rows are ignored.
func readBatchCSV(r io.Reader) ([]model.AnalysisRequest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var out []model.AnalysisRequest
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv row")
		}
		if len(row) < 2 {
			continue
		}

		user := strings.TrimSpace(row[0])
		description := strings.TrimSpace(row[1])
		if user == "" || description == "" {
			continue
		}
		if len(out) == 0 && strings.EqualFold(user, "user") {
			continue // header
		}

		req := model.AnalysisRequest{User: user, Description: description}
		if len(row) > 2 {
			if p, ok := model.ParseProvider(row[2]); ok {
				req.PreferredProvider = p
			}
		}
		out = append(out, req)
	}
	return out, nil
}

// processBatch applies limit, then fans requests out over a bounded worker
// pool. Failed rows are counted, not fatal.
func processBatch(ctx context.Context, env *env, requests []model.AnalysisRequest, limit, concurrency int) error {
	if len(requests) == 0 {
		zap.L().Info("no batch rows found")
		return nil
	}

	if limit > 0 && len(requests) > limit {
		requests = requests[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("rows", len(requests)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, req := range requests {
		g.Go(func() error {
			log := zap.L().With(zap.String("user", req.User))

			record, err := runAnalysis(gctx, env, req)
			if err != nil {
				failed.Add(1)
				log.Error("analysis failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("analysis complete",
				zap.String("id", record.ID),
				zap.Float64("overall_score", record.Result.OverallScore),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
