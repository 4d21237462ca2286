package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feasai/viability-engine/internal/model"
)

var (
	analyzeUser        string
	analyzeDescription string
	analyzeFactors     []string
	analyzeProvider    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one project description",
	Long:  "Runs a viability analysis for a single project description, stores the record and prints it as JSON. The description comes from --description or stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		description := analyzeDescription
		if description == "" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return eris.Wrap(err, "read description from stdin")
			}
			description = strings.TrimSpace(string(data))
		}

		req := model.AnalysisRequest{
			User:        analyzeUser,
			Description: description,
		}
		for _, name := range analyzeFactors {
			f, ok := model.ParseFactor(name)
			if !ok {
				return eris.Errorf("unknown factor: %s", name)
			}
			req.Factors = append(req.Factors, f)
		}
		if analyzeProvider != "" {
			p, ok := model.ParseProvider(analyzeProvider)
			if !ok {
				return eris.Errorf("unknown provider: %s", analyzeProvider)
			}
			req.PreferredProvider = p
		}

		record, err := runAnalysis(ctx, env, req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

// runAnalysis executes one request end-to-end: engine, classifier, store.
func runAnalysis(ctx context.Context, env *env, req model.AnalysisRequest) (*model.Analysis, error) {
	result, err := env.Engine.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	record := &model.Analysis{
		User:        req.User,
		Description: strings.TrimSpace(req.Description),
		Category:    env.Classifier.Classify(req.Description),
		Provider:    result.ProviderUsed,
		Result:      *result,
		CreatedAt:   result.CreatedAt,
	}
	if err := env.Store.InsertAnalysis(ctx, record); err != nil {
		return nil, err
	}

	zap.L().Info("analysis stored",
		zap.String("id", record.ID),
		zap.String("user", record.User),
		zap.String("category", string(record.Category)),
		zap.Float64("overall_score", record.Result.OverallScore),
	)
	return record, nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "", "requesting user (required)")
	analyzeCmd.Flags().StringVar(&analyzeDescription, "description", "", "project description (defaults to stdin)")
	analyzeCmd.Flags().StringSliceVar(&analyzeFactors, "factors", nil, "factors to score (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "", "preferred provider (gemini|cerebras|claude)")
	_ = analyzeCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(analyzeCmd)
}
