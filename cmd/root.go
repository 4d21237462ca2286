package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feasai/viability-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "viability",
	Short: "LLM-backed business project viability analysis",
	Long:  "Scores project descriptions across viability factors by delegating to Gemini, Cerebras or Claude, with fallback, validation and persistent history.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Local .env, if present, feeds the VIABILITY_* environment.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
