package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BerylCAtieno/synthsense-agent/internal/config"
	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
)

var (
	// Global flags
	verbose bool
	timeout time.Duration

	logger *zap.Logger

	// newGateway is swapped out in tests.
	newGateway = llm.New
)

var rootCmd = &cobra.Command{
	Use:   "synthsense",
	Short: "SynthSense - synthetic consumer research from the command line",
	Long: `SynthSense pitches a product idea to a panel of LLM-simulated personas,
rates each reaction on a 1-5 purchase-intent scale and summarises the result.

Provider and model come from the same environment variables as the server
(LLM_PROVIDER, MODEL, OPENAI_API_KEY, GEMINI_API_KEY, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Minute, "Overall run timeout")

	simulateCmd.Flags().String("idea", "", "Product or business idea to test (required)")
	simulateCmd.Flags().String("personas", "", "JSON file with a persona array or a saved cohort (required)")
	simulateCmd.Flags().String("experiment-id", "", "Experiment id (default: random)")
	simulateCmd.Flags().String("out", "", "Write the full result JSON to this file")
	simulateCmd.MarkFlagRequired("idea")
	simulateCmd.MarkFlagRequired("personas")

	cohortCmd.Flags().String("audience", "", "Audience description (required)")
	cohortCmd.Flags().String("group", "", "Optional persona group label")
	cohortCmd.Flags().Int("count", 0, "Number of personas (default: DEFAULT_COHORT_SIZE)")
	cohortCmd.Flags().String("out", "", "Write the cohort JSON to this file instead of stdout")
	cohortCmd.MarkFlagRequired("audience")

	rootCmd.AddCommand(simulateCmd, cohortCmd)
}

// gateway loads configuration and builds the LLM gateway for a command.
func gateway(ctx context.Context) (*config.Config, llm.Gateway, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	gw, err := newGateway(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gw, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
