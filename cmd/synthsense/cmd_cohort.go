package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
)

var cohortCmd = &cobra.Command{
	Use:   "cohort",
	Short: "Generate a persona cohort for an audience",
	RunE:  runCohort,
}

func runCohort(cmd *cobra.Command, args []string) error {
	audience, _ := cmd.Flags().GetString("audience")
	group, _ := cmd.Flags().GetString("group")
	count, _ := cmd.Flags().GetInt("count")
	outPath, _ := cmd.Flags().GetString("out")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, gw, err := gateway(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		count = cfg.DefaultCohortSize
	}

	cohort := persona.NewGenerator(gw, logger).Generate(ctx, uuid.NewString(), audience, group, count)
	if cohort.Status != persona.CohortCompleted {
		return fmt.Errorf("cohort generation failed: %s", cohort.ErrorMessage)
	}
	logger.Info("cohort generated", zap.String("job_id", cohort.JobID), zap.Int("personas", len(cohort.Personas)))

	if outPath != "" {
		return writeJSON(outPath, cohort)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(cohort)
}
