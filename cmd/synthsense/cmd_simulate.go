package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
	"github.com/BerylCAtieno/synthsense-agent/internal/simulation"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulation against a persona file",
	Long: `Pitches --idea to every persona in --personas and prints a markdown report.

The persona file may hold a JSON array of personas or a cohort saved by
"synthsense cohort".`,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	idea, _ := cmd.Flags().GetString("idea")
	personaPath, _ := cmd.Flags().GetString("personas")
	experimentID, _ := cmd.Flags().GetString("experiment-id")
	outPath, _ := cmd.Flags().GetString("out")

	personas, err := loadPersonas(personaPath)
	if err != nil {
		return err
	}
	if experimentID == "" {
		experimentID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, gw, err := gateway(ctx)
	if err != nil {
		return err
	}

	sim := simulation.NewSimulator(gw, cfg.BatchSize, logger)
	sim.OnProgress(func(done, total int) {
		logger.Info("progress", zap.Int("done", done), zap.Int("total", total))
	})
	result := sim.Run(ctx, experimentID, idea, personas)

	if outPath != "" {
		if err := writeJSON(outPath, result); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), simulation.FormatReport(result))

	if result.Status != simulation.StatusCompleted {
		return fmt.Errorf("simulation %s failed: %s", experimentID, result.ErrorMessage)
	}
	return nil
}

// loadPersonas reads a persona array or an object with a "personas" field.
// Personas without an id get one.
func loadPersonas(path string) ([]persona.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas: %w", err)
	}

	var personas []persona.Persona
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Personas []persona.Persona `json:"personas"`
		}
		err = json.Unmarshal(trimmed, &wrapped)
		personas = wrapped.Personas
	} else {
		err = json.Unmarshal(data, &personas)
	}
	if err != nil {
		return nil, fmt.Errorf("parse personas %s: %w", path, err)
	}
	if len(personas) == 0 {
		return nil, fmt.Errorf("no personas in %s", path)
	}

	for i := range personas {
		if personas[i].ID == "" {
			personas[i].ID = uuid.NewString()
		}
	}
	return personas, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
