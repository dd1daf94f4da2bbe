// Package simulation runs a product idea past a panel of personas and turns
// their reactions into a sentiment report with a recommendation.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
)

var (
	ErrNoPersonas = errors.New("no personas supplied")
	ErrNoIdea     = errors.New("idea text is empty")
)

// Simulator sequences the scheduler, the aggregator and the synthesizer.
// It keeps no state between runs.
type Simulator struct {
	scheduler   *Scheduler
	synthesizer *Synthesizer
	logger      *zap.Logger
	now         func() time.Time
}

func NewSimulator(gateway llm.Gateway, batchSize int, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		scheduler:   NewScheduler(NewPipeline(gateway, logger), batchSize, logger),
		synthesizer: NewSynthesizer(gateway, logger),
		logger:      logger,
		now:         time.Now,
	}
}

// OnProgress installs a per-chunk progress callback.
func (s *Simulator) OnProgress(fn ProgressFunc) {
	s.scheduler.OnProgress = fn
}

// Run always returns a result. Per-persona failures are absorbed into the
// responses; anything else ends the run with StatusFailed.
func (s *Simulator) Run(ctx context.Context, experimentID, idea string, personas []persona.Persona) (result *Result) {
	log := s.logger.With(zap.String("experiment_id", experimentID))
	log.Info("STATE: simulation starting", zap.Int("personas", len(personas)))

	defer func() {
		if r := recover(); r != nil {
			result = s.failed(experimentID, idea, personas, fmt.Errorf("simulation panicked: %v", r))
			log.Error("STATE: simulation failed", zap.Any("panic", r))
		}
	}()

	result, err := s.run(ctx, log, experimentID, idea, personas)
	if err != nil {
		log.Error("STATE: simulation failed", zap.Error(err))
		return s.failed(experimentID, idea, personas, err)
	}

	log.Info("STATE: simulation completed",
		zap.Int("adopt", result.Breakdown.Adopt.Count),
		zap.Int("mixed", result.Breakdown.Mixed.Count),
		zap.Int("not", result.Breakdown.Not.Count))
	return result
}

func (s *Simulator) run(ctx context.Context, log *zap.Logger, experimentID, idea string, personas []persona.Persona) (*Result, error) {
	if len(personas) == 0 {
		return nil, ErrNoPersonas
	}
	if strings.TrimSpace(idea) == "" {
		return nil, ErrNoIdea
	}
	if missing := MissingDemographics(personas); len(missing) > 0 {
		log.Warn("personas missing demographic fields", zap.Any("missing", missing))
	}

	responses := s.scheduler.Run(ctx, idea, personas)
	log.Info("STATE: responses generated", zap.Int("responses", len(responses)))

	scores := make([]int, len(responses))
	for i, r := range responses {
		scores[i] = r.Score
	}
	breakdown := Breakdown(scores)
	distribution := Distribute(responses)

	rec, err := s.synthesizer.Recommend(ctx, idea, breakdown)
	if err != nil {
		return nil, err
	}

	return &Result{
		ExperimentID:   experimentID,
		IdeaText:       idea,
		Personas:       personas,
		Responses:      responses,
		Scores:         scores,
		Breakdown:      breakdown,
		Distribution:   distribution,
		Title:          rec.Title,
		Recommendation: rec.Recommendation,
		Status:         StatusCompleted,
		CreatedAt:      s.now().UTC(),
	}, nil
}

func (s *Simulator) failed(experimentID, idea string, personas []persona.Persona, err error) *Result {
	return &Result{
		ExperimentID: experimentID,
		IdeaText:     idea,
		Personas:     personas,
		Responses:    []PersonaResponse{},
		Scores:       []int{},
		Breakdown:    Breakdown(nil),
		Distribution: PropertyDistribution{},
		Title:        FallbackTitle,
		Status:       StatusFailed,
		ErrorMessage: err.Error(),
		CreatedAt:    s.now().UTC(),
	}
}
