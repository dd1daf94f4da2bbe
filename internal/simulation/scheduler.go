package simulation

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
)

const DefaultBatchSize = 10

// ProgressFunc is called after each chunk with the number of personas
// processed so far.
type ProgressFunc func(done, total int)

// Scheduler runs the pipeline over a persona list in fixed-size chunks. All
// personas in a chunk run concurrently and the next chunk starts only when
// the whole chunk has finished, so at most batchSize calls are in flight.
type Scheduler struct {
	pipeline   *Pipeline
	batchSize  int
	logger     *zap.Logger
	OnProgress ProgressFunc
}

func NewScheduler(pipeline *Pipeline, batchSize int, logger *zap.Logger) *Scheduler {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{pipeline: pipeline, batchSize: batchSize, logger: logger}
}

// Run returns exactly one response per persona, in input order.
func (s *Scheduler) Run(ctx context.Context, idea string, personas []persona.Persona) []PersonaResponse {
	total := len(personas)
	results := make([]PersonaResponse, total)
	batches := (total + s.batchSize - 1) / s.batchSize

	s.logger.Info("processing personas",
		zap.Int("personas", total),
		zap.Int("batch_size", s.batchSize))

	for start := 0; start < total; start += s.batchSize {
		end := min(start+s.batchSize, total)
		batch := start/s.batchSize + 1

		var eg errgroup.Group
		for i := start; i < end; i++ {
			eg.Go(func() error {
				results[i] = s.pipeline.Respond(ctx, personas[i], idea)
				return nil
			})
		}
		_ = eg.Wait()

		s.logger.Info("batch complete",
			zap.Int("batch", batch),
			zap.Int("batches", batches),
			zap.Int("processed", end),
			zap.Int("total", total))
		if s.OnProgress != nil {
			s.OnProgress(end, total)
		}
	}

	return results
}
