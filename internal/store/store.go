// Package store persists simulation results, persona cohorts and chat
// history. Redis backs production; Memory serves tests and Redis-less runs.
package store

import (
	"context"
	"errors"

	"github.com/BerylCAtieno/synthsense-agent/internal/chat"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
	"github.com/BerylCAtieno/synthsense-agent/internal/simulation"
)

var ErrNotFound = errors.New("not found")

// maxHistory caps the stored messages per conversation.
const maxHistory = 200

type Store interface {
	chat.HistoryStore

	SaveResult(ctx context.Context, result *simulation.Result) error
	Result(ctx context.Context, experimentID string) (*simulation.Result, error)

	SaveCohort(ctx context.Context, cohort *persona.Cohort) error
	Cohort(ctx context.Context, jobID string) (*persona.Cohort, error)

	Ping(ctx context.Context) error
	Close() error
}
