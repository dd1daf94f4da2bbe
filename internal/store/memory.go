package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/BerylCAtieno/synthsense-agent/internal/chat"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
	"github.com/BerylCAtieno/synthsense-agent/internal/simulation"
)

// Memory keeps JSON copies so callers never share state with the store,
// matching what a round trip through Redis would give them.
type Memory struct {
	mu       sync.RWMutex
	results  map[string][]byte
	cohorts  map[string][]byte
	messages map[string][]chat.Message
}

func NewMemory() *Memory {
	return &Memory{
		results:  map[string][]byte{},
		cohorts:  map[string][]byte{},
		messages: map[string][]chat.Message{},
	}
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

func (m *Memory) SaveResult(_ context.Context, result *simulation.Result) error {
	return m.put(m.results, result.ExperimentID, result)
}

func (m *Memory) Result(_ context.Context, experimentID string) (*simulation.Result, error) {
	var result simulation.Result
	if err := m.get(m.results, experimentID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (m *Memory) SaveCohort(_ context.Context, cohort *persona.Cohort) error {
	return m.put(m.cohorts, cohort.JobID, cohort)
}

func (m *Memory) Cohort(_ context.Context, jobID string) (*persona.Cohort, error) {
	var cohort persona.Cohort
	if err := m.get(m.cohorts, jobID, &cohort); err != nil {
		return nil, err
	}
	return &cohort, nil
}

func (m *Memory) AppendMessage(_ context.Context, conversationID string, msg chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := append(m.messages[conversationID], msg)
	if len(msgs) > maxHistory {
		msgs = msgs[len(msgs)-maxHistory:]
	}
	m.messages[conversationID] = msgs
	return nil
}

func (m *Memory) History(_ context.Context, conversationID string, limit int) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[conversationID]
	if limit < len(msgs) {
		msgs = msgs[len(msgs)-max(limit, 0):]
	}
	return append([]chat.Message{}, msgs...), nil
}

func (m *Memory) put(into map[string][]byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	into[key] = data
	return nil
}

func (m *Memory) get(from map[string][]byte, key string, v any) error {
	m.mu.RLock()
	data, ok := from[key]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}
