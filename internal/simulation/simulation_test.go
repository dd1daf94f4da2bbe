package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
	"github.com/BerylCAtieno/synthsense-agent/internal/llm/llmtest"
)

func newTestSimulator(gw llm.Gateway) *Simulator {
	s := NewSimulator(gw, 2, nil)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestSimulator_Run(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	gw := scriptedGateway(map[string]string{"P0": "5", "P1": "3", "P2": "1"}, validRecommendation)
	personas := makePersonas(3)

	var progress []int
	sim := newTestSimulator(gw)
	sim.OnProgress(func(done, _ int) { progress = append(progress, done) })

	result := sim.Run(context.Background(), "exp-1", "A meal kit", personas)

	require.Equal(t, StatusCompleted, result.Status, result.ErrorMessage)
	assert.Equal(t, "exp-1", result.ExperimentID)
	assert.Equal(t, personas, result.Personas)
	assert.Equal(t, []int{5, 3, 1}, result.Scores)
	require.Len(t, result.Responses, 3)
	assert.Equal(t, "reaction of P1", result.Responses[1].ResponseText)
	assert.Equal(t, BucketStat{Count: 1, Percentage: "33.3"}, result.Breakdown.Adopt)
	assert.Equal(t, BucketStat{Count: 1, Percentage: "33.3"}, result.Breakdown.Mixed)
	assert.Equal(t, BucketStat{Count: 1, Percentage: "33.3"}, result.Breakdown.Not)
	assert.Equal(t, map[string]int{"20": 1}, result.Distribution[Adopt]["age"])
	assert.Equal(t, "Meal Kits For Busy Parents", result.Title)
	assert.Equal(t, "Lead with the ten minute prep promise.", result.Recommendation)
	assert.Empty(t, result.ErrorMessage)
	assert.Equal(t, []int{2, 3}, progress)
	assert.Len(t, gw.Requests(), 7)
}

func TestSimulator_PersonaFailuresStillComplete(t *testing.T) {
	gw := llmtest.New(func(_ context.Context, req llm.Request) (string, error) {
		switch {
		case isElicit(req):
			return "", errors.New("boom")
		case isSynth(req):
			return "not json", nil
		}
		return "5", nil
	})

	result := newTestSimulator(gw).Run(context.Background(), "exp-2", "idea", makePersonas(4))

	require.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, []int{3, 3, 3, 3}, result.Scores)
	for _, r := range result.Responses {
		assert.Equal(t, ErrorResponseText, r.ResponseText)
	}
	assert.Equal(t, 4, result.Breakdown.Mixed.Count)
	assert.Equal(t, FallbackTitle, result.Title)
	assert.Equal(t, "not json", result.Recommendation)
}

func TestSimulator_SystemicFailures(t *testing.T) {
	failingSynth := llmtest.New(func(_ context.Context, req llm.Request) (string, error) {
		if isSynth(req) {
			return "", &llm.ProviderError{Provider: "openai", Err: errors.New("invalid api key")}
		}
		return "4", nil
	})

	tests := []struct {
		name     string
		gw       llm.Gateway
		idea     string
		personas int
		wantErr  string
	}{
		{"no personas", scriptedGateway(nil, validRecommendation), "idea", 0, ErrNoPersonas.Error()},
		{"no idea", scriptedGateway(nil, validRecommendation), "   ", 2, ErrNoIdea.Error()},
		{"recommendation call fails", failingSynth, "idea", 2, "invalid api key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newTestSimulator(tt.gw).Run(context.Background(), "exp-3", tt.idea, makePersonas(tt.personas))

			assert.Equal(t, StatusFailed, result.Status)
			assert.Contains(t, result.ErrorMessage, tt.wantErr)
			assert.Empty(t, result.Responses)
			assert.Empty(t, result.Scores)
			assert.Equal(t, "exp-3", result.ExperimentID)
		})
	}
}

func TestSimulator_PanicBecomesFailure(t *testing.T) {
	gw := llmtest.New(func(_ context.Context, req llm.Request) (string, error) {
		if isSynth(req) {
			panic("nil client")
		}
		return "2", nil
	})

	result := newTestSimulator(gw).Run(context.Background(), "exp-4", "idea", makePersonas(1))

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "nil client")
}

func TestResult_JSONShape(t *testing.T) {
	result := newTestSimulator(scriptedGateway(map[string]string{"P0": "4"}, validRecommendation)).
		Run(context.Background(), "exp-5", "idea", makePersonas(1))

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "completed", decoded["status"])
	assert.Equal(t, map[string]any{"count": float64(1), "percentage": "100.0"},
		decoded["sentiment_breakdown"].(map[string]any)["adopt"])
	assert.Contains(t, string(raw), `"persona_data":{"persona_name":"P0","age":20`)

	resp, ok := result.Response("id-0")
	assert.True(t, ok)
	assert.Equal(t, 4, resp.Score)
}

func TestFormatReport(t *testing.T) {
	result := newTestSimulator(scriptedGateway(map[string]string{"P0": "5", "P1": "5"}, validRecommendation)).
		Run(context.Background(), "exp-6", "A meal kit", makePersonas(2))

	report := FormatReport(result)
	assert.Contains(t, report, "# Meal Kits For Busy Parents")
	assert.Contains(t, report, "- adopt: 100.0% (2)")
	assert.Contains(t, report, "- age: 20 (1), 21 (1)")

	assert.Equal(t, "Simulation failed: no personas supplied",
		FormatReport(newTestSimulator(scriptedGateway(nil, "")).Run(context.Background(), "x", "idea", nil)))
}
