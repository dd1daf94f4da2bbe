package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
	"github.com/BerylCAtieno/synthsense-agent/internal/llm/llmtest"
)

func batchJSON(t *testing.T, n int) string {
	t.Helper()
	batch := make([]map[string]any, n)
	for i := range batch {
		batch[i] = map[string]any{
			"persona_name":        fmt.Sprintf("Person %d", i),
			"age":                 20 + i,
			"income_level":        "medium",
			"relationship_status": "Single",
			"sex":                 "Female",
		}
	}
	out, err := json.Marshal(batch)
	require.NoError(t, err)
	return string(out)
}

func TestParseBatch(t *testing.T) {
	t.Run("plain array", func(t *testing.T) {
		batch, err := ParseBatch(batchJSON(t, 10), 10)
		require.NoError(t, err)
		assert.Len(t, batch, 10)
	})

	t.Run("fenced array", func(t *testing.T) {
		batch, err := ParseBatch("Here you go:\n```json\n"+batchJSON(t, 10)+"\n```", 10)
		require.NoError(t, err)
		assert.Len(t, batch, 10)
	})

	t.Run("trims within tolerance", func(t *testing.T) {
		batch, err := ParseBatch(batchJSON(t, 11), 10)
		require.NoError(t, err)
		assert.Len(t, batch, 10)
	})

	t.Run("too few", func(t *testing.T) {
		_, err := ParseBatch(batchJSON(t, 5), 10)
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseBatch("sorry, I can't", 10)
		assert.Error(t, err)
	})
}

func TestGenerator_Generate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	gw := llmtest.New(func(_ context.Context, req llm.Request) (string, error) {
		return batchJSON(t, 10), nil
	})

	cohort := NewGenerator(gw, nil).Generate(context.Background(), "job-1", "urban cyclists", "cyclists", 65)

	require.Equal(t, CohortCompleted, cohort.Status, cohort.ErrorMessage)
	assert.Len(t, cohort.Personas, 65)
	assert.Len(t, gw.Requests(), 7)
	assert.LessOrEqual(t, gw.MaxInFlight(), 5)

	ids := map[string]bool{}
	for _, p := range cohort.Personas {
		assert.NotEmpty(t, p.ID)
		assert.False(t, ids[p.ID])
		ids[p.ID] = true
		assert.True(t, strings.HasPrefix(p.Name, "Person "))
	}

	req := gw.Requests()[0]
	assert.Contains(t, req.System, `"urban cyclists"`)
	assert.Equal(t, float32(0.8), req.Temperature)
}

func TestGenerator_TopsUpShortBatches(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	gw := llmtest.New(func(_ context.Context, req llm.Request) (string, error) {
		return batchJSON(t, 9), nil
	})

	cohort := NewGenerator(gw, nil).Generate(context.Background(), "job-3", "night owls", "", 10)

	require.Equal(t, CohortCompleted, cohort.Status, cohort.ErrorMessage)
	assert.Len(t, cohort.Personas, 10)
	require.Len(t, gw.Requests(), 2)
	assert.Contains(t, gw.Requests()[1].User, "batch 2.")

	cohort = NewGenerator(gw, nil).Generate(context.Background(), "job-4", "night owls", "", 50)
	require.Equal(t, CohortCompleted, cohort.Status, cohort.ErrorMessage)
	assert.Len(t, cohort.Personas, 50)
}

func TestGenerator_BatchFailureFailsCohort(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	gw := llmtest.New(func(_ context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.User, "batch 2.") {
			return "", errors.New("quota exceeded")
		}
		return batchJSON(t, 10), nil
	})

	cohort := NewGenerator(gw, nil).Generate(context.Background(), "job-2", "students", "students", 30)

	assert.Equal(t, CohortFailed, cohort.Status)
	assert.Contains(t, cohort.ErrorMessage, "quota exceeded")
	assert.Empty(t, cohort.Personas)
}

func TestGenerator_RejectsBadInput(t *testing.T) {
	g := NewGenerator(llmtest.Reply("[]"), nil)

	assert.Equal(t, CohortFailed, g.Generate(context.Background(), "j", "", "g", 10).Status)
	assert.Equal(t, CohortFailed, g.Generate(context.Background(), "j", "students", "g", 0).Status)
}
