package agent

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAgentCard(t *testing.T) {
	require.NoError(t, LoadAgentCard())

	var card struct {
		Name      string            `json:"name"`
		Endpoints map[string]string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(AgentCardData, &card))
	assert.Equal(t, "SynthSense", card.Name)
	assert.Equal(t, "/a2a/simulate", card.Endpoints["a2a"])
}

func TestLoadAgentCard_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, LoadAgentCard())
			assert.NotEmpty(t, AgentCardData)
		}()
	}
	wg.Wait()
}

func TestValidate(t *testing.T) {
	assert.Error(t, validate([]byte(`{"name": "x"}`)))
	assert.Error(t, validate([]byte(`not json`)))
	assert.NoError(t, validate(agentCard))
}
