// Package agent holds the A2A agent card served at /.well-known/agent.json.
package agent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed agent.json
var agentCard []byte

// AgentCardData is the validated card, populated by the first LoadAgentCard
// call. It is never written afterwards.
var AgentCardData []byte

var (
	loadOnce sync.Once
	loadErr  error
)

// LoadAgentCard checks the embedded card is well-formed JSON carrying the
// fields A2A clients look for. Only the first call does the work; later calls
// return its outcome.
func LoadAgentCard() error {
	loadOnce.Do(func() {
		loadErr = validate(agentCard)
		if loadErr == nil {
			AgentCardData = agentCard
		}
	})
	return loadErr
}

func validate(data []byte) error {
	var card map[string]any
	if err := json.Unmarshal(data, &card); err != nil {
		return fmt.Errorf("parse agent card: %w", err)
	}
	for _, field := range []string{"name", "description", "version", "capabilities", "endpoints"} {
		if _, ok := card[field]; !ok {
			return fmt.Errorf("agent card missing %q", field)
		}
	}
	return nil
}
