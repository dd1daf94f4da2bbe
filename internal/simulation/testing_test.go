package simulation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
	"github.com/BerylCAtieno/synthsense-agent/internal/llm/llmtest"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
)

const validRecommendation = `{"short_title": "Meal Kits For Busy Parents", "recommendation": "Lead with the ten minute prep promise."}`

func isElicit(req llm.Request) bool { return strings.HasPrefix(req.System, "You are a participant") }
func isScore(req llm.Request) bool  { return strings.HasPrefix(req.System, "You are a Likert") }
func isSynth(req llm.Request) bool  { return strings.Contains(req.System, "Senior Business Strategy Consultant") }

var namePattern = regexp.MustCompile(`Persona Name: (\S+)`)

// personaName pulls the persona name out of an elicitation prompt.
func personaName(req llm.Request) string {
	if m := namePattern.FindStringSubmatch(req.User); m != nil {
		return m[1]
	}
	return ""
}

// scriptedGateway answers elicitation with "reaction of <name>", scoring with
// scores[name] (default "3"), and synthesis with recommendation.
func scriptedGateway(scores map[string]string, recommendation string) *llmtest.Gateway {
	return llmtest.New(func(_ context.Context, req llm.Request) (string, error) {
		switch {
		case isElicit(req):
			return fmt.Sprintf("  reaction of %s  ", personaName(req)), nil
		case isScore(req):
			for name, s := range scores {
				if strings.Contains(req.User, "reaction of "+name+"\n") {
					return s, nil
				}
			}
			return "3", nil
		case isSynth(req):
			return recommendation, nil
		}
		return "", fmt.Errorf("unexpected request")
	})
}

func makePersonas(n int) []persona.Persona {
	out := make([]persona.Persona, n)
	for i := range out {
		name := fmt.Sprintf("P%d", i)
		out[i] = persona.Persona{
			ID:   fmt.Sprintf("id-%d", i),
			Name: name,
			Attributes: persona.Attributes{
				{Key: "persona_name", Value: name},
				{Key: "age", Value: float64(20 + i%3)},
				{Key: "income_level", Value: "medium"},
				{Key: "gender", Value: "Female"},
				{Key: "relationship_status", Value: "Single"},
			},
		}
	}
	return out
}
