package simulation

import (
	"time"

	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
)

// Run states
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Sentiment string

const (
	Adopt Sentiment = "adopt"
	Mixed Sentiment = "mixed"
	Not   Sentiment = "not"
)

// Sentiments lists the buckets in report order.
var Sentiments = []Sentiment{Adopt, Mixed, Not}

// PersonaResponse is one persona's reaction to an idea. Attributes are a copy
// of the persona's attributes taken when the response was produced.
type PersonaResponse struct {
	PersonaID    string             `json:"persona_id"`
	Attributes   persona.Attributes `json:"persona_data"`
	ResponseText string             `json:"response_text"`
	Score        int                `json:"score"`
}

type BucketStat struct {
	Count      int    `json:"count"`
	Percentage string `json:"percentage"`
}

type SentimentBreakdown struct {
	Adopt BucketStat `json:"adopt"`
	Mixed BucketStat `json:"mixed"`
	Not   BucketStat `json:"not"`
}

func (b SentimentBreakdown) Bucket(s Sentiment) BucketStat {
	switch s {
	case Adopt:
		return b.Adopt
	case Mixed:
		return b.Mixed
	default:
		return b.Not
	}
}

// PropertyDistribution counts attribute values per sentiment bucket:
// bucket -> attribute -> value -> count.
type PropertyDistribution map[Sentiment]map[string]map[string]int

type Recommendation struct {
	Title          string `json:"title"`
	Recommendation string `json:"recommendation"`
}

// Result is everything one simulation run produced. The caller owns
// persistence.
type Result struct {
	ExperimentID   string               `json:"experiment_id"`
	IdeaText       string               `json:"idea_text"`
	Personas       []persona.Persona    `json:"personas"`
	Responses      []PersonaResponse    `json:"responses"`
	Scores         []int                `json:"scores"`
	Breakdown      SentimentBreakdown   `json:"sentiment_breakdown"`
	Distribution   PropertyDistribution `json:"property_distributions"`
	Title          string               `json:"title"`
	Recommendation string               `json:"recommendation"`
	Status         string               `json:"status"`
	ErrorMessage   string               `json:"error_message,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// Response returns the response for personaID, if the run has one.
func (r *Result) Response(personaID string) (PersonaResponse, bool) {
	for _, resp := range r.Responses {
		if resp.PersonaID == personaID {
			return resp, true
		}
	}
	return PersonaResponse{}, false
}
