package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
)

const (
	FallbackTitle          = "Experiment"
	FallbackRecommendation = "No recommendation available"

	minRecommendationWords = 80
	maxRecommendationWords = 140
)

// Synthesizer turns aggregate sentiment into a titled recommendation.
type Synthesizer struct {
	llm    llm.Gateway
	logger *zap.Logger
}

func NewSynthesizer(gateway llm.Gateway, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{llm: gateway, logger: logger}
}

// Recommend fails only when the model call fails. A reply that is not the
// requested JSON object is used verbatim as the recommendation.
func (s *Synthesizer) Recommend(ctx context.Context, idea string, breakdown SentimentBreakdown) (Recommendation, error) {
	out, err := s.llm.Complete(ctx, llm.Request{
		System:      recommendationContext(idea, breakdown),
		User:        `Output MUST be a single JSON object with EXACTLY two keys and types: {"short_title": string, "recommendation": string}. Do NOT include arrays, additional keys, comments, markdown code fences, or any text outside the JSON. short_title is a concise experiment title (max 8 words). recommendation should strictly follow the **Action Mandate** and be kept between 80-140 words.`,
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		return Recommendation{}, fmt.Errorf("generate recommendation: %w", err)
	}

	rec := ParseRecommendation(out)

	// The word band is asked of the model, not enforced.
	if words := len(strings.Fields(rec.Recommendation)); words < minRecommendationWords || words > maxRecommendationWords {
		s.logger.Warn("recommendation outside requested length",
			zap.Int("words", words),
			zap.Int("min", minRecommendationWords),
			zap.Int("max", maxRecommendationWords))
	}
	return rec, nil
}

// ParseRecommendation reads {"short_title", "recommendation"} from text. Code
// fences are tolerated. Anything else falls back to the fixed title and the
// trimmed raw text.
func ParseRecommendation(text string) Recommendation {
	raw := strings.TrimSpace(text)

	var fields map[string]any
	if err := json.Unmarshal([]byte(persona.Unfence(raw)), &fields); err != nil || fields == nil {
		return Recommendation{Title: FallbackTitle, Recommendation: raw}
	}

	rec := Recommendation{Title: FallbackTitle, Recommendation: FallbackRecommendation}
	if title, ok := fields["short_title"].(string); ok {
		rec.Title = title
	}
	if body, ok := fields["recommendation"].(string); ok {
		rec.Recommendation = body
	}
	return rec
}

func recommendationContext(idea string, b SentimentBreakdown) string {
	lines := make([]string, 0, len(Sentiments))
	for _, s := range Sentiments {
		stat := b.Bucket(s)
		label := strings.ToUpper(string(s[:1])) + string(s[1:])
		lines = append(lines, fmt.Sprintf("- %s: %s%% (%d responses)", label, stat.Percentage, stat.Count))
	}

	return fmt.Sprintf(`You are a **Senior Business Strategy Consultant**. Your task is to synthesize the provided market research data into a single, highly **actionable growth recommendation**.

Product Idea:
"""
%s
"""

Market Sentiment Breakdown:
%s

### Action Mandate (Strictly follow these requirements):
1. **Identify Lead Feature:** Name the best single feature or key selling point to anchor all marketing efforts.
2. **Improvement Plan:** If the overall 'Adopt' percentage is below 50%%, propose one concrete feature or positioning improvement.
3. **Targets & Pricing:** Specify a measurable onboarding target and suggest a specific pricing approach to test.
4. **Success Metrics:** List 2-3 specific, instrumentable success metrics.

The final recommendation MUST be a continuous paragraph, strictly between 80 and 140 words.`, idea, strings.Join(lines, "\n"))
}
