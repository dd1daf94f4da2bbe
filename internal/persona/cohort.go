package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
)

const (
	CohortCompleted = "completed"
	CohortFailed    = "failed"
)

const (
	cohortBatchSize         = 10
	cohortConcurrentBatches = 5
	cohortExtraRounds       = 2
)

// Cohort is a generated persona group.
type Cohort struct {
	JobID        string    `json:"job_id"`
	Audience     string    `json:"audience_description"`
	Group        string    `json:"persona_group"`
	Personas     []Persona `json:"personas"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

type Generator struct {
	llm    llm.Gateway
	logger *zap.Logger
}

func NewGenerator(gateway llm.Gateway, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{llm: gateway, logger: logger}
}

// Generate asks the model for total personas in batches of ten, five batches
// at a time, topping up until exactly total personas are collected. Any
// batch that cannot be parsed fails the whole cohort.
func (g *Generator) Generate(ctx context.Context, jobID, audience, group string, total int) *Cohort {
	cohort := &Cohort{JobID: jobID, Audience: audience, Group: group, Personas: []Persona{}}

	personas, err := g.generate(ctx, audience, total)
	if err != nil {
		g.logger.Error("cohort generation failed", zap.String("job_id", jobID), zap.Error(err))
		cohort.Status = CohortFailed
		cohort.ErrorMessage = err.Error()
		return cohort
	}

	cohort.Personas = personas
	cohort.Status = CohortCompleted
	return cohort
}

func (g *Generator) generate(ctx context.Context, audience string, total int) ([]Persona, error) {
	if strings.TrimSpace(audience) == "" {
		return nil, fmt.Errorf("audience description is required")
	}
	if total < 1 {
		return nil, fmt.Errorf("total personas must be positive, got %d", total)
	}

	// Batches may come back up to 10% short, so rounds continue until the
	// total is met, with a couple of rounds beyond the plan to cover that.
	totalBatches := (total + cohortBatchSize - 1) / cohortBatchSize
	maxRounds := (totalBatches+cohortConcurrentBatches-1)/cohortConcurrentBatches + cohortExtraRounds
	all := make([]Attributes, 0, totalBatches*cohortBatchSize)
	batchNum := 0

	for round := 0; len(all) < total; round++ {
		if round == maxRounds {
			return nil, fmt.Errorf("generated %d of %d personas after %d rounds", len(all), total, round)
		}
		missing := total - len(all)
		inRound := min(cohortConcurrentBatches, (missing+cohortBatchSize-1)/cohortBatchSize)
		results := make([][]Attributes, inRound)

		eg, egCtx := errgroup.WithContext(ctx)
		for i := 0; i < inRound; i++ {
			batchNum++
			num := batchNum
			eg.Go(func() error {
				batch, err := g.generateBatch(egCtx, audience, cohortBatchSize, num)
				if err != nil {
					return fmt.Errorf("batch %d: %w", num, err)
				}
				results[i] = batch
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		for _, batch := range results {
			all = append(all, batch...)
		}
		g.logger.Info("cohort round complete",
			zap.Int("round", round+1),
			zap.Int("batches", inRound),
			zap.Int("generated", len(all)),
			zap.Int("total", total))
	}

	if len(all) > total {
		all = all[:total]
	}

	personas := make([]Persona, len(all))
	for i, attrs := range all {
		name, _ := attrs.Get("persona_name")
		personas[i] = Persona{
			ID:         uuid.NewString(),
			Name:       FormatValue(name),
			Attributes: attrs,
		}
	}
	return personas, nil
}

func (g *Generator) generateBatch(ctx context.Context, audience string, size, batchNum int) ([]Attributes, error) {
	text, err := g.llm.Complete(ctx, llm.Request{
		System:      cohortSystemPrompt(audience, size),
		User:        fmt.Sprintf("Generate %d unique personas for batch %d. Make them completely different from previous batches. Return ONLY a valid JSON array with exactly %d personas, no markdown formatting.", size, batchNum, size),
		Temperature: 0.8,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, err
	}
	return ParseBatch(text, size)
}

var fencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// Unfence returns the body of the first ``` block in text, or text itself.
func Unfence(text string) string {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// ParseBatch decodes a JSON array of persona objects, accepting a batch
// within 10% of want and trimming any excess.
func ParseBatch(text string, want int) ([]Attributes, error) {
	var batch []Attributes
	if err := json.Unmarshal([]byte(Unfence(text)), &batch); err != nil {
		return nil, fmt.Errorf("invalid AI response format: %w", err)
	}

	if float64(len(batch)) < float64(want)*0.9 || float64(len(batch)) > float64(want)*1.1 {
		return nil, fmt.Errorf("AI generated %d personas, expected %d", len(batch), want)
	}
	if len(batch) > want {
		batch = batch[:want]
	}
	return batch, nil
}

func cohortSystemPrompt(audience string, size int) string {
	return fmt.Sprintf(`You are an expert at creating realistic, diverse user personas for market research. Generate exactly %d unique personas based on this audience: "%s".

MANDATORY FIELDS (must be included for every persona):
- persona_name (string, full name)
- age (number)
- birth_city_country (string, format: "City, Country")
- city_country (string, format: "City, Country")
- education (string, e.g., "High School", "Bachelor's Degree", "PhD")
- income (string, annual income in USD, e.g., "$45,000", "$120,000")
- income_level (string, must be one of: "low", "medium", "high", "very high")
- occupation (string)
- relationship_status (string, e.g., "Single", "Married", "Divorced")
- sex (string, "Male" or "Female" or "Non-binary")

IMPORTANT:
1. Each persona must be UNIQUE - different combinations of demographics
2. Ensure diversity across age, location, income levels, and backgrounds
3. Return ONLY valid JSON array, no markdown formatting
4. Include ONLY the mandatory fields listed above
5. Income level mapping: <$30k = low, $30-80k = medium, $80-150k = high, >$150k = very high

Example format:
[
  {
    "persona_name": "Alex Chen",
    "age": 28,
    "birth_city_country": "San Francisco, USA",
    "city_country": "Seattle, USA",
    "education": "Bachelor's Degree in Computer Science",
    "income": "$95,000",
    "income_level": "high",
    "occupation": "Software Engineer",
    "relationship_status": "Single",
    "sex": "Male"
  }
]`, size, audience)
}
