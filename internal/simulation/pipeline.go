package simulation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
)

const (
	// ErrorResponseText replaces the reaction of a persona whose pipeline failed.
	ErrorResponseText = "Error processing persona"
	NeutralScore      = 3
)

var scorePattern = regexp.MustCompile(`[1-5]`)

// Pipeline turns one persona into a PersonaResponse: a free-text reaction
// first, then a Likert score read from that reaction.
type Pipeline struct {
	llm    llm.Gateway
	logger *zap.Logger
}

func NewPipeline(gateway llm.Gateway, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{llm: gateway, logger: logger}
}

// Respond never fails. Errors and panics in either phase yield the error
// sentinel with a neutral score.
func (p *Pipeline) Respond(ctx context.Context, pr persona.Persona, idea string) (resp PersonaResponse) {
	resp = PersonaResponse{
		PersonaID:  pr.ID,
		Attributes: pr.Attributes.Clone(),
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("persona pipeline panicked", zap.String("persona_id", pr.ID), zap.Any("panic", r))
			resp.ResponseText = ErrorResponseText
			resp.Score = NeutralScore
		}
	}()

	text, score, err := p.run(ctx, persona.FormatProfile(pr.Attributes), idea)
	if err != nil {
		p.logger.Warn("persona pipeline failed", zap.String("persona_id", pr.ID), zap.Error(err))
		resp.ResponseText = ErrorResponseText
		resp.Score = NeutralScore
		return resp
	}

	resp.ResponseText = text
	resp.Score = score
	return resp
}

func (p *Pipeline) run(ctx context.Context, profile, idea string) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	text, err := p.elicit(ctx, profile, idea)
	if err != nil {
		return "", 0, fmt.Errorf("elicit reaction: %w", err)
	}

	score, err := p.score(ctx, text)
	if err != nil {
		return "", 0, fmt.Errorf("score reaction: %w", err)
	}
	return text, score, nil
}

func (p *Pipeline) elicit(ctx context.Context, profile, idea string) (string, error) {
	out, err := p.llm.Complete(ctx, llm.Request{
		System:      "You are a participant in a consumer research survey.",
		User:        elicitPrompt(profile, idea),
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (p *Pipeline) score(ctx context.Context, reaction string) (int, error) {
	out, err := p.llm.Complete(ctx, llm.Request{
		System:      "You are a Likert Rating Expert. Respond ONLY with a single number (1, 2, 3, 4, or 5). Do not include any other text.",
		User:        scorePrompt(reaction),
		Temperature: 0.1,
		MaxTokens:   10,
	})
	if err != nil {
		return 0, err
	}
	return ExtractScore(out), nil
}

// ExtractScore reads the first digit in 1-5 from text, defaulting to 3.
func ExtractScore(text string) int {
	score := NeutralScore
	if m := scorePattern.FindString(text); m != "" {
		score, _ = strconv.Atoi(m)
	}
	return max(1, min(5, score))
}

func elicitPrompt(profile, idea string) string {
	return fmt.Sprintf(`You are a participant in a consumer research survey. You must impersonate the provided consumer profile and only respond with a brief, honest textual statement of your purchase intent. Do not use numerical ratings. Do not offer definitions of the Likert scale. Keep your response to 2-4 sentences maximum.

Profile:
%s

Marketing Content: %s

Question: Based on this information, how likely are you to purchase this product?`, profile, idea)
}

func scorePrompt(reaction string) string {
	return fmt.Sprintf(`You are a Likert Rating Expert. Analyze the consumer statement and assign a purchase intent score from 1-5.

Assign a score from 1-5 based on the consumer's sentiment, using the following intensity guide to ensure distribution across the entire scale:

--- INTENSITY GUIDE ---
- If the statement indicates strong intent, excitement, or a perfect fit: **SCORE 5**
- If the statement indicates a clear functional need, positive intent, and little friction: **SCORE 4**
- If the statement is neutral, highlights major trade-offs, or expresses uncertainty/doubt: **SCORE 3**
- If the statement suggests high friction, major trust issues, or a preference for an alternative: **SCORE 2**
- If the statement expresses immediate dismissal, outright rejection, or irrelevance: **SCORE 1**
---

Consumer statement: %s

Respond with ONLY a single number (1, 2, 3, 4, or 5). No explanation needed.`, reaction)
}
