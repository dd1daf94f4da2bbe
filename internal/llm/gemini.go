package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// session builds a fresh model per call. GenerativeModel carries mutable
// generation settings and must not be shared between concurrent requests.
func (g *GeminiClient) session(req Request) *genai.ChatSession {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.SystemInstruction = systemInstruction(req.System)

	cs := model.StartChat()
	cs.History = geminiHistory(req.History)
	return cs
}

func systemInstruction(system string) *genai.Content {
	if system == "" {
		return nil
	}
	return &genai.Content{Parts: []genai.Part{genai.Text(system)}}
}

// geminiHistory maps earlier turns onto Gemini's roles, which call the
// assistant "model".
func geminiHistory(history []Message) []*genai.Content {
	if len(history) == 0 {
		return nil
	}
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return out
}

func (g *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := g.session(req).SendMessage(ctx, genai.Text(req.User))
	if err != nil {
		return "", &ProviderError{Provider: ProviderGemini, Err: fmt.Errorf("failed to generate content: %w", err)}
	}

	text := responseText(resp)
	if text == "" {
		return "", &ProviderError{Provider: ProviderGemini, Err: fmt.Errorf("no content generated")}
	}
	return text, nil
}

func (g *GeminiClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	fragments := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(fragments)

		iter := g.session(req).SendMessageStream(ctx, genai.Text(req.User))
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- &ProviderError{Provider: ProviderGemini, Err: err}
				return
			}
			if text := responseText(resp); text != "" {
				select {
				case fragments <- text:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return fragments, errs
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
