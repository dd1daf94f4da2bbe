package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/synthsense-agent/internal/config"
)

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"openai without key", config.Config{LLMProvider: "openai"}},
		{"gemini without key", config.Config{LLMProvider: "gemini"}},
		{"unknown provider", config.Config{LLMProvider: "llama", OpenAIAPIKey: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(context.Background(), &tt.cfg, nil)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNew_OpenAI(t *testing.T) {
	g, err := New(context.Background(), &config.Config{
		LLMProvider:  "openai",
		OpenAIAPIKey: "sk-test",
		Model:        "gpt-4o",
		LLMTimeout:   time.Second,
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"I would buy it."}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL, "gpt-4o")
	out, err := c.Complete(context.Background(), Request{
		System:      "sys",
		User:        "hi",
		History:     []Message{{Role: RoleUser, Content: "earlier"}, {Role: RoleAssistant, Content: "reply"}},
		Temperature: 0.7,
		MaxTokens:   150,
	})
	require.NoError(t, err)
	assert.Equal(t, "I would buy it.", out)

	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "earlier", got.Messages[1].Content)
	assert.Equal(t, RoleAssistant, got.Messages[2].Role)
	assert.Equal(t, "hi", got.Messages[3].Content)
	assert.Equal(t, 150, got.MaxTokens)
	assert.False(t, got.Stream)
}

func TestOpenAIClient_CompleteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("sk-test", srv.URL, "gpt-4o").Complete(context.Background(), Request{User: "hi"})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ProviderOpenAI, perr.Provider)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIClient_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Maybe ", "if it ", "were cheaper."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	fragments, errs := NewOpenAIClient("sk-test", srv.URL, "gpt-4o").Stream(context.Background(), Request{User: "hi"})
	out, err := Collect(fragments, errs)
	require.NoError(t, err)
	assert.Equal(t, "Maybe if it were cheaper.", out)
}

type slowGateway struct{}

func (slowGateway) Complete(ctx context.Context, _ Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (slowGateway) Stream(ctx context.Context, _ Request) (<-chan string, <-chan error) {
	f := make(chan string)
	e := make(chan error, 1)
	go func() {
		defer close(e)
		defer close(f)
		<-ctx.Done()
		e <- ctx.Err()
	}()
	return f, e
}

func TestWithLimits_Timeout(t *testing.T) {
	g := WithLimits(slowGateway{}, 20*time.Millisecond, 0)

	_, err := g.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = Collect(g.Stream(context.Background(), Request{}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLimits_RateLimitHonoursCancel(t *testing.T) {
	g := WithLimits(slowGateway{}, time.Second, 0.001)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Complete(ctx, Request{})
	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
}

type closingGateway struct {
	slowGateway
	closed bool
}

func (g *closingGateway) Close() error {
	g.closed = true
	return nil
}

func TestWithLimits_ForwardsClose(t *testing.T) {
	inner := &closingGateway{}
	c, ok := WithLimits(inner, time.Second, 0).(io.Closer)
	require.True(t, ok)
	require.NoError(t, c.Close())
	assert.True(t, inner.closed)

	c, ok = WithLimits(slowGateway{}, time.Second, 0).(io.Closer)
	require.True(t, ok)
	assert.NoError(t, c.Close())
}
