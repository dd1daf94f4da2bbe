// Package llmtest provides a scripted llm.Gateway for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
)

// Gateway answers every call with Handler. It records each request and the
// highest number of calls observed in flight at once.
type Gateway struct {
	Handler func(ctx context.Context, req llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func New(handler func(ctx context.Context, req llm.Request) (string, error)) *Gateway {
	return &Gateway{Handler: handler}
}

// Reply returns a gateway that always answers text.
func Reply(text string) *Gateway {
	return New(func(context.Context, llm.Request) (string, error) { return text, nil })
}

func (g *Gateway) Complete(ctx context.Context, req llm.Request) (string, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		cur := g.maxInFlight.Load()
		if n <= cur || g.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	return g.Handler(ctx, req)
}

// Stream splits the Handler's reply on spaces, keeping the separators, so
// the concatenated fragments equal the reply.
func (g *Gateway) Stream(ctx context.Context, req llm.Request) (<-chan string, <-chan error) {
	fragments := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(fragments)

		text, err := g.Complete(ctx, req)
		if err != nil {
			errs <- err
			return
		}
		for _, word := range strings.SplitAfter(text, " ") {
			if word == "" {
				continue
			}
			select {
			case fragments <- word:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return fragments, errs
}

func (g *Gateway) Requests() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.Request(nil), g.requests...)
}

func (g *Gateway) MaxInFlight() int {
	return int(g.maxInFlight.Load())
}
