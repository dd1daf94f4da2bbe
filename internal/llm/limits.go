package llm

import (
	"context"
	"io"
	"time"

	"golang.org/x/time/rate"
)

type limitedGateway struct {
	next    Gateway
	timeout time.Duration
	limiter *rate.Limiter
}

// WithLimits bounds every call by timeout (when the caller's ctx has no
// deadline) and by a token bucket of perSecond calls. Zero disables either.
func WithLimits(next Gateway, timeout time.Duration, perSecond float64) Gateway {
	g := &limitedGateway{next: next, timeout: timeout}
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return g
}

// Close releases the wrapped gateway's client when it holds one.
func (g *limitedGateway) Close() error {
	if c, ok := g.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (g *limitedGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *limitedGateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return &ProviderError{Provider: "ratelimit", Err: err}
	}
	return nil
}

func (g *limitedGateway) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.wait(ctx); err != nil {
		return "", err
	}
	return g.next.Complete(ctx, req)
}

func (g *limitedGateway) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	fragments := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(fragments)

		ctx, cancel := g.withTimeout(ctx)
		defer cancel()

		if err := g.wait(ctx); err != nil {
			errs <- err
			return
		}

		in, inErrs := g.next.Stream(ctx, req)
		for f := range in {
			select {
			case fragments <- f:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := <-inErrs; err != nil {
			errs <- err
		}
	}()

	return fragments, errs
}
