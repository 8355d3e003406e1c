package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Client with a token-bucket rate limiter so
// concurrent workflow threads cannot exceed the provider's request
// budget. Waiting respects context cancellation.
type RateLimited struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimited wraps client, allowing rps requests per second with
// the given burst.
func NewRateLimited(client Client, rps float64, burst int) *RateLimited {
	return &RateLimited{
		inner:   client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GenerateResponse blocks until the limiter grants a slot, then
// delegates to the wrapped client.
func (r *RateLimited) GenerateResponse(ctx context.Context, messages []Message) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: rate limit wait: %w", err)
	}
	return r.inner.GenerateResponse(ctx, messages)
}
