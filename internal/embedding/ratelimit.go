package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder throttles requests to the inner embedder with a token bucket.
// The limiter may be shared by several embedders that use the same account.
type RateLimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimiter returns a limiter allowing rps requests per second with the given burst.
func NewRateLimiter(rps float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// NewRateLimitedEmbedder wraps inner with limiter.
func NewRateLimitedEmbedder(inner Embedder, limiter *rate.Limiter) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{inner: inner, limiter: limiter}
}

// Embed waits for a token, then calls the inner embedder.
func (r *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, text)
}

// EmbedBatch counts a batch as one request.
func (r *RateLimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.EmbedBatch(ctx, texts)
}

func (r *RateLimitedEmbedder) Dimensions() int   { return r.inner.Dimensions() }
func (r *RateLimitedEmbedder) ModelName() string { return r.inner.ModelName() }
func (r *RateLimitedEmbedder) Close() error      { return r.inner.Close() }
