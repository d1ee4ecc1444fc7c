package llm

import (
	"context"

	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/worker"
)

// RateLimitedResolver waits for a limiter token before each call
type RateLimitedResolver struct {
	next    Resolver
	limiter *worker.Limiter
	key     string
}

// NewRateLimitedResolver wraps next; key names the limiter bucket
func NewRateLimitedResolver(next Resolver, limiter *worker.Limiter, key string) *RateLimitedResolver {
	return &RateLimitedResolver{next: next, limiter: limiter, key: key}
}

// Resolve implements Resolver
func (r *RateLimitedResolver) Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error) {
	if err := r.limiter.Wait(ctx, r.key); err != nil {
		return nil, textFailure("Rate limiter", err)
	}
	return r.next.Resolve(ctx, req)
}

// RateLimitedGenerator waits for a limiter token before each call
type RateLimitedGenerator struct {
	next    Generator
	limiter *worker.Limiter
	key     string
}

// NewRateLimitedGenerator wraps next; key names the limiter bucket
func NewRateLimitedGenerator(next Generator, limiter *worker.Limiter, key string) *RateLimitedGenerator {
	return &RateLimitedGenerator{next: next, limiter: limiter, key: key}
}

// Generate implements Generator. Blank prompts are rejected before taking
// a token.
func (g *RateLimitedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	if err := g.limiter.Wait(ctx, g.key); err != nil {
		return "", imageFailure("Rate limiter", "", err)
	}
	return g.next.Generate(ctx, prompt)
}
