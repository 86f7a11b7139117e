package embedding

import (
	"context"
	"fmt"

	"github.com/synapsedb/mnemosyne/internal/ratelimit"
)

// embedToolName is the rate limiter's bucket key for every outbound
// embedding call, whether it's the gate's candidate re-embedding or the
// search path's query embedding: both go through the same provider, so
// both draw from the same bucket.
const embedToolName = "embed"

// RateLimitedProvider wraps a Provider with a token-bucket limiter
// (internal/ratelimit), bounding outbound embedding-provider calls, the
// one external dependency with a real cost/rate ceiling. It rejects
// over-budget calls rather than blocking; a caller that wants retry
// semantics wraps ErrRateLimited itself.
type RateLimitedProvider struct {
	inner   Provider
	limiter *ratelimit.Limiter
}

// ErrRateLimited is returned when the embedding bucket has no tokens left.
var ErrRateLimited = fmt.Errorf("embedding: rate limit exceeded")

// NewRateLimitedProvider wraps inner with limiter. A nil limiter disables
// throttling entirely (equivalent to an always-allow bucket).
func NewRateLimitedProvider(inner Provider, limiter *ratelimit.Limiter) *RateLimitedProvider {
	return &RateLimitedProvider{inner: inner, limiter: limiter}
}

func (p *RateLimitedProvider) Dimension() int { return p.inner.Dimension() }

func (p *RateLimitedProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

func (p *RateLimitedProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if p.limiter != nil {
		result := p.limiter.Allow(embedToolName)
		if !result.Allowed {
			return nil, fmt.Errorf("%w: retry after %s", ErrRateLimited, result.RetryAfter)
		}
	}
	return p.inner.Embed(ctx, text)
}

var _ Provider = (*RateLimitedProvider)(nil)
