package layer

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// RateLimitLayer throttles outgoing provider calls with a token-bucket
// limiter shared by all calls through the wrapped provider. Waits are
// cancellable through the call context. Streaming calls consume one token at
// dispatch; individual chunks are not limited.
type RateLimitLayer struct {
	limiter *rate.Limiter
}

// NewRateLimitLayer creates a rate limit layer allowing r events per second
// with the given burst
func NewRateLimitLayer(r rate.Limit, burst int) *RateLimitLayer {
	return &RateLimitLayer{limiter: rate.NewLimiter(r, burst)}
}

// Wrap implements Layer
func (l *RateLimitLayer) Wrap(inner types.Provider) types.Provider {
	return &rateLimitProvider{Forwarder: Forwarder{Inner: inner}, limiter: l.limiter}
}

type rateLimitProvider struct {
	Forwarder
	limiter *rate.Limiter
}

func (p *rateLimitProvider) ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Inner.ChatCompletion(ctx, req)
}

func (p *rateLimitProvider) StreamChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionStream, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Inner.StreamChatCompletion(ctx, req)
}
