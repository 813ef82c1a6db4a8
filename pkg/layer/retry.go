package layer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// RetryLayer retries transient and rate-limited provider failures with
// exponentially increasing, jittered delays. Permanent failures propagate
// immediately; after exhausting the attempt budget the last observed error
// propagates. Backoff waits are cancellable through the call context.
//
// Streaming calls are only retried at dispatch: once a stream handle has
// been returned to the caller, any portion of it may already have been
// delivered and the exchange can no longer be safely rewound.
type RetryLayer struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       float64
}

// NewRetryLayer creates a retry layer with sensible defaults: 3 retries,
// 100ms initial delay doubling up to 10s, 10% jitter
func NewRetryLayer() *RetryLayer {
	return &RetryLayer{
		maxRetries:   3,
		initialDelay: 100 * time.Millisecond,
		maxDelay:     10 * time.Second,
		multiplier:   2.0,
		jitter:       0.1,
	}
}

// WithMaxRetries sets the maximum number of retry attempts
func (l *RetryLayer) WithMaxRetries(maxRetries int) *RetryLayer {
	l.maxRetries = maxRetries
	return l
}

// WithInitialDelay sets the delay before the first retry
func (l *RetryLayer) WithInitialDelay(d time.Duration) *RetryLayer {
	l.initialDelay = d
	return l
}

// WithMaxDelay sets the cap on the backoff delay
func (l *RetryLayer) WithMaxDelay(d time.Duration) *RetryLayer {
	l.maxDelay = d
	return l
}

// WithMultiplier sets the per-attempt backoff growth factor
func (l *RetryLayer) WithMultiplier(m float64) *RetryLayer {
	l.multiplier = m
	return l
}

// WithJitter sets the jitter fraction (0 disables jitter, 1 is full jitter)
func (l *RetryLayer) WithJitter(j float64) *RetryLayer {
	l.jitter = j
	return l
}

// Wrap implements Layer
func (l *RetryLayer) Wrap(inner types.Provider) types.Provider {
	cfg := *l
	return &retryProvider{Forwarder: Forwarder{Inner: inner}, cfg: cfg}
}

type retryProvider struct {
	Forwarder
	cfg RetryLayer
}

func (p *retryProvider) ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	var resp *types.ChatCompletionResponse
	err := p.execute(ctx, func() error {
		var callErr error
		resp, callErr = p.Inner.ChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *retryProvider) StreamChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionStream, error) {
	// Retrying here only covers dispatch failures; nothing has been
	// delivered until Next is first called on the returned stream.
	var stream types.ChatCompletionStream
	err := p.execute(ctx, func() error {
		var callErr error
		stream, callErr = p.Inner.StreamChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// execute runs operation until it succeeds, fails permanently, or the retry
// budget is spent
func (p *retryProvider) execute(ctx context.Context, operation func() error) error {
	for attempt := 0; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !types.Retryable(err) || attempt >= p.cfg.maxRetries {
			return err
		}
		if waitErr := p.wait(ctx, p.nextDelay(attempt, err)); waitErr != nil {
			return waitErr
		}
	}
}

// nextDelay computes the backoff before retrying after the given attempt.
// A provider-supplied Retry-After hint takes precedence over the schedule.
func (p *retryProvider) nextDelay(attempt int, err error) time.Duration {
	if d := retryAfterHint(err); d > 0 {
		return d
	}

	delay := time.Duration(float64(p.cfg.initialDelay) * math.Pow(p.cfg.multiplier, float64(attempt)))
	if p.cfg.maxDelay > 0 && delay > p.cfg.maxDelay {
		delay = p.cfg.maxDelay
	}

	if p.cfg.jitter > 0 {
		// Equal jitter: half the delay fixed, the rest randomized.
		half := delay / 2
		delay = half + time.Duration(rand.Float64()*float64(delay-half)) //nolint:gosec // G404: math/rand is sufficient for jitter
	}
	return delay
}

// wait sleeps for d or returns early when the context is done
func (p *retryProvider) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfterHint extracts a provider-reported retry-after duration from err
func retryAfterHint(err error) time.Duration {
	var pe *types.ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > 0 {
		return time.Duration(pe.RetryAfter) * time.Second
	}
	return 0
}
