package layer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// LoggingLayer records a structured log line before and after every provider
// operation: a request event with model and message count, and a completion
// event with elapsed duration and token usage. It never alters the request
// or response, and on failure it emits an error event and propagates the
// error unchanged.
type LoggingLayer struct {
	logger *slog.Logger
}

// NewLoggingLayer creates a logging layer. A nil logger uses slog.Default().
func NewLoggingLayer(logger *slog.Logger) *LoggingLayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingLayer{logger: logger}
}

// Wrap implements Layer
func (l *LoggingLayer) Wrap(inner types.Provider) types.Provider {
	return &loggingProvider{
		Forwarder: Forwarder{Inner: inner},
		logger:    l.logger.With("provider", inner.Info().ID),
	}
}

type loggingProvider struct {
	Forwarder
	logger *slog.Logger
}

func (p *loggingProvider) ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	p.logger.DebugContext(ctx, "chat completion request received",
		"model", req.Model,
		"messages", len(req.Messages))

	start := time.Now()
	resp, err := p.Inner.ChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		p.logger.ErrorContext(ctx, "chat completion failed",
			"model", req.Model,
			"elapsed", elapsed,
			"error", err)
		return nil, err
	}

	p.logger.DebugContext(ctx, "chat completion succeeded",
		"model", req.Model,
		"id", resp.ID,
		"total_tokens", resp.Usage.TotalTokens,
		"elapsed", elapsed)
	return resp, nil
}

func (p *loggingProvider) StreamChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionStream, error) {
	p.logger.DebugContext(ctx, "stream chat completion request received",
		"model", req.Model,
		"messages", len(req.Messages))

	start := time.Now()
	stream, err := p.Inner.StreamChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		p.logger.ErrorContext(ctx, "stream chat completion failed",
			"model", req.Model,
			"elapsed", elapsed,
			"error", err)
		return nil, err
	}

	p.logger.DebugContext(ctx, "stream chat completion opened",
		"model", req.Model,
		"elapsed", elapsed)
	return stream, nil
}
