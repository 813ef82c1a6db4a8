// Package layer provides composable middleware for AI providers. A Layer
// wraps a types.Provider with a cross-cutting behavior (logging, retry, rate
// limiting) and yields a value that itself satisfies the Provider contract,
// so layers nest to form a chain.
//
// Composition is static: the chain is fixed when the executor is built and
// never changes at runtime. Ordering is part of the public contract — the
// layer added first is outermost, observing requests before and responses
// after every enclosed layer. Putting Logging outside Retry therefore logs
// once per logical call rather than once per physical attempt.
package layer

import (
	"context"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// Layer wraps an inner provider and returns the enhanced provider
type Layer interface {
	Wrap(inner types.Provider) types.Provider
}

// Chain applies layers to a provider in registration order: the first layer
// given becomes the outermost wrapper. Chain with no layers returns the
// provider unchanged.
func Chain(provider types.Provider, layers ...Layer) types.Provider {
	for i := len(layers) - 1; i >= 0; i-- {
		provider = layers[i].Wrap(provider)
	}
	return provider
}

// Forwarder is a Provider implementation that delegates every operation to
// an inner provider. Layered providers embed it and override only the
// operations they intercept.
type Forwarder struct {
	Inner types.Provider
}

// Info forwards to the inner provider
func (f *Forwarder) Info() types.ProviderInfo {
	return f.Inner.Info()
}

// ChatCompletion forwards to the inner provider
func (f *Forwarder) ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	return f.Inner.ChatCompletion(ctx, req)
}

// StreamChatCompletion forwards to the inner provider
func (f *Forwarder) StreamChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionStream, error) {
	return f.Inner.StreamChatCompletion(ctx, req)
}
