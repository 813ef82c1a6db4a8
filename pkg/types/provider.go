package types

import "context"

// ProviderInfo is the static identity of a configured provider instance.
// ID is the stable identifier used for strategy auto-selection ("openai",
// "deepseek", ...); Name is a human-readable display name. The value is
// shared read-only across all call sites for the instance.
type ProviderInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Provider is the minimal contract a chat completion backend must satisfy.
//
// A Provider performs exactly one HTTP exchange per call and translates
// between the normalized shapes and its wire format. It must not apply
// business rules, retries or logging: those concerns live exclusively in
// layers, plugins and the executor. Failures should be returned as
// *ProviderError (or an error wrapping one) so enclosing layers can classify
// them as transient, permanent or rate-limited.
//
// Implementations must be safe for concurrent use; the underlying HTTP
// transport may be shared across calls and executor instances.
type Provider interface {
	// Info returns the provider's static identity
	Info() ProviderInfo

	// ChatCompletion performs one round trip and returns the whole response
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)

	// StreamChatCompletion performs one round trip and delivers the response
	// as a lazy sequence of chunks terminated by io.EOF
	StreamChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionStream, error)
}
