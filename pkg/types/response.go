package types

// FinishReason explains why the model stopped generating. The set is closed:
// providers map any vendor-specific reason onto one of these values.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonError         FinishReason = "error"
)

// Usage reports token consumption for a completed exchange.
// All counters are non-negative.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the element-wise sum of two usage records
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// Choice is a single candidate completion in a response. Indices are unique
// and stable within one response.
type Choice struct {
	Index        int          `json:"index"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
}

// ChatCompletionResponse is the provider-agnostic response shape
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Created int64    `json:"created,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// FirstChoice returns the primary candidate, or nil when the response is empty
func (r *ChatCompletionResponse) FirstChoice() *Choice {
	if len(r.Choices) == 0 {
		return nil
	}
	return &r.Choices[0]
}

// MessageDelta is an incremental message fragment in a streaming response
type MessageDelta struct {
	Role      Role          `json:"role,omitempty"`
	Content   string        `json:"content,omitempty"`
	ToolCalls []ContentPart `json:"tool_calls,omitempty"`
}

// ChoiceDelta is a per-candidate fragment in a streaming chunk. FinishReason
// is empty until the candidate's final fragment.
type ChoiceDelta struct {
	Index        int          `json:"index"`
	Delta        MessageDelta `json:"delta"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

// ChatCompletionChunk is one element of a streaming response. The final chunk
// of a stream carries the finish reason and, when the provider reports it,
// the usage counters.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []ChoiceDelta `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// ChatCompletionStream delivers a chat completion incrementally. Streams are
// lazy, finite and non-restartable: Next returns io.EOF after the final
// chunk, and Close releases the underlying connection. A stream must be
// closed exactly once; closing before exhaustion abandons the exchange.
type ChatCompletionStream interface {
	Next() (ChatCompletionChunk, error)
	Close() error
}
