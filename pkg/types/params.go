package types

import "encoding/json"

// TextParams are the high-level parameters for text generation
type TextParams struct {
	Messages         []Message                  `json:"messages"`
	MaxTokens        int                        `json:"max_tokens,omitempty"`
	Temperature      *float64                   `json:"temperature,omitempty"`
	TopP             *float64                   `json:"top_p,omitempty"`
	FrequencyPenalty *float64                   `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64                   `json:"presence_penalty,omitempty"`
	Stop             []string                   `json:"stop,omitempty"`
	Tools            []Tool                     `json:"tools,omitempty"`
	Extra            map[string]json.RawMessage `json:"extra,omitempty"`
}

// NewTextParams creates text parameters with the given messages
func NewTextParams(messages []Message) TextParams {
	return TextParams{Messages: messages}
}

// WithMaxTokens returns a copy with the output-size cap set
func (p TextParams) WithMaxTokens(maxTokens int) TextParams {
	p.MaxTokens = maxTokens
	return p
}

// WithTemperature returns a copy with the sampling temperature set
func (p TextParams) WithTemperature(temperature float64) TextParams {
	p.Temperature = &temperature
	return p
}

// WithTools returns a copy with the available tools set
func (p TextParams) WithTools(tools []Tool) TextParams {
	p.Tools = tools
	return p
}

// WithStop returns a copy with the stop sequences set
func (p TextParams) WithStop(stop ...string) TextParams {
	p.Stop = stop
	return p
}

// ObjectParams are the high-level parameters for structured object generation.
// Schema is a JSON Schema document the generated object must match.
type ObjectParams struct {
	Messages    []Message       `json:"messages"`
	Schema      json.RawMessage `json:"schema"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

// NewObjectParams creates object parameters with the given messages and schema
func NewObjectParams(messages []Message, schema json.RawMessage) ObjectParams {
	return ObjectParams{Messages: messages, Schema: schema}
}

// TextResult is the application-facing projection of a text generation call.
// It is a derived, read-only view: never mutated after construction.
type TextResult struct {
	Content      string        `json:"content"`
	FinishReason FinishReason  `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Model        string        `json:"model"`
	ToolCalls    []ContentPart `json:"tool_calls,omitempty"`
}

// ObjectResult is the application-facing projection of a structured
// generation call. Object holds the parsed payload as raw JSON.
type ObjectResult struct {
	Object json.RawMessage `json:"object"`
	Usage  Usage           `json:"usage"`
	Model  string          `json:"model"`
}

// Decode unmarshals the structured payload into v
func (r *ObjectResult) Decode(v any) error {
	return json.Unmarshal(r.Object, v)
}
