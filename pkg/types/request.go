package types

import "encoding/json"

// ResponseFormatType selects the declared output format of a request
type ResponseFormatType string

const (
	// ResponseFormatText requests free-form text output
	ResponseFormatText ResponseFormatType = "text"
	// ResponseFormatJSONObject requests a JSON object without schema enforcement
	ResponseFormatJSONObject ResponseFormatType = "json_object"
	// ResponseFormatJSONSchema requests JSON constrained by an explicit schema
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// ResponseFormat declares the output format for a chat completion request.
// Name, Schema and Strict are only meaningful for ResponseFormatJSONSchema.
type ResponseFormat struct {
	Type   ResponseFormatType `json:"type"`
	Name   string             `json:"name,omitempty"`
	Schema json.RawMessage    `json:"schema,omitempty"`
	Strict bool               `json:"strict,omitempty"`
}

// TextFormat returns a free-text response format
func TextFormat() *ResponseFormat {
	return &ResponseFormat{Type: ResponseFormatText}
}

// JSONObjectFormat returns a basic JSON-object response format
func JSONObjectFormat() *ResponseFormat {
	return &ResponseFormat{Type: ResponseFormatJSONObject}
}

// JSONSchemaFormat returns a schema-constrained response format
func JSONSchemaFormat(name string, schema json.RawMessage, strict bool) *ResponseFormat {
	return &ResponseFormat{Type: ResponseFormatJSONSchema, Name: name, Schema: schema, Strict: strict}
}

// ChatCompletionRequest is the provider-agnostic request shape all providers
// translate to their wire format. Requests are treated as immutable once
// built: pipeline stages that need to change one rebuild it via Clone rather
// than mutating in place, so a retrying layer can safely resend the request
// it was handed.
type ChatCompletionRequest struct {
	Model            string          `json:"model"`
	Messages         []Message       `json:"messages"`
	Temperature      *float64        `json:"temperature,omitempty"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	Tools            []Tool          `json:"tools,omitempty"`
	ResponseFormat   *ResponseFormat `json:"response_format,omitempty"`
	Stream           bool            `json:"stream,omitempty"`

	// Extra carries provider-specific parameters passed through verbatim
	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

// NewChatCompletionRequest creates a request for the given model and messages
func NewChatCompletionRequest(model string, messages []Message) ChatCompletionRequest {
	return ChatCompletionRequest{Model: model, Messages: messages}
}

// Clone returns a deep copy of the request. Message, stop, tool and extra
// collections are copied so the clone can be modified independently.
func (r ChatCompletionRequest) Clone() ChatCompletionRequest {
	out := r
	out.Messages = cloneMessages(r.Messages)
	if r.Stop != nil {
		out.Stop = append([]string(nil), r.Stop...)
	}
	if r.Tools != nil {
		out.Tools = append([]Tool(nil), r.Tools...)
	}
	if r.Temperature != nil {
		v := *r.Temperature
		out.Temperature = &v
	}
	if r.TopP != nil {
		v := *r.TopP
		out.TopP = &v
	}
	if r.FrequencyPenalty != nil {
		v := *r.FrequencyPenalty
		out.FrequencyPenalty = &v
	}
	if r.PresencePenalty != nil {
		v := *r.PresencePenalty
		out.PresencePenalty = &v
	}
	if r.ResponseFormat != nil {
		v := *r.ResponseFormat
		out.ResponseFormat = &v
	}
	if r.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Validate checks the request satisfies the minimum contract providers rely on
func (r ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return NewConfigurationError("model is required")
	}
	if len(r.Messages) == 0 {
		return NewInvalidRequestError("", "at least one message is required")
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return NewInvalidRequestError("", "temperature must be between 0 and 2")
	}
	if r.MaxTokens < 0 {
		return NewInvalidRequestError("", "max_tokens must be non-negative")
	}
	return nil
}
