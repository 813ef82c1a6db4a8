package openai

import (
	"encoding/json"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// Wire shapes for the OpenAI chat completions API. These cover the subset of
// the protocol the runtime needs; unknown response fields are ignored.

type wireRequest struct {
	Model            string              `json:"model"`
	Messages         []wireMessage       `json:"messages"`
	Temperature      *float64            `json:"temperature,omitempty"`
	MaxTokens        int                 `json:"max_tokens,omitempty"`
	TopP             *float64            `json:"top_p,omitempty"`
	FrequencyPenalty *float64            `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64            `json:"presence_penalty,omitempty"`
	Stop             []string            `json:"stop,omitempty"`
	Tools            []wireTool          `json:"tools,omitempty"`
	ResponseFormat   *wireResponseFormat `json:"response_format,omitempty"`
	Stream           bool                `json:"stream,omitempty"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type wireTool struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolCallFunc `json:"function"`
}

type wireToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *wireJSONSchema `json:"json_schema,omitempty"`
}

type wireJSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Created int64        `json:"created"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

type wireChoice struct {
	Index        int             `json:"index"`
	Message      wireRespMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type wireRespMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireStreamChunk struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []wireStreamChoice `json:"choices"`
	Usage   *wireUsage         `json:"usage,omitempty"`
}

type wireStreamChoice struct {
	Index        int       `json:"index"`
	Delta        wireDelta `json:"delta"`
	FinishReason string    `json:"finish_reason,omitempty"`
}

type wireDelta struct {
	Role      string         `json:"role,omitempty"`
	Content   string         `json:"content,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireErrorResponse struct {
	Error wireError `json:"error"`
}

type wireError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// encodeRequest maps the normalized request onto the OpenAI wire shape
func encodeRequest(req types.ChatCompletionRequest) wireRequest {
	out := wireRequest{
		Model:            req.Model,
		Messages:         make([]wireMessage, 0, len(req.Messages)),
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             req.Stop,
		Stream:           req.Stream,
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, encodeMessage(msg))
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Type: "function",
			Function: wireToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	if req.ResponseFormat != nil {
		switch req.ResponseFormat.Type {
		case types.ResponseFormatJSONObject:
			out.ResponseFormat = &wireResponseFormat{Type: "json_object"}
		case types.ResponseFormatJSONSchema:
			out.ResponseFormat = &wireResponseFormat{
				Type: "json_schema",
				JSONSchema: &wireJSONSchema{
					Name:   req.ResponseFormat.Name,
					Schema: req.ResponseFormat.Schema,
					Strict: req.ResponseFormat.Strict,
				},
			}
		}
	}

	return out
}

// encodeMessage maps one normalized message. A single text part flattens to
// the plain-string content form most OpenAI-compatible servers expect; mixed
// content uses the part-array form. Tool results become role "tool" messages
// keyed by the originating call ID.
func encodeMessage(msg types.Message) wireMessage {
	out := wireMessage{Role: string(msg.Role), Name: msg.Name}

	var (
		parts     []wireContentPart
		toolCalls []wireToolCall
	)

	for _, part := range msg.Content {
		switch part.Type {
		case types.ContentPartText:
			parts = append(parts, wireContentPart{Type: "text", Text: part.Text})
		case types.ContentPartImage:
			parts = append(parts, wireContentPart{
				Type:     "image_url",
				ImageURL: &wireImageURL{URL: part.URL},
			})
		case types.ContentPartToolCall:
			toolCalls = append(toolCalls, wireToolCall{
				ID:   part.ID,
				Type: "function",
				Function: wireToolCallFunc{
					Name:      part.Name,
					Arguments: string(part.Arguments),
				},
			})
		case types.ContentPartToolResult:
			out.ToolCallID = part.ID
			out.Content = string(part.Result)
		}
	}

	if out.Content == nil {
		switch {
		case len(parts) == 1 && parts[0].Type == "text":
			out.Content = parts[0].Text
		case len(parts) > 0:
			out.Content = parts
		}
	}
	out.ToolCalls = toolCalls
	return out
}

// decodeResponse maps an OpenAI response body onto the normalized shape
func decodeResponse(wr wireResponse) *types.ChatCompletionResponse {
	resp := &types.ChatCompletionResponse{
		ID:      wr.ID,
		Model:   wr.Model,
		Created: wr.Created,
		Usage: types.Usage{
			PromptTokens:     wr.Usage.PromptTokens,
			CompletionTokens: wr.Usage.CompletionTokens,
			TotalTokens:      wr.Usage.TotalTokens,
		},
	}

	for _, wc := range wr.Choices {
		msg := types.Message{Role: types.Role(wc.Message.Role)}
		if wc.Message.Content != "" {
			msg.Content = append(msg.Content, types.TextPart(wc.Message.Content))
		}
		for _, tc := range wc.Message.ToolCalls {
			msg.Content = append(msg.Content,
				types.ToolCallPart(tc.ID, tc.Function.Name, json.RawMessage(tc.Function.Arguments)))
		}
		resp.Choices = append(resp.Choices, types.Choice{
			Index:        wc.Index,
			Message:      msg,
			FinishReason: decodeFinishReason(wc.FinishReason),
		})
	}
	return resp
}

func decodeFinishReason(reason string) types.FinishReason {
	switch reason {
	case "stop":
		return types.FinishReasonStop
	case "length":
		return types.FinishReasonLength
	case "tool_calls", "function_call":
		return types.FinishReasonToolCalls
	case "content_filter":
		return types.FinishReasonContentFilter
	case "":
		return ""
	default:
		return types.FinishReasonStop
	}
}

// decodeChunk maps one SSE data payload onto the normalized chunk shape
func decodeChunk(wc wireStreamChunk) types.ChatCompletionChunk {
	chunk := types.ChatCompletionChunk{ID: wc.ID, Model: wc.Model}

	if wc.Usage != nil {
		chunk.Usage = &types.Usage{
			PromptTokens:     wc.Usage.PromptTokens,
			CompletionTokens: wc.Usage.CompletionTokens,
			TotalTokens:      wc.Usage.TotalTokens,
		}
	}

	for _, choice := range wc.Choices {
		delta := types.MessageDelta{
			Role:    types.Role(choice.Delta.Role),
			Content: choice.Delta.Content,
		}
		for _, tc := range choice.Delta.ToolCalls {
			delta.ToolCalls = append(delta.ToolCalls,
				types.ToolCallPart(tc.ID, tc.Function.Name, json.RawMessage(tc.Function.Arguments)))
		}
		chunk.Choices = append(chunk.Choices, types.ChoiceDelta{
			Index:        choice.Index,
			Delta:        delta,
			FinishReason: decodeFinishReason(choice.FinishReason),
		})
	}
	return chunk
}
