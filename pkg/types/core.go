// Package types defines the core types and interfaces for the AI runtime kit.
// It includes the normalized chat completion request/response formats, the
// minimal Provider interface, and the error taxonomy shared by every layer
// of the request pipeline.
package types

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a message in a conversation
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentPartType discriminates the kinds of content a message may carry
type ContentPartType string

const (
	ContentPartText       ContentPartType = "text"
	ContentPartImage      ContentPartType = "image"
	ContentPartToolCall   ContentPartType = "tool_call"
	ContentPartToolResult ContentPartType = "tool_result"
)

// ContentPart is a single piece of message content. Exactly one of the
// type-specific fields is populated, selected by Type.
type ContentPart struct {
	Type ContentPartType `json:"type"`

	// Text content (Type == ContentPartText)
	Text string `json:"text,omitempty"`

	// Image URL or data URL (Type == ContentPartImage)
	URL string `json:"url,omitempty"`

	// Tool call fields (Type == ContentPartToolCall)
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`

	// Tool result payload (Type == ContentPartToolResult, shares ID)
	Result json.RawMessage `json:"result,omitempty"`
}

// TextPart creates a text content part
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentPartText, Text: text}
}

// ImagePart creates an image content part from a URL or data URL
func ImagePart(url string) ContentPart {
	return ContentPart{Type: ContentPartImage, URL: url}
}

// ToolCallPart creates a tool call content part
func ToolCallPart(id, name string, arguments json.RawMessage) ContentPart {
	return ContentPart{Type: ContentPartToolCall, ID: id, Name: name, Arguments: arguments}
}

// ToolResultPart creates a tool result content part
func ToolResultPart(id string, result json.RawMessage) ContentPart {
	return ContentPart{Type: ContentPartToolResult, ID: id, Result: result}
}

// Message represents a single message in a conversation
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
	Name    string        `json:"name,omitempty"`
}

// SystemMessage creates a system message with text content
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart(text)}}
}

// UserMessage creates a user message with text content
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

// AssistantMessage creates an assistant message with text content
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// ToolMessage creates a tool message carrying a tool result
func ToolMessage(id string, result json.RawMessage) Message {
	return Message{Role: RoleTool, Content: []ContentPart{ToolResultPart(id, result)}}
}

// WithName returns a copy of the message with the name field set
func (m Message) WithName(name string) Message {
	m.Name = name
	return m
}

// Text returns the concatenation of all text content parts in the message
func (m Message) Text() string {
	var sb strings.Builder
	for _, part := range m.Content {
		if part.Type == ContentPartText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the tool call content parts of the message, if any
func (m Message) ToolCalls() []ContentPart {
	var calls []ContentPart
	for _, part := range m.Content {
		if part.Type == ContentPartToolCall {
			calls = append(calls, part)
		}
	}
	return calls
}

// cloneMessages deep-copies a message slice including content parts.
// Raw JSON payloads are shared since they are never written after creation.
func cloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m
		out[i].Content = append([]ContentPart(nil), m.Content...)
	}
	return out
}

// Tool describes a tool/function the model may call
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}
