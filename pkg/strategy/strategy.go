// Package strategy reconciles structured-output conventions across AI
// providers. Some APIs natively enforce a JSON Schema on the completion
// (OpenAI, Anthropic, Azure); others only offer a basic JSON mode and need
// the schema spelled out in the prompt. A JSONOutputStrategy rewrites a chat
// completion request so the target provider returns data matching the
// caller's schema using whichever convention it supports.
package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// JSONOutputStrategy rewrites a request to enable structured JSON output.
// Apply returns a rebuilt request and leaves the input untouched, so callers
// can hold onto the original across retries.
type JSONOutputStrategy interface {
	// Name returns the strategy name for debugging and logging
	Name() string

	// Apply rewrites req so the provider emits JSON matching schema
	Apply(req types.ChatCompletionRequest, schema json.RawMessage) (types.ChatCompletionRequest, error)
}

// SchemaStrategy targets providers whose API natively enforces schema
// conformance. It sets the request's response format to a strict JSON Schema
// and leaves message content untouched.
type SchemaStrategy struct {
	// Strict enables strict schema validation on the provider side
	Strict bool
}

// NewSchemaStrategy creates a schema strategy with strict mode enabled
func NewSchemaStrategy() *SchemaStrategy {
	return &SchemaStrategy{Strict: true}
}

// Name returns the strategy name
func (s *SchemaStrategy) Name() string {
	return "json_schema"
}

// Apply sets the response format to a schema-constrained JSON format
func (s *SchemaStrategy) Apply(req types.ChatCompletionRequest, schema json.RawMessage) (types.ChatCompletionRequest, error) {
	out := req.Clone()
	out.ResponseFormat = types.JSONSchemaFormat("response", schema, s.Strict)
	return out, nil
}

// JSONModeStrategy targets providers lacking native schema enforcement. It
// sets the response format to basic JSON-object mode and injects a system
// message rendering the schema with an instruction to emit only matching
// JSON.
type JSONModeStrategy struct {
	// UseSystemMessage prepends the instruction as a system message when
	// true; otherwise the instruction is appended to the last user message.
	UseSystemMessage bool
}

// NewJSONModeStrategy creates a JSON mode strategy that injects a system message
func NewJSONModeStrategy() *JSONModeStrategy {
	return &JSONModeStrategy{UseSystemMessage: true}
}

// Name returns the strategy name
func (s *JSONModeStrategy) Name() string {
	return "json_mode"
}

// Apply sets JSON-object mode and injects the schema instruction
func (s *JSONModeStrategy) Apply(req types.ChatCompletionRequest, schema json.RawMessage) (types.ChatCompletionRequest, error) {
	instruction, err := buildJSONInstruction(schema)
	if err != nil {
		return req, err
	}

	out := req.Clone()
	out.ResponseFormat = types.JSONObjectFormat()

	if s.UseSystemMessage {
		out.Messages = append([]types.Message{types.SystemMessage(instruction)}, out.Messages...)
		return out, nil
	}

	// Append to the most recent user message, or add one if none exists.
	for i := len(out.Messages) - 1; i >= 0; i-- {
		if out.Messages[i].Role == types.RoleUser {
			out.Messages[i].Content = append(out.Messages[i].Content,
				types.TextPart("\n\n"+instruction))
			return out, nil
		}
	}
	out.Messages = append(out.Messages, types.UserMessage(instruction))
	return out, nil
}

// buildJSONInstruction renders a natural-language instruction around the schema
func buildJSONInstruction(schema json.RawMessage) (string, error) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, schema, "", "  "); err != nil {
		return "", types.NewSchemaMismatchError("", "schema is not valid JSON").WithOriginalErr(err)
	}

	return fmt.Sprintf("You must respond with valid JSON that matches this schema:\n```json\n%s\n```\n\n"+
		"IMPORTANT:\n"+
		"1. Only return the JSON object, nothing else\n"+
		"2. Ensure all required fields are present\n"+
		"3. Follow the schema structure exactly\n"+
		"4. Use the correct data types for each field", pretty.String()), nil
}

// schemaProviders are the provider IDs known to natively enforce JSON Schema
var schemaProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"azure":     true,
}

// Select returns the recommended JSON output strategy for a provider ID.
// Unknown providers get the JSON mode strategy, which works anywhere a model
// can follow prompt instructions; falling back to prompting is always safe,
// while assuming native schema support is not.
func Select(providerID string) JSONOutputStrategy {
	if schemaProviders[providerID] {
		return NewSchemaStrategy()
	}
	return NewJSONModeStrategy()
}
