// Package testutil provides shared testing utilities, mocks, and fixtures
// for use across the ai-runtime-kit test suite.
package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// ScriptedProvider is a mock Provider whose behavior is driven by a script of
// outcomes. Each call to ChatCompletion consumes the next outcome; when the
// script is exhausted the last outcome repeats. It records every request it
// receives and counts invocations, so tests can assert exactly how many
// physical calls a layer chain produced.
type ScriptedProvider struct {
	mu sync.Mutex

	info     types.ProviderInfo
	outcomes []Outcome
	requests []types.ChatCompletionRequest

	streamChunks []types.ChatCompletionChunk
	streamErr    error

	chatCalls   int
	streamCalls int
}

// Outcome is one scripted result for a ChatCompletion call
type Outcome struct {
	Response *types.ChatCompletionResponse
	Err      error
}

// NewScriptedProvider creates a mock provider with the given identity
func NewScriptedProvider(id string) *ScriptedProvider {
	return &ScriptedProvider{
		info: types.ProviderInfo{ID: id, Name: "Scripted " + id},
	}
}

// Respond appends a successful outcome to the script
func (p *ScriptedProvider) Respond(resp *types.ChatCompletionResponse) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, Outcome{Response: resp})
	return p
}

// RespondText appends a successful single-choice text outcome to the script
func (p *ScriptedProvider) RespondText(text string) *ScriptedProvider {
	return p.Respond(TextResponse(text))
}

// Fail appends a failing outcome to the script
func (p *ScriptedProvider) Fail(err error) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, Outcome{Err: err})
	return p
}

// FailTimes appends n copies of a failing outcome to the script
func (p *ScriptedProvider) FailTimes(n int, err error) *ScriptedProvider {
	for i := 0; i < n; i++ {
		p.Fail(err)
	}
	return p
}

// SetStream configures the chunks returned by StreamChatCompletion
func (p *ScriptedProvider) SetStream(chunks []types.ChatCompletionChunk) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamChunks = chunks
	return p
}

// SetStreamError configures StreamChatCompletion to fail at dispatch
func (p *ScriptedProvider) SetStreamError(err error) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamErr = err
	return p
}

// ChatCalls returns the number of ChatCompletion invocations
func (p *ScriptedProvider) ChatCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chatCalls
}

// StreamCalls returns the number of StreamChatCompletion invocations
func (p *ScriptedProvider) StreamCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamCalls
}

// Requests returns a copy of all requests seen by ChatCompletion
func (p *ScriptedProvider) Requests() []types.ChatCompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.ChatCompletionRequest(nil), p.requests...)
}

// LastRequest returns the most recent request, or nil when none was seen
func (p *ScriptedProvider) LastRequest() *types.ChatCompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	req := p.requests[len(p.requests)-1]
	return &req
}

// Info implements types.Provider
func (p *ScriptedProvider) Info() types.ProviderInfo {
	return p.info
}

// ChatCompletion implements types.Provider by consuming the next scripted outcome
func (p *ScriptedProvider) ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.chatCalls
	p.chatCalls++
	p.requests = append(p.requests, req.Clone())

	if len(p.outcomes) == 0 {
		return TextResponse("scripted response"), nil
	}
	if idx >= len(p.outcomes) {
		idx = len(p.outcomes) - 1
	}
	outcome := p.outcomes[idx]
	if outcome.Err != nil {
		return nil, outcome.Err
	}
	return outcome.Response, nil
}

// StreamChatCompletion implements types.Provider
func (p *ScriptedProvider) StreamChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.streamCalls++
	p.requests = append(p.requests, req.Clone())

	if p.streamErr != nil {
		return nil, p.streamErr
	}

	chunks := p.streamChunks
	if chunks == nil {
		chunks = DefaultStreamChunks("scripted-model")
	}
	return NewMockStream(chunks), nil
}

// TextResponse builds a single-choice assistant response with fixed usage
func TextResponse(text string) *types.ChatCompletionResponse {
	return &types.ChatCompletionResponse{
		ID:    "resp-1",
		Model: "scripted-model",
		Choices: []types.Choice{
			{
				Index:        0,
				Message:      types.AssistantMessage(text),
				FinishReason: types.FinishReasonStop,
			},
		},
		Usage: types.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// DefaultStreamChunks builds a two-chunk stream ending with usage
func DefaultStreamChunks(model string) []types.ChatCompletionChunk {
	return []types.ChatCompletionChunk{
		{
			ID:    "chunk-1",
			Model: model,
			Choices: []types.ChoiceDelta{
				{Index: 0, Delta: types.MessageDelta{Role: types.RoleAssistant, Content: "Mock "}},
			},
		},
		{
			ID:    "chunk-2",
			Model: model,
			Choices: []types.ChoiceDelta{
				{Index: 0, Delta: types.MessageDelta{Content: "stream"}, FinishReason: types.FinishReasonStop},
			},
			Usage: &types.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
		},
	}
}

// MockStream is a ChatCompletionStream backed by a fixed chunk slice
type MockStream struct {
	mu     sync.Mutex
	chunks []types.ChatCompletionChunk
	index  int
	err    error
	closed bool
}

// NewMockStream creates a stream delivering the given chunks then io.EOF
func NewMockStream(chunks []types.ChatCompletionChunk) *MockStream {
	return &MockStream{chunks: chunks}
}

// SetError configures the stream to fail on the next Next call
func (s *MockStream) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Next returns the next chunk, io.EOF when exhausted
func (s *MockStream) Next() (types.ChatCompletionChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return types.ChatCompletionChunk{}, s.err
	}
	if s.index >= len(s.chunks) {
		return types.ChatCompletionChunk{}, io.EOF
	}
	chunk := s.chunks[s.index]
	s.index++
	return chunk, nil
}

// Close marks the stream closed
func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
