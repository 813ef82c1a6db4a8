package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

func chatRequest() types.ChatCompletionRequest {
	return types.ChatCompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: []types.Message{types.UserMessage("Hello")},
	}
}

func successBody() string {
	return `{
		"id": "chatcmpl-123",
		"model": "gpt-4o-mini",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "Hi there"},
			"finish_reason": "stop"
		}],
		"usage": {"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12}
	}`
}

func TestNew_RequiresCredential(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeConfiguration, types.CodeOf(err))

	_, err = New("sk-test")
	require.NoError(t, err)

	// A base URL override is enough for keyless local deployments.
	_, err = New("", WithBaseURL("http://localhost:11434/v1"))
	require.NoError(t, err)
}

func TestChatCompletion_Success(t *testing.T) {
	var captured wireRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(successBody()))
	}))
	defer server.Close()

	provider, err := New("sk-test", WithBaseURL(server.URL+"/v1"))
	require.NoError(t, err)

	resp, err := provider.ChatCompletion(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-123", resp.ID)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Hi there", resp.Choices[0].Message.Text())
	assert.Equal(t, types.FinishReasonStop, resp.Choices[0].FinishReason)
	assert.Equal(t, 12, resp.Usage.TotalTokens)

	// Single-text-part messages flatten to the plain-string form.
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "Hello", captured.Messages[0].Content)
	assert.False(t, captured.Stream)
}

func TestChatCompletion_SchemaResponseFormat(t *testing.T) {
	var captured wireRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(successBody()))
	}))
	defer server.Close()

	provider, err := New("sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	req := chatRequest()
	req.ResponseFormat = types.JSONSchemaFormat("response", json.RawMessage(`{"type":"object"}`), true)
	_, err = provider.ChatCompletion(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_schema", captured.ResponseFormat.Type)
	require.NotNil(t, captured.ResponseFormat.JSONSchema)
	assert.Equal(t, "response", captured.ResponseFormat.JSONSchema.Name)
	assert.True(t, captured.ResponseFormat.JSONSchema.Strict)
}

func TestChatCompletion_ToolCallsDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-tc",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {"name": "get_weather", "arguments": "{\"city\":\"Paris\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
		}`))
	}))
	defer server.Close()

	provider, err := New("sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	resp, err := provider.ChatCompletion(context.Background(), chatRequest())
	require.NoError(t, err)

	choice := resp.FirstChoice()
	require.NotNil(t, choice)
	assert.Equal(t, types.FinishReasonToolCalls, choice.FinishReason)

	calls := choice.Message.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ID)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.JSONEq(t, `{"city":"Paris"}`, string(calls[0].Arguments))
}

func TestChatCompletion_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		headers    map[string]string
		wantCode   types.ErrorCode
		wantMsg    string
		retryable  bool
		retryAfter int
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`,
			wantCode: types.ErrCodeAuthentication,
			wantMsg:  "Incorrect API key provided",
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error": {"message": "Rate limit reached", "type": "rate_limit_exceeded"}}`,
			headers:    map[string]string{"Retry-After": "7"},
			wantCode:   types.ErrCodeRateLimit,
			wantMsg:    "Rate limit reached",
			retryable:  true,
			retryAfter: 7,
		},
		{
			name:      "server error with unparseable body",
			status:    http.StatusInternalServerError,
			body:      "upstream exploded",
			wantCode:  types.ErrCodeServerError,
			wantMsg:   "API error: 500",
			retryable: true,
		},
		{
			name:     "model not found",
			status:   http.StatusNotFound,
			body:     `{"error": {"message": "The model does not exist", "type": "invalid_request_error"}}`,
			wantCode: types.ErrCodeNotFound,
			wantMsg:  "The model does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, err := New("sk-test", WithBaseURL(server.URL))
			require.NoError(t, err)

			_, err = provider.ChatCompletion(context.Background(), chatRequest())
			require.Error(t, err)

			var pe *types.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantCode, pe.Code)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Contains(t, pe.Message, tt.wantMsg)
			assert.Equal(t, tt.retryable, pe.IsRetryable())
			assert.Equal(t, tt.retryAfter, pe.RetryAfter)
		})
	}
}

func TestChatCompletion_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	provider, err := New("sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = provider.ChatCompletion(context.Background(), chatRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeMalformedResponse, types.CodeOf(err))
}

func TestChatCompletion_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	provider, err := New("sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = provider.ChatCompletion(ctx, chatRequest())
	require.ErrorIs(t, err, context.Canceled)
}

func TestChatCompletion_TokenSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer oauth-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(successBody()))
	}))
	defer server.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "oauth-token", TokenType: "Bearer"})
	provider, err := New("", WithBaseURL(server.URL), WithTokenSource(ts))
	require.NoError(t, err)

	_, err = provider.ChatCompletion(context.Background(), chatRequest())
	require.NoError(t, err)
}

func TestStreamChatCompletion_DecodesSSE(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var captured wireRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		assert.True(t, captured.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"id\":\"c1\",\"model\":\"gpt-4o-mini\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"Hel\"}}]}\n\n" +
				": keep-alive comment\n\n" +
				"data: {\"id\":\"c2\",\"model\":\"gpt-4o-mini\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}],\"usage\":{\"prompt_tokens\":4,\"completion_tokens\":2,\"total_tokens\":6}}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer server.Close()

	provider, err := New("sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	stream, err := provider.StreamChatCompletion(context.Background(), chatRequest())
	require.NoError(t, err)
	defer stream.Close()

	first, err := stream.Next()
	require.NoError(t, err)
	require.Len(t, first.Choices, 1)
	assert.Equal(t, "Hel", first.Choices[0].Delta.Content)
	assert.Equal(t, types.RoleAssistant, first.Choices[0].Delta.Role)

	second, err := stream.Next()
	require.NoError(t, err)
	require.Len(t, second.Choices, 1)
	assert.Equal(t, "lo", second.Choices[0].Delta.Content)
	assert.Equal(t, types.FinishReasonStop, second.Choices[0].FinishReason)
	require.NotNil(t, second.Usage)
	assert.Equal(t, 6, second.Usage.TotalTokens)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)

	// Exhausted streams keep returning EOF.
	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamChatCompletion_DispatchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	provider, err := New("sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = provider.StreamChatCompletion(context.Background(), chatRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeServerError, types.CodeOf(err))
	assert.True(t, types.Retryable(err))
}

func TestEncodeMessage_ToolResult(t *testing.T) {
	msg := types.ToolMessage("call-1", json.RawMessage(`{"temp_c":21}`))
	encoded := encodeMessage(msg)
	assert.Equal(t, "tool", encoded.Role)
	assert.Equal(t, "call-1", encoded.ToolCallID)
	assert.JSONEq(t, `{"temp_c":21}`, encoded.Content.(string))
}
