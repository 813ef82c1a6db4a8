package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderError_Error(t *testing.T) {
	err := NewServerError("openai", 502, "bad gateway")
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "status=502")
	assert.Contains(t, err.Error(), "code=server_error")

	noStatus := NewAuthError("openai", "invalid key")
	assert.Contains(t, noStatus.Error(), "code=authentication")
	assert.NotContains(t, noStatus.Error(), "status=")
}

func TestProviderError_IsRetryable(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeNetwork, true},
		{ErrCodeTimeout, true},
		{ErrCodeServerError, true},
		{ErrCodeRateLimit, true},
		{ErrCodeAuthentication, false},
		{ErrCodeInvalidRequest, false},
		{ErrCodeNotFound, false},
		{ErrCodeContentFilter, false},
		{ErrCodeMalformedResponse, false},
		{ErrCodeSchemaMismatch, false},
		{ErrCodePlugin, false},
		{ErrCodeConfiguration, false},
		{ErrCodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := NewProviderError("test", tt.code, "boom")
			assert.Equal(t, tt.retryable, err.IsRetryable())
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := NewNetworkError("openai", "request failed").WithOriginalErr(inner)

	assert.ErrorIs(t, err, inner)
}

func TestProviderError_Chaining(t *testing.T) {
	err := NewRateLimitError("openai", 30).
		WithOperation("chat_completion").
		WithStatusCode(429).
		WithRequestID("req-123")

	assert.Equal(t, "chat_completion", err.Operation)
	assert.Equal(t, 429, err.StatusCode)
	assert.Equal(t, "req-123", err.RequestID)
	assert.Equal(t, 30, err.RetryAfter)
	assert.True(t, err.IsRateLimited())
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		code   ErrorCode
	}{
		{http.StatusUnauthorized, ErrCodeAuthentication},
		{http.StatusForbidden, ErrCodeAuthentication},
		{http.StatusTooManyRequests, ErrCodeRateLimit},
		{http.StatusBadRequest, ErrCodeInvalidRequest},
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusRequestTimeout, ErrCodeTimeout},
		{http.StatusInternalServerError, ErrCodeServerError},
		{http.StatusBadGateway, ErrCodeServerError},
		{http.StatusServiceUnavailable, ErrCodeServerError},
		{http.StatusTeapot, ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.code, ClassifyHTTPStatus(tt.status))
		})
	}
}

func TestRetryable_UnwrapsCapability(t *testing.T) {
	base := NewTimeoutError("openai", "deadline exceeded")
	wrapped := fmt.Errorf("layer context: %w", base)

	assert.True(t, Retryable(wrapped))
	assert.False(t, Retryable(errors.New("plain error")))
	assert.False(t, Retryable(nil))

	permanent := fmt.Errorf("wrapped: %w", NewAuthError("openai", "bad key"))
	assert.False(t, Retryable(permanent))
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, ErrCodeSchemaMismatch,
		CodeOf(fmt.Errorf("outer: %w", NewSchemaMismatchError("", "no match"))))
	require.Equal(t, ErrCodeUnknown, CodeOf(errors.New("opaque")))
}
