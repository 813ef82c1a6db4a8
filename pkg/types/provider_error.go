package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode categorizes pipeline and provider errors
type ErrorCode string

const (
	ErrCodeUnknown        ErrorCode = "unknown"
	ErrCodeAuthentication ErrorCode = "authentication"
	ErrCodeRateLimit      ErrorCode = "rate_limit"
	ErrCodeInvalidRequest ErrorCode = "invalid_request"
	ErrCodeNotFound       ErrorCode = "not_found"
	ErrCodeServerError    ErrorCode = "server_error"
	ErrCodeTimeout        ErrorCode = "timeout"
	ErrCodeNetwork        ErrorCode = "network"
	ErrCodeContentFilter  ErrorCode = "content_filter"

	// ErrCodeMalformedResponse marks a payload that did not parse into the
	// normalized response shape. Deterministic for a given request, so never
	// retried.
	ErrCodeMalformedResponse ErrorCode = "malformed_response"

	// ErrCodeSchemaMismatch marks structured output that failed to parse or
	// validate against the caller's schema. Never retried.
	ErrCodeSchemaMismatch ErrorCode = "schema_mismatch"

	// ErrCodePlugin marks a failure raised by a plugin hook
	ErrCodePlugin ErrorCode = "plugin"

	// ErrCodeConfiguration marks a construction-time configuration failure
	// such as a missing credential or endpoint
	ErrCodeConfiguration ErrorCode = "configuration"
)

// RetryableError is implemented by errors that can report whether a retry
// might succeed. Layers check this capability on the error value instead of
// switching on vendor names, which keeps retry logic provider-agnostic.
type RetryableError interface {
	error
	IsRetryable() bool
}

// ProviderError is the standardized error for provider and pipeline failures
type ProviderError struct {
	Code        ErrorCode // Categorized error code
	Message     string    // Human-readable message
	StatusCode  int       // HTTP status code (0 if not applicable)
	Provider    string    // Provider ID that generated this error, if any
	Operation   string    // What operation failed (e.g. "chat_completion")
	OriginalErr error     // Wrapped original error
	RetryAfter  int       // Seconds to wait before retry (for rate limits)
	RequestID   string    // Provider's request ID if available
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	prefix := "ai"
	if e.Provider != "" {
		prefix = e.Provider
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s (status=%d, code=%s)", prefix, e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("[%s] %s (code=%s)", prefix, e.Message, e.Code)
}

// Unwrap returns the original error for errors.Is/As
func (e *ProviderError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns true if the error is potentially recoverable with retry.
// Only transport-level and rate-limit failures qualify; malformed responses
// and schema mismatches are deterministic given the same request.
func (e *ProviderError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeServerError, ErrCodeTimeout, ErrCodeNetwork:
		return true
	}
	return false
}

// IsRateLimited returns true for rate-limit errors
func (e *ProviderError) IsRateLimited() bool {
	return e.Code == ErrCodeRateLimit
}

// WithOperation sets the operation field and returns the error for chaining
func (e *ProviderError) WithOperation(operation string) *ProviderError {
	e.Operation = operation
	return e
}

// WithStatusCode sets the status code field and returns the error for chaining
func (e *ProviderError) WithStatusCode(statusCode int) *ProviderError {
	e.StatusCode = statusCode
	return e
}

// WithOriginalErr sets the original error field and returns the error for chaining
func (e *ProviderError) WithOriginalErr(err error) *ProviderError {
	e.OriginalErr = err
	return e
}

// WithRequestID sets the request ID field and returns the error for chaining
func (e *ProviderError) WithRequestID(requestID string) *ProviderError {
	e.RequestID = requestID
	return e
}

// WithRetryAfter sets the retry-after field and returns the error for chaining
func (e *ProviderError) WithRetryAfter(retryAfter int) *ProviderError {
	e.RetryAfter = retryAfter
	return e
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider string, code ErrorCode, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message, Provider: provider}
}

// NewAuthError creates a new authentication error
func NewAuthError(provider, message string) *ProviderError {
	return NewProviderError(provider, ErrCodeAuthentication, message)
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(provider string, retryAfter int) *ProviderError {
	return &ProviderError{
		Code:       ErrCodeRateLimit,
		Message:    "rate limit exceeded",
		Provider:   provider,
		RetryAfter: retryAfter,
	}
}

// NewServerError creates a new server error
func NewServerError(provider string, statusCode int, message string) *ProviderError {
	return &ProviderError{
		Code:       ErrCodeServerError,
		Message:    message,
		Provider:   provider,
		StatusCode: statusCode,
	}
}

// NewInvalidRequestError creates a new invalid request error
func NewInvalidRequestError(provider, message string) *ProviderError {
	return NewProviderError(provider, ErrCodeInvalidRequest, message)
}

// NewNetworkError creates a new network error
func NewNetworkError(provider, message string) *ProviderError {
	return NewProviderError(provider, ErrCodeNetwork, message)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(provider, message string) *ProviderError {
	return NewProviderError(provider, ErrCodeTimeout, message)
}

// NewMalformedResponseError creates a new malformed response error
func NewMalformedResponseError(provider, message string) *ProviderError {
	return NewProviderError(provider, ErrCodeMalformedResponse, message)
}

// NewSchemaMismatchError creates a new schema mismatch error
func NewSchemaMismatchError(provider, message string) *ProviderError {
	return NewProviderError(provider, ErrCodeSchemaMismatch, message)
}

// NewPluginError creates a new plugin error attributed to the named plugin
func NewPluginError(plugin, message string) *ProviderError {
	return &ProviderError{
		Code:      ErrCodePlugin,
		Message:   fmt.Sprintf("plugin %s: %s", plugin, message),
		Operation: plugin,
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string) *ProviderError {
	return &ProviderError{Code: ErrCodeConfiguration, Message: message}
}

// ClassifyHTTPStatus determines the error code for an HTTP status
func ClassifyHTTPStatus(statusCode int) ErrorCode {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCodeAuthentication
	case http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusRequestTimeout:
		return ErrCodeTimeout
	default:
		if statusCode >= 500 {
			return ErrCodeServerError
		}
		return ErrCodeUnknown
	}
}

// Retryable reports whether err (or any error it wraps) declares itself
// retryable via the RetryableError capability
func Retryable(err error) bool {
	var re RetryableError
	if errors.As(err, &re) {
		return re.IsRetryable()
	}
	return false
}

// CodeOf extracts the error code from err, or ErrCodeUnknown when err does
// not wrap a ProviderError
func CodeOf(err error) ErrorCode {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeUnknown
}
