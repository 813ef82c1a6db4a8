// Package openai implements the Provider contract against the OpenAI chat
// completions API and its many API-compatible deployments (Azure OpenAI,
// DeepSeek, vLLM, Ollama's OpenAI endpoint and others via a base URL
// override).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider is an OpenAI-compatible chat completion provider. It owns an HTTP
// client whose connection pool is shared across concurrent calls; the
// Provider itself is immutable after construction.
type Provider struct {
	info        types.ProviderInfo
	apiKey      string
	baseURL     string
	client      *http.Client
	tokenSource oauth2.TokenSource
}

// Option customizes provider construction
type Option func(*Provider)

// WithBaseURL points the provider at an API-compatible deployment
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

// WithTokenSource authenticates requests with OAuth bearer tokens instead of
// a static API key. The source is consulted per request, so refreshing
// sources work as expected.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(p *Provider) {
		p.tokenSource = ts
	}
}

// WithID overrides the provider identifier reported by Info. Useful when the
// same wire protocol fronts a different provider (e.g. "deepseek"), which
// also changes the structured-output strategy selected for it.
func WithID(id, name string) Option {
	return func(p *Provider) {
		p.info = types.ProviderInfo{ID: id, Name: name}
	}
}

// New creates an OpenAI provider. A credential is required unless a token
// source or an explicit base URL is configured: keyless construction is only
// valid for local deployments that skip authentication.
func New(apiKey string, opts ...Option) (*Provider, error) {
	p := &Provider{
		info:    types.ProviderInfo{ID: "openai", Name: "OpenAI"},
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.apiKey == "" && p.tokenSource == nil && p.baseURL == defaultBaseURL {
		return nil, types.NewConfigurationError("openai: an API key, token source, or base URL override is required")
	}
	return p, nil
}

// Info implements types.Provider
func (p *Provider) Info() types.ProviderInfo {
	return p.info
}

// ChatCompletion implements types.Provider
func (p *Provider) ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	httpResp, err := p.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, types.NewNetworkError(p.info.ID, "failed to read response body").
			WithOriginalErr(err).WithOperation("chat_completion")
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, p.classifyError(httpResp, body).WithOperation("chat_completion")
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, types.NewMalformedResponseError(p.info.ID, "failed to parse response body").
			WithOriginalErr(err).WithOperation("chat_completion")
	}
	return decodeResponse(wr), nil
}

// StreamChatCompletion implements types.Provider. The returned stream holds
// the HTTP response body until Close.
func (p *Provider) StreamChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionStream, error) {
	httpResp, err := p.post(ctx, req, true)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		_ = httpResp.Body.Close()
		return nil, p.classifyError(httpResp, body).WithOperation("stream_chat_completion")
	}

	return newSSEStream(p.info.ID, httpResp), nil
}

// post sends the encoded request to the chat completions endpoint
func (p *Provider) post(ctx context.Context, req types.ChatCompletionRequest, stream bool) (*http.Response, error) {
	wr := encodeRequest(req)
	wr.Stream = stream

	jsonBody, err := json.Marshal(wr)
	if err != nil {
		return nil, types.NewInvalidRequestError(p.info.ID, "failed to marshal request").WithOriginalErr(err)
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, types.NewInvalidRequestError(p.info.ID, "failed to create request").WithOriginalErr(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := p.setAuth(httpReq); err != nil {
		return nil, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.NewNetworkError(p.info.ID, "request failed").WithOriginalErr(err)
	}
	return httpResp, nil
}

func (p *Provider) setAuth(req *http.Request) error {
	if p.tokenSource != nil {
		token, err := p.tokenSource.Token()
		if err != nil {
			return types.NewAuthError(p.info.ID, "failed to obtain OAuth token").WithOriginalErr(err)
		}
		token.SetAuthHeader(req)
		return nil
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	return nil
}

// classifyError maps a non-success HTTP response onto the error taxonomy,
// preferring the provider-supplied message when the body parses.
func (p *Provider) classifyError(resp *http.Response, body []byte) *types.ProviderError {
	message := fmt.Sprintf("API error: %d", resp.StatusCode)
	var wer wireErrorResponse
	if err := json.Unmarshal(body, &wer); err == nil && wer.Error.Message != "" {
		message = wer.Error.Message
	}

	code := types.ClassifyHTTPStatus(resp.StatusCode)
	perr := types.NewProviderError(p.info.ID, code, message).WithStatusCode(resp.StatusCode)

	if code == types.ErrCodeRateLimit {
		if after := resp.Header.Get("Retry-After"); after != "" {
			if seconds, err := strconv.Atoi(after); err == nil {
				perr = perr.WithRetryAfter(seconds)
			}
		}
	}
	if id := resp.Header.Get("X-Request-Id"); id != "" {
		perr = perr.WithRequestID(id)
	}
	return perr
}
