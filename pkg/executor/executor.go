// Package executor provides the high-level entry point of the runtime. An
// Executor wraps a Provider with a static layer chain and a dynamic plugin
// engine and exposes GenerateText, GenerateObject and StreamText on top of
// the provider's chat completion operations.
package executor

import (
	"context"
	"log/slog"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/layer"
	"github.com/cecil-the-coder/ai-runtime-kit/pkg/plugin"
	"github.com/cecil-the-coder/ai-runtime-kit/pkg/strategy"
	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// Builder assembles an Executor. Layers are applied in the order given, the
// first layer added becoming the outermost. Plugins run in the order given.
// Configuration is frozen by Build; the resulting Executor is immutable and
// safe for concurrent use.
type Builder struct {
	provider types.Provider
	layers   []layer.Layer
	plugins  []plugin.Plugin
	strategy strategy.JSONOutputStrategy
	logger   *slog.Logger
}

// New creates a builder around the given provider
func New(provider types.Provider) *Builder {
	return &Builder{provider: provider}
}

// Layer adds a layer to the chain. The first layer added observes every call
// before and after all layers added later.
func (b *Builder) Layer(l layer.Layer) *Builder {
	b.layers = append(b.layers, l)
	return b
}

// Plugin registers a plugin. Hooks run in registration order.
func (b *Builder) Plugin(p plugin.Plugin) *Builder {
	b.plugins = append(b.plugins, p)
	return b
}

// Strategy overrides the structured-output strategy. When unset, the
// strategy is selected per call from the provider identifier.
func (b *Builder) Strategy(s strategy.JSONOutputStrategy) *Builder {
	b.strategy = s
	return b
}

// Logger sets the logger used by the executor and its plugin engine
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build finalizes the configuration and returns the executor
func (b *Builder) Build() *Executor {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		provider: layer.Chain(b.provider, b.layers...),
		info:     b.provider.Info(),
		engine:   plugin.NewEngine(b.plugins, logger),
		strategy: b.strategy,
		logger:   logger,
	}
}

// Executor orchestrates chat completion calls through the plugin lifecycle,
// the structured-output strategy, and the layered provider. Each call builds
// its own request and request context; concurrent calls share nothing but
// the immutable configuration.
type Executor struct {
	provider types.Provider
	info     types.ProviderInfo
	engine   *plugin.Engine
	strategy strategy.JSONOutputStrategy
	logger   *slog.Logger
}

// Info returns the underlying provider's identity
func (e *Executor) Info() types.ProviderInfo {
	return e.info
}

// Engine returns the plugin engine
func (e *Executor) Engine() *plugin.Engine {
	return e.engine
}

// GenerateText runs a text generation call through the full pipeline and
// returns the primary candidate's text.
func (e *Executor) GenerateText(ctx context.Context, model string, params types.TextParams) (*types.TextResult, error) {
	if len(params.Messages) == 0 {
		return nil, types.NewInvalidRequestError(e.info.ID, "at least one message is required")
	}

	rc := types.NewRequestContext(e.info.ID, model)

	req, err := e.prepare(ctx, rc, model, params, nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.provider.ChatCompletion(ctx, *req)
	if err != nil {
		e.engine.OnError(ctx, err, rc)
		return nil, err
	}

	result, err := e.projectText(resp)
	if err != nil {
		e.engine.OnError(ctx, err, rc)
		return nil, err
	}

	result, err = e.engine.TransformResult(ctx, result, rc)
	if err != nil {
		return nil, err
	}

	e.engine.OnRequestEnd(ctx, rc, result)
	return result, nil
}

// GenerateObject runs a structured generation call: it shapes the request
// with the configured strategy (or the one selected for the provider),
// executes the pipeline, and parses the primary candidate's text against the
// caller's schema. A parse failure is reported as a schema mismatch, a
// distinct error from any transport failure.
func (e *Executor) GenerateObject(ctx context.Context, model string, params types.ObjectParams) (*types.ObjectResult, error) {
	if len(params.Messages) == 0 {
		return nil, types.NewInvalidRequestError(e.info.ID, "at least one message is required")
	}
	if len(params.Schema) == 0 {
		return nil, types.NewInvalidRequestError(e.info.ID, "schema is required")
	}

	rc := types.NewRequestContext(e.info.ID, model)

	textParams := types.TextParams{
		Messages:    params.Messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}
	req, err := e.prepare(ctx, rc, model, textParams, params.Schema)
	if err != nil {
		return nil, err
	}

	resp, err := e.provider.ChatCompletion(ctx, *req)
	if err != nil {
		e.engine.OnError(ctx, err, rc)
		return nil, err
	}

	result, err := e.projectText(resp)
	if err != nil {
		e.engine.OnError(ctx, err, rc)
		return nil, err
	}

	result, err = e.engine.TransformResult(ctx, result, rc)
	if err != nil {
		return nil, err
	}

	object, err := decodeObject(e.info.ID, result.Content)
	if err != nil {
		return nil, err
	}

	objResult := &types.ObjectResult{
		Object: object,
		Usage:  result.Usage,
		Model:  result.Model,
	}
	e.engine.OnRequestEnd(ctx, rc, result)
	return objResult, nil
}

// StreamText runs the pre-call pipeline and dispatches a streaming call.
// The returned stream delivers chunks as the provider produces them; the
// caller owns the stream and must close it. Plugin result hooks do not apply
// to streams, only the pre-call hooks and the on-error notification at
// dispatch.
func (e *Executor) StreamText(ctx context.Context, model string, params types.TextParams) (types.ChatCompletionStream, error) {
	if len(params.Messages) == 0 {
		return nil, types.NewInvalidRequestError(e.info.ID, "at least one message is required")
	}

	rc := types.NewRequestContext(e.info.ID, model)

	req, err := e.prepare(ctx, rc, model, params, nil)
	if err != nil {
		return nil, err
	}
	req.Stream = true

	stream, err := e.provider.StreamChatCompletion(ctx, *req)
	if err != nil {
		e.engine.OnError(ctx, err, rc)
		return nil, err
	}
	return stream, nil
}

// prepare runs the pre-call pipeline: model resolution, parameter
// transformation, the request-start notification, request construction and,
// when schema is non-nil, strategy application. Any failure triggers the
// plugin on-error pass before propagating.
func (e *Executor) prepare(ctx context.Context, rc *types.RequestContext, model string, params types.TextParams, schema []byte) (*types.ChatCompletionRequest, error) {
	fail := func(err error) (*types.ChatCompletionRequest, error) {
		e.engine.OnError(ctx, err, rc)
		return nil, err
	}

	resolved, err := e.engine.ResolveModel(ctx, model, rc)
	if err != nil {
		return fail(err)
	}
	rc.Model = resolved

	params, err = e.engine.TransformParams(ctx, params, rc)
	if err != nil {
		return fail(err)
	}

	if err := e.engine.OnRequestStart(ctx, rc); err != nil {
		return fail(err)
	}

	req := types.ChatCompletionRequest{
		Model:            resolved,
		Messages:         params.Messages,
		Temperature:      params.Temperature,
		MaxTokens:        params.MaxTokens,
		TopP:             params.TopP,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
		Stop:             params.Stop,
		Tools:            params.Tools,
		ResponseFormat:   types.TextFormat(),
		Extra:            params.Extra,
	}

	if schema != nil {
		req.ResponseFormat = nil
		shaped, err := e.selectStrategy().Apply(req, schema)
		if err != nil {
			return fail(err)
		}
		req = shaped
	}

	if err := req.Validate(); err != nil {
		return fail(err)
	}
	return &req, nil
}

func (e *Executor) selectStrategy() strategy.JSONOutputStrategy {
	if e.strategy != nil {
		return e.strategy
	}
	return strategy.Select(e.info.ID)
}

// projectText maps a normalized response onto the application-facing result
func (e *Executor) projectText(resp *types.ChatCompletionResponse) (*types.TextResult, error) {
	choice := resp.FirstChoice()
	if choice == nil {
		return nil, types.NewMalformedResponseError(e.info.ID, "response contains no choices")
	}
	return &types.TextResult{
		Content:      choice.Message.Text(),
		FinishReason: choice.FinishReason,
		Usage:        resp.Usage,
		Model:        resp.Model,
		ToolCalls:    choice.Message.ToolCalls(),
	}, nil
}
