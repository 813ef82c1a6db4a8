package plugin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// Engine runs registered plugins through the call lifecycle. Registration
// order is execution order for every phase. The engine is immutable after
// construction and safe for concurrent use.
type Engine struct {
	plugins []Plugin
	logger  *slog.Logger
}

// NewEngine creates an engine over the given plugins. A nil logger falls
// back to slog.Default.
func NewEngine(plugins []Plugin, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		plugins: append([]Plugin(nil), plugins...),
		logger:  logger,
	}
}

// Plugins returns the registered plugins in registration order
func (e *Engine) Plugins() []Plugin {
	return append([]Plugin(nil), e.plugins...)
}

func subscribed(p Plugin, phase Phase) bool {
	for _, ph := range p.Phases() {
		if ph == phase {
			return true
		}
	}
	return false
}

// hookError tags a hook failure with the plugin that raised it. An error
// that already carries a taxonomy code passes through untouched.
func hookError(p Plugin, err error) error {
	var pe *types.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return types.NewPluginError(p.Name(), err.Error()).WithOriginalErr(err)
}

// ResolveModel chains the resolve-model hooks: each subscribed plugin sees
// the previous plugin's output and may rewrite it further.
func (e *Engine) ResolveModel(ctx context.Context, model string, rc *types.RequestContext) (string, error) {
	for _, p := range e.plugins {
		if !subscribed(p, PhaseResolveModel) {
			continue
		}
		resolved, err := p.ResolveModel(ctx, model, rc)
		if err != nil {
			return "", hookError(p, err)
		}
		model = resolved
	}
	return model, nil
}

// TransformParams chains the transform-params hooks in registration order
func (e *Engine) TransformParams(ctx context.Context, params types.TextParams, rc *types.RequestContext) (types.TextParams, error) {
	for _, p := range e.plugins {
		if !subscribed(p, PhaseTransformParams) {
			continue
		}
		next, err := p.TransformParams(ctx, params, rc)
		if err != nil {
			return types.TextParams{}, hookError(p, err)
		}
		params = next
	}
	return params, nil
}

// OnRequestStart notifies subscribed plugins that a call is starting. The
// first hook failure aborts the call.
func (e *Engine) OnRequestStart(ctx context.Context, rc *types.RequestContext) error {
	for _, p := range e.plugins {
		if !subscribed(p, PhaseRequestStart) {
			continue
		}
		if err := p.OnRequestStart(ctx, rc); err != nil {
			return hookError(p, err)
		}
	}
	return nil
}

// TransformResult chains the transform-result hooks in registration order
func (e *Engine) TransformResult(ctx context.Context, result *types.TextResult, rc *types.RequestContext) (*types.TextResult, error) {
	for _, p := range e.plugins {
		if !subscribed(p, PhaseTransformResult) {
			continue
		}
		next, err := p.TransformResult(ctx, result, rc)
		if err != nil {
			return nil, hookError(p, err)
		}
		result = next
	}
	return result, nil
}

// OnRequestEnd notifies subscribed plugins that a call completed. Hook
// failures are logged and never unwind the already-successful result.
func (e *Engine) OnRequestEnd(ctx context.Context, rc *types.RequestContext, result *types.TextResult) {
	for _, p := range e.plugins {
		if !subscribed(p, PhaseRequestEnd) {
			continue
		}
		if err := p.OnRequestEnd(ctx, rc, result); err != nil {
			e.logger.Warn("plugin on-request-end hook failed",
				"plugin", p.Name(),
				"request_id", rc.RequestID,
				"error", err)
		}
	}
}

// OnError notifies subscribed plugins of the error that failed the call.
// This is a notification pass: a hook's own failure is logged and swallowed,
// never allowed to mask the original error.
func (e *Engine) OnError(ctx context.Context, cause error, rc *types.RequestContext) {
	for _, p := range e.plugins {
		if !subscribed(p, PhaseError) {
			continue
		}
		if err := p.OnError(ctx, cause, rc); err != nil {
			e.logger.Warn("plugin on-error hook failed",
				"plugin", p.Name(),
				"request_id", rc.RequestID,
				"error", err)
		}
	}
}
