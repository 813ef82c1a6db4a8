// Package plugin provides the dynamic extension mechanism of the runtime.
//
// Where layers wrap a Provider with pre/post behavior around the wire
// exchange, plugins hook into the high-level call lifecycle: they can rewrite
// the model identifier, transform parameters and results, and observe request
// start, end, and error events. Plugins are registered once at executor
// construction and iterated at call time.
package plugin

import (
	"context"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// Phase is a lifecycle point a plugin may subscribe to. The engine only
// invokes a hook when the plugin declares its phase; invoking an unsubscribed
// hook is still a harmless no-op, subscription is a filter, not a guard.
type Phase string

const (
	PhaseResolveModel    Phase = "resolve_model"
	PhaseTransformParams Phase = "transform_params"
	PhaseRequestStart    Phase = "on_request_start"
	PhaseTransformResult Phase = "transform_result"
	PhaseRequestEnd      Phase = "on_request_end"
	PhaseError           Phase = "on_error"
)

// Plugin is a registered extension with declared lifecycle phases.
//
// Hooks run in registration order within each phase. The transform hooks
// (ResolveModel, TransformParams, TransformResult) chain: each plugin sees
// the previous plugin's output. The observation hooks (OnRequestStart,
// OnRequestEnd, OnError) are side-effecting only.
//
// Embed Base to get no-op implementations of every hook, then override the
// ones the plugin participates in and declare them in Phases.
type Plugin interface {
	// Name identifies the plugin in logs and error attribution.
	Name() string

	// Phases declares the lifecycle points this plugin participates in.
	Phases() []Phase

	// ResolveModel may rewrite or alias the model identifier.
	ResolveModel(ctx context.Context, model string, rc *types.RequestContext) (string, error)

	// TransformParams may rewrite the high-level request parameters.
	TransformParams(ctx context.Context, params types.TextParams, rc *types.RequestContext) (types.TextParams, error)

	// OnRequestStart observes the start of a call. An error here aborts the
	// call before any wire exchange.
	OnRequestStart(ctx context.Context, rc *types.RequestContext) error

	// TransformResult may rewrite the high-level result.
	TransformResult(ctx context.Context, result *types.TextResult, rc *types.RequestContext) (*types.TextResult, error)

	// OnRequestEnd observes a successfully completed call. Failures here are
	// logged but never unwind the already-successful result.
	OnRequestEnd(ctx context.Context, rc *types.RequestContext, result *types.TextResult) error

	// OnError is notified of the originating error when a call fails before
	// completion. It cannot alter or suppress the error.
	OnError(ctx context.Context, cause error, rc *types.RequestContext) error
}

// Base provides no-op implementations of every Plugin hook. Plugins embed it
// and override only the hooks they declare in Phases. Name and Phases are
// deliberately not provided: every plugin must identify itself.
type Base struct{}

// ResolveModel returns the model unchanged
func (Base) ResolveModel(_ context.Context, model string, _ *types.RequestContext) (string, error) {
	return model, nil
}

// TransformParams returns the parameters unchanged
func (Base) TransformParams(_ context.Context, params types.TextParams, _ *types.RequestContext) (types.TextParams, error) {
	return params, nil
}

// OnRequestStart does nothing
func (Base) OnRequestStart(_ context.Context, _ *types.RequestContext) error {
	return nil
}

// TransformResult returns the result unchanged
func (Base) TransformResult(_ context.Context, result *types.TextResult, _ *types.RequestContext) (*types.TextResult, error) {
	return result, nil
}

// OnRequestEnd does nothing
func (Base) OnRequestEnd(_ context.Context, _ *types.RequestContext, _ *types.TextResult) error {
	return nil
}

// OnError does nothing
func (Base) OnError(_ context.Context, _ error, _ *types.RequestContext) error {
	return nil
}
