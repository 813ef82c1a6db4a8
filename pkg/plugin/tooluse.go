package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// ToolExecutor executes a named tool against raw JSON arguments
type ToolExecutor interface {
	// Definition describes the tool to the model
	Definition() types.Tool

	// Execute runs the tool and returns its raw JSON result
	Execute(ctx context.Context, arguments json.RawMessage) (json.RawMessage, error)
}

// ToolFunc is the signature of a function-backed tool implementation
type ToolFunc func(ctx context.Context, arguments json.RawMessage) (json.RawMessage, error)

// FuncTool adapts a plain function into a ToolExecutor
type FuncTool struct {
	def types.Tool
	fn  ToolFunc
}

// NewFuncTool creates a function-backed tool. Parameters is the JSON Schema
// describing the tool's argument object.
func NewFuncTool(name, description string, parameters json.RawMessage, fn ToolFunc) *FuncTool {
	return &FuncTool{
		def: types.Tool{Name: name, Description: description, Parameters: parameters},
		fn:  fn,
	}
}

// Definition implements ToolExecutor
func (t *FuncTool) Definition() types.Tool {
	return t.def
}

// Execute implements ToolExecutor
func (t *FuncTool) Execute(ctx context.Context, arguments json.RawMessage) (json.RawMessage, error) {
	return t.fn(ctx, arguments)
}

// ToolRegistry holds the tools available to a ToolUse plugin. Registration
// order is preserved so tool definitions reach the model deterministically.
type ToolRegistry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]ToolExecutor
}

// NewToolRegistry creates an empty registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]ToolExecutor)}
}

// Register adds a tool under its definition name. Re-registering a name
// replaces the previous tool but keeps its original position.
func (r *ToolRegistry) Register(tool ToolExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Definition().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Definitions returns all tool definitions in registration order
func (r *ToolRegistry) Definitions() []types.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]types.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool with the given arguments
func (r *ToolRegistry) Execute(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, types.NewPluginError("tool_use", fmt.Sprintf("tool %s not found", name))
	}
	return tool.Execute(ctx, arguments)
}

// Len returns the number of registered tools
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ToolUse lets applications expose callable tools through the runtime. On
// the way in it advertises the registry's tool definitions to the model; on
// the way out it executes any tool calls the model requested and records the
// outputs in the request context, where the caller can pick them up to drive
// a follow-up round.
type ToolUse struct {
	Base

	registry    *ToolRegistry
	autoExecute bool
	logger      *slog.Logger
}

// NewToolUse creates a tool-use plugin over the given registry with
// automatic execution enabled
func NewToolUse(registry *ToolRegistry) *ToolUse {
	return &ToolUse{registry: registry, autoExecute: true, logger: slog.Default()}
}

// WithAutoExecute toggles automatic execution of requested tool calls
func (p *ToolUse) WithAutoExecute(auto bool) *ToolUse {
	p.autoExecute = auto
	return p
}

// WithLogger sets the logger used for tool execution events
func (p *ToolUse) WithLogger(logger *slog.Logger) *ToolUse {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Name implements Plugin
func (p *ToolUse) Name() string {
	return "tool_use"
}

// Phases implements Plugin
func (p *ToolUse) Phases() []Phase {
	return []Phase{PhaseTransformParams, PhaseTransformResult}
}

// TransformParams advertises the registered tools to the model
func (p *ToolUse) TransformParams(_ context.Context, params types.TextParams, _ *types.RequestContext) (types.TextParams, error) {
	if defs := p.registry.Definitions(); len(defs) > 0 {
		params.Tools = defs
	}
	return params, nil
}

// TransformResult executes tool calls requested by the model. Each output is
// stored in the request context metadata under "tool_result:<call-id>". A
// failing tool fails the call with a plugin error.
func (p *ToolUse) TransformResult(ctx context.Context, result *types.TextResult, rc *types.RequestContext) (*types.TextResult, error) {
	if result.FinishReason != types.FinishReasonToolCalls || !p.autoExecute {
		return result, nil
	}
	if len(result.ToolCalls) == 0 {
		return result, nil
	}

	for _, call := range result.ToolCalls {
		output, err := p.registry.Execute(ctx, call.Name, call.Arguments)
		if err != nil {
			return nil, err
		}
		rc.Set("tool_result:"+call.ID, string(output))
		p.logger.Debug("tool executed",
			"tool", call.Name,
			"call_id", call.ID,
			"request_id", rc.RequestID)
	}
	return result, nil
}
