package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecil-the-coder/ai-runtime-kit/internal/testutil"
	"github.com/cecil-the-coder/ai-runtime-kit/pkg/layer"
	"github.com/cecil-the-coder/ai-runtime-kit/pkg/plugin"
	"github.com/cecil-the-coder/ai-runtime-kit/pkg/strategy"
	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

func userParams(text string) types.TextParams {
	return types.NewTextParams([]types.Message{types.UserMessage(text)})
}

// aliasPlugin rewrites a single model name and records lifecycle events
type aliasPlugin struct {
	plugin.Base

	from, to string
	events   []string
}

func (p *aliasPlugin) Name() string { return "alias" }

func (p *aliasPlugin) Phases() []plugin.Phase {
	return []plugin.Phase{plugin.PhaseResolveModel, plugin.PhaseRequestStart, plugin.PhaseRequestEnd, plugin.PhaseError}
}

func (p *aliasPlugin) ResolveModel(_ context.Context, model string, _ *types.RequestContext) (string, error) {
	if model == p.from {
		return p.to, nil
	}
	return model, nil
}

func (p *aliasPlugin) OnRequestStart(_ context.Context, _ *types.RequestContext) error {
	p.events = append(p.events, "start")
	return nil
}

func (p *aliasPlugin) OnRequestEnd(_ context.Context, _ *types.RequestContext, _ *types.TextResult) error {
	p.events = append(p.events, "end")
	return nil
}

func (p *aliasPlugin) OnError(_ context.Context, _ error, _ *types.RequestContext) error {
	p.events = append(p.events, "error")
	return nil
}

func TestGenerateText_HappyPath(t *testing.T) {
	stub := testutil.NewScriptedProvider("stub").RespondText("Hello there")
	exec := New(stub).Build()

	result, err := exec.GenerateText(context.Background(), "test-model", userParams("Hi"))
	require.NoError(t, err)
	assert.Equal(t, "Hello there", result.Content)
	assert.Equal(t, types.FinishReasonStop, result.FinishReason)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Equal(t, "scripted-model", result.Model)

	req := stub.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, types.ResponseFormatText, req.ResponseFormat.Type)
	assert.False(t, req.Stream)
}

func TestGenerateText_RequiresMessages(t *testing.T) {
	exec := New(testutil.NewScriptedProvider("stub")).Build()
	_, err := exec.GenerateText(context.Background(), "m", types.TextParams{})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidRequest, types.CodeOf(err))
}

func TestGenerateText_EmptyChoices(t *testing.T) {
	stub := testutil.NewScriptedProvider("stub").Respond(&types.ChatCompletionResponse{Model: "m"})
	exec := New(stub).Build()

	_, err := exec.GenerateText(context.Background(), "m", userParams("Hi"))
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeMalformedResponse, types.CodeOf(err))
}

func TestGenerateText_PluginLifecycle(t *testing.T) {
	stub := testutil.NewScriptedProvider("stub").RespondText("ok")
	p := &aliasPlugin{from: "fast", to: "real-model"}
	exec := New(stub).Plugin(p).Build()

	_, err := exec.GenerateText(context.Background(), "fast", userParams("Hi"))
	require.NoError(t, err)

	assert.Equal(t, "real-model", stub.LastRequest().Model)
	assert.Equal(t, []string{"start", "end"}, p.events)
}

func TestGenerateText_OnErrorNotified(t *testing.T) {
	stub := testutil.NewScriptedProvider("stub").Fail(types.NewAuthError("stub", "bad key"))
	p := &aliasPlugin{}
	exec := New(stub).Plugin(p).Build()

	_, err := exec.GenerateText(context.Background(), "m", userParams("Hi"))
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeAuthentication, types.CodeOf(err))
	assert.Equal(t, []string{"start", "error"}, p.events)
}

func TestGenerateObject_RoundTrip(t *testing.T) {
	literal := `{"name":"Ada","age":36}`
	stub := testutil.NewScriptedProvider("stub").RespondText(literal)
	exec := New(stub).Build()

	params := types.NewObjectParams(
		[]types.Message{types.UserMessage("Describe Ada")},
		json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"},"age":{"type":"integer"}}}`),
	)
	result, err := exec.GenerateObject(context.Background(), "m", params)
	require.NoError(t, err)
	assert.JSONEq(t, literal, string(result.Object))
	assert.Equal(t, 15, result.Usage.TotalTokens)

	var decoded struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	require.NoError(t, result.Decode(&decoded))
	assert.Equal(t, "Ada", decoded.Name)
	assert.Equal(t, 36, decoded.Age)
}

func TestGenerateObject_SchemaStrategyForOpenAI(t *testing.T) {
	stub := testutil.NewScriptedProvider("openai").RespondText(`{"ok":true}`)
	exec := New(stub).Build()

	params := types.NewObjectParams(
		[]types.Message{types.UserMessage("go")},
		json.RawMessage(`{"type":"object"}`),
	)
	_, err := exec.GenerateObject(context.Background(), "m", params)
	require.NoError(t, err)

	req := stub.LastRequest()
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, types.ResponseFormatJSONSchema, req.ResponseFormat.Type)
	// Schema mode leaves message content untouched.
	require.Len(t, req.Messages, 1)
	assert.Equal(t, types.RoleUser, req.Messages[0].Role)
}

func TestGenerateObject_JSONModeForUnknownProvider(t *testing.T) {
	stub := testutil.NewScriptedProvider("homegrown").RespondText(`{"ok":true}`)
	exec := New(stub).Build()

	params := types.NewObjectParams(
		[]types.Message{types.UserMessage("go")},
		json.RawMessage(`{"type":"object"}`),
	)
	_, err := exec.GenerateObject(context.Background(), "m", params)
	require.NoError(t, err)

	req := stub.LastRequest()
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, types.ResponseFormatJSONObject, req.ResponseFormat.Type)
	// The schema instruction is injected as the leading system message.
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, types.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Text(), "valid JSON")
}

func TestGenerateObject_StrategyOverride(t *testing.T) {
	// An explicit override forces JSON mode even for a schema-capable provider.
	stub := testutil.NewScriptedProvider("openai").RespondText(`{"ok":true}`)
	exec := New(stub).Strategy(strategy.NewJSONModeStrategy()).Build()

	params := types.NewObjectParams(
		[]types.Message{types.UserMessage("go")},
		json.RawMessage(`{"type":"object"}`),
	)
	_, err := exec.GenerateObject(context.Background(), "m", params)
	require.NoError(t, err)
	assert.Equal(t, types.ResponseFormatJSONObject, stub.LastRequest().ResponseFormat.Type)
}

func TestGenerateObject_RequiresSchema(t *testing.T) {
	exec := New(testutil.NewScriptedProvider("stub")).Build()
	_, err := exec.GenerateObject(context.Background(), "m", types.ObjectParams{
		Messages: []types.Message{types.UserMessage("go")},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidRequest, types.CodeOf(err))
}

func TestGenerateObject_EmptyContentIsSchemaMismatch(t *testing.T) {
	stub := testutil.NewScriptedProvider("stub").RespondText("")
	exec := New(stub).Build()

	params := types.NewObjectParams(
		[]types.Message{types.UserMessage("go")},
		json.RawMessage(`{"type":"object"}`),
	)
	_, err := exec.GenerateObject(context.Background(), "m", params)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeSchemaMismatch, types.CodeOf(err))
}

func TestGenerateObject_FencedJSON(t *testing.T) {
	stub := testutil.NewScriptedProvider("stub").RespondText("```json\n{\"name\":\"Ada\"}\n```")
	exec := New(stub).Build()

	params := types.NewObjectParams(
		[]types.Message{types.UserMessage("go")},
		json.RawMessage(`{"type":"object"}`),
	)
	result, err := exec.GenerateObject(context.Background(), "m", params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada"}`, string(result.Object))
}

func TestGenerateObject_RepairsBrokenJSON(t *testing.T) {
	// Trailing comma and single quotes, typical model sloppiness.
	stub := testutil.NewScriptedProvider("stub").RespondText(`{'name': 'Ada', 'age': 36,}`)
	exec := New(stub).Build()

	params := types.NewObjectParams(
		[]types.Message{types.UserMessage("go")},
		json.RawMessage(`{"type":"object"}`),
	)
	result, err := exec.GenerateObject(context.Background(), "m", params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada","age":36}`, string(result.Object))
}

func TestStreamText_CollectsChunks(t *testing.T) {
	stub := testutil.NewScriptedProvider("stub")
	exec := New(stub).Build()

	stream, err := exec.StreamText(context.Background(), "m", userParams("Hi"))
	require.NoError(t, err)

	result, err := CollectText(stream)
	require.NoError(t, err)
	assert.Equal(t, "Mock stream", result.Content)
	assert.Equal(t, types.FinishReasonStop, result.FinishReason)
	assert.Equal(t, 12, result.Usage.TotalTokens)
	assert.Equal(t, "scripted-model", result.Model)

	req := stub.LastRequest()
	require.NotNil(t, req)
	assert.True(t, req.Stream)
}

func TestStreamText_DispatchErrorNotifiesPlugins(t *testing.T) {
	stub := testutil.NewScriptedProvider("stub").SetStreamError(types.NewServerError("stub", 502, "bad gateway"))
	p := &aliasPlugin{}
	exec := New(stub).Plugin(p).Build()

	_, err := exec.StreamText(context.Background(), "m", userParams("Hi"))
	require.Error(t, err)
	assert.Equal(t, []string{"start", "error"}, p.events)
}

func TestExecutor_LayeredPipeline(t *testing.T) {
	// Rate-limited once, then success. With Logging outside Retry the log
	// carries one request-received line for two physical provider calls.
	stub := testutil.NewScriptedProvider("stub").
		Fail(types.NewRateLimitError("stub", 0)).
		RespondText("recovered")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	exec := New(stub).
		Layer(layer.NewLoggingLayer(logger)).
		Layer(layer.NewRetryLayer().WithMaxRetries(2).WithInitialDelay(time.Millisecond).WithJitter(0)).
		Build()

	result, err := exec.GenerateText(context.Background(), "m", userParams("Hi"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Content)
	assert.Equal(t, 2, stub.ChatCalls())
	assert.Equal(t, 1, strings.Count(buf.String(), "chat completion request received"))
	assert.Equal(t, 1, strings.Count(buf.String(), "chat completion succeeded"))
}

func TestExecutor_TransformParamsPluginShapesRequest(t *testing.T) {
	registry := plugin.NewToolRegistry()
	registry.Register(plugin.NewFuncTool("lookup", "Look something up", json.RawMessage(`{"type":"object"}`),
		func(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
			return args, nil
		}))

	stub := testutil.NewScriptedProvider("stub").RespondText("ok")
	exec := New(stub).Plugin(plugin.NewToolUse(registry)).Build()

	_, err := exec.GenerateText(context.Background(), "m", userParams("Hi"))
	require.NoError(t, err)

	req := stub.LastRequest()
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "lookup", req.Tools[0].Name)
}
