package executor

import (
	"errors"
	"io"
	"strings"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// CollectText drains a stream into a single TextResult, concatenating the
// content fragments of the primary candidate. The stream is closed before
// returning, including on error.
func CollectText(stream types.ChatCompletionStream) (*types.TextResult, error) {
	defer stream.Close()

	var (
		content      strings.Builder
		finishReason types.FinishReason
		usage        types.Usage
		model        string
		toolCalls    []types.ContentPart
	)

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage != nil {
			usage = usage.Add(*chunk.Usage)
		}
		for _, choice := range chunk.Choices {
			if choice.Index != 0 {
				continue
			}
			content.WriteString(choice.Delta.Content)
			toolCalls = append(toolCalls, choice.Delta.ToolCalls...)
			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
		}
	}

	if finishReason == "" {
		finishReason = types.FinishReasonStop
	}
	return &types.TextResult{
		Content:      content.String(),
		FinishReason: finishReason,
		Usage:        usage,
		Model:        model,
		ToolCalls:    toolCalls,
	}, nil
}
