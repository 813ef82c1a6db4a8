package executor

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/cecil-the-coder/ai-runtime-kit/pkg/types"
)

// decodeObject turns the model's text output into a raw JSON payload. Models
// often wrap JSON in markdown fences or emit slightly broken JSON; the fences
// are stripped and a repair pass is attempted before giving up. A content
// that cannot be made into valid JSON is a schema mismatch, not a transport
// failure.
func decodeObject(providerID, content string) (json.RawMessage, error) {
	cleaned := stripFences(content)
	if cleaned == "" {
		return nil, types.NewSchemaMismatchError(providerID, "response contains no JSON content")
	}

	if json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned), nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return nil, types.NewSchemaMismatchError(providerID, "response is not valid JSON").WithOriginalErr(err)
	}
	if !json.Valid([]byte(repaired)) {
		return nil, types.NewSchemaMismatchError(providerID, "response is not valid JSON after repair")
	}
	return json.RawMessage(repaired), nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, and trims whitespace.
func stripFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.IndexByte(content, '\n'); idx >= 0 && !strings.HasPrefix(content, "{") && !strings.HasPrefix(content, "[") {
			// Drop a language tag like "json" on the fence line.
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}
