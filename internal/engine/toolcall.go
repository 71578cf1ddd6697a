package engine

import (
	"encoding/json"

	"github.com/onloopai/onloop/pkg/models"
)

const (
	toolCallOpenMarker  = "<tool_call>"
	toolCallCloseMarker = "</tool_call>"
)

// rawToolCallPayload is the wire shape emitted inside a <tool_call> marker
// pair: arguments may be a nested JSON object or a string literal.
type rawToolCallPayload struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// parseToolCall parses a buffered marker payload per §4.4/§6. Unparseable
// payloads (bad JSON, missing name) are reported by ok=false; callers must
// treat that as "no tool call", never as a fatal error, per the spec's
// silent-drop behavior for this case.
func parseToolCall(payload []byte) (models.ToolCall, bool) {
	var raw rawToolCallPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.ToolCall{}, false
	}
	if raw.Name == "" {
		return models.ToolCall{}, false
	}

	arguments := "{}"
	if len(raw.Arguments) > 0 {
		var asString string
		if err := json.Unmarshal(raw.Arguments, &asString); err == nil {
			arguments = asString
		} else {
			arguments = string(raw.Arguments)
		}
	}

	return models.NewToolCall(raw.Name, arguments), true
}
