package tools

import (
	"bytes"
	"encoding/json"
	"sort"
)

// CanonicalJSON renders s as a JSON object with keys sorted, so the same
// schema always produces byte-identical prompt text regardless of map
// iteration order. Adapted from the canonicalization the teacher performs
// when converting tool schemas to each provider's wire format.
func (s Schema) CanonicalJSON() string {
	obj := map[string]any{"type": s.Type}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			prop := map[string]any{"type": p.Type}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			props[name] = prop
		}
		obj["properties"] = props
	}
	if len(s.Required) > 0 {
		required := append([]string(nil), s.Required...)
		sort.Strings(required)
		obj["required"] = required
	}
	return marshalSorted(obj)
}

// marshalSorted marshals v to JSON with map keys in sorted order at every
// level, since encoding/json already sorts map[string]any keys but nested
// values built above are plain maps too — this just makes that explicit and
// keeps the behavior stable if the value shape changes.
func marshalSorted(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	out := buf.String()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out
}
