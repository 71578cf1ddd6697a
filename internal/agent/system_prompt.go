package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/onloopai/onloop/internal/tools"
)

// Identity is the persona prefixed onto the generated system prompt.
// Adapted from the teacher's identity.go: a handful of named fields
// rendered into prose, rather than the IDENTITY.md markdown parser, since
// this runtime has no workspace file to load a persona from.
type Identity struct {
	Name    string
	Persona string
}

// DefaultIdentity is used when the caller supplies a zero-value Identity.
var DefaultIdentity = Identity{
	Name:    "Assistant",
	Persona: "a helpful, direct on-device assistant",
}

const toolCallProtocol = `When you need to use a tool, emit a marker of this exact form and nothing else on that line:
<tool_call>{"name":"<tool_name>","arguments":{...}}</tool_call>
Only emit one tool call at a time. Wait for its result before continuing. If no tool is needed, just answer directly.`

// buildSystemPrompt renders identity + tool catalog + protocol instructions
// into the system message prepended per §4.5 step 2.
func buildSystemPrompt(id Identity, reg *tools.Registry) string {
	if id.Name == "" {
		id = DefaultIdentity
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s.\n\n", id.Name, id.Persona)

	toolList := reg.List()
	if len(toolList) == 0 {
		b.WriteString("No tools are available in this conversation.\n")
		return b.String()
	}
	// Registry.List has no defined order; sort by name so the rendered
	// prompt is stable across calls and processes for the same tool set.
	sort.Slice(toolList, func(i, j int) bool { return toolList[i].Name() < toolList[j].Name() })

	b.WriteString("Available tools:\n")
	for _, t := range toolList {
		schema := t.ParametersSchema().CanonicalJSON()
		fmt.Fprintf(&b, "- %s: %s\n  schema: %s\n", t.Name(), t.Description(), schema)
	}
	b.WriteString("\n")
	b.WriteString(toolCallProtocol)
	b.WriteString("\n")
	return b.String()
}
