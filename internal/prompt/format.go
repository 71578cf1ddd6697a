// Package prompt formats a conversation into the ChatML-framed string the
// model's tokenizer expects.
package prompt

import (
	"strings"

	"github.com/onloopai/onloop/pkg/models"
)

const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"
)

// Format serializes messages into ChatML framing, in order, followed by an
// assistant priming tag so decode can begin immediately. No content
// escaping is applied — the model's tokenizer owns marker-token handling.
func Format(messages []models.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(imStart)
		b.WriteString(string(m.Role))
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString(imEnd)
		b.WriteString("\n")
	}
	b.WriteString(imStart)
	b.WriteString("assistant\n")
	return b.String()
}

// EnsureLeadingSystemMessage returns messages unchanged if the first entry
// is already a system message, otherwise it prepends one built from system.
func EnsureLeadingSystemMessage(messages []models.Message, system string) []models.Message {
	if len(messages) > 0 && messages[0].Role == models.RoleSystem {
		return messages
	}
	prefixed := make([]models.Message, 0, len(messages)+1)
	prefixed = append(prefixed, models.NewMessage(models.RoleSystem, system))
	prefixed = append(prefixed, messages...)
	return prefixed
}
