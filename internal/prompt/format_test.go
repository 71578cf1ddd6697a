package prompt

import (
	"strings"
	"testing"

	"github.com/onloopai/onloop/pkg/models"
)

func TestFormatProducesChatMLFraming(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "be helpful"},
		{Role: models.RoleUser, Content: "hello"},
	}
	got := Format(messages)
	want := "<|im_start|>system\nbe helpful<|im_end|>\n" +
		"<|im_start|>user\nhello<|im_end|>\n" +
		"<|im_start|>assistant\n"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	messages := []models.Message{{Role: models.RoleUser, Content: "x"}}
	if Format(messages) != Format(messages) {
		t.Fatal("expected deterministic output")
	}
}

func TestFormatAppliesNoEscaping(t *testing.T) {
	messages := []models.Message{{Role: models.RoleUser, Content: "<tool_call>{}</tool_call>"}}
	got := Format(messages)
	if !strings.Contains(got, "<tool_call>{}</tool_call>") {
		t.Fatal("expected content to be forwarded verbatim")
	}
}

func TestEnsureLeadingSystemMessagePrependsWhenMissing(t *testing.T) {
	messages := []models.Message{{Role: models.RoleUser, Content: "hi"}}
	out := EnsureLeadingSystemMessage(messages, "system prompt")
	if len(out) != 2 || out[0].Role != models.RoleSystem || out[0].Content != "system prompt" {
		t.Fatalf("expected prepended system message, got %+v", out)
	}
}

func TestEnsureLeadingSystemMessageLeavesExistingAlone(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "already here"},
		{Role: models.RoleUser, Content: "hi"},
	}
	out := EnsureLeadingSystemMessage(messages, "ignored")
	if len(out) != 2 || out[0].Content != "already here" {
		t.Fatalf("expected unchanged messages, got %+v", out)
	}
}

func TestEmptyMessageListGetsSystemPrepended(t *testing.T) {
	out := EnsureLeadingSystemMessage(nil, "sys")
	if len(out) != 1 || out[0].Role != models.RoleSystem {
		t.Fatalf("expected a single system message, got %+v", out)
	}
}
