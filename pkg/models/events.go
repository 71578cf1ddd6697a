package models

// FinishReason explains why a generation's decode loop stopped.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolUse   FinishReason = "tool_use"
	FinishCancelled FinishReason = "cancelled"
)

// TokenEventKind discriminates the payload carried by a TokenEvent.
type TokenEventKind string

const (
	TokenEventToken    TokenEventKind = "token"
	TokenEventToolCall TokenEventKind = "tool_call"
	TokenEventDone     TokenEventKind = "done"
	TokenEventError    TokenEventKind = "error"
)

// TokenEvent is one item in the engine's generation stream. Exactly one of
// Token, Call, Reason, or Err is set, selected by Kind. An error event
// is always the last event of a generation, same as Done — the two are
// mutually exclusive terminal events, not a done-then-error pair.
type TokenEvent struct {
	Kind   TokenEventKind
	Token  string
	Call   *ToolCall
	Reason FinishReason
	Err    error
}

// Token constructs a token fragment event.
func Token(fragment string) TokenEvent {
	return TokenEvent{Kind: TokenEventToken, Token: fragment}
}

// ToolCallEvent constructs a tool-call event.
func ToolCallEvent(call ToolCall) TokenEvent {
	return TokenEvent{Kind: TokenEventToolCall, Call: &call}
}

// Done constructs a terminal event.
func Done(reason FinishReason) TokenEvent {
	return TokenEvent{Kind: TokenEventDone, Reason: reason}
}

// TokenError constructs a terminal generation_failed event per §7 — used
// wherever the decode loop hits tokenization, context, or native-call
// failures that have no FinishReason of their own.
func TokenError(err error) TokenEvent {
	return TokenEvent{Kind: TokenEventError, Err: err}
}

// AgentEventKind discriminates the payload carried by an AgentEvent.
type AgentEventKind string

const (
	AgentEventText            AgentEventKind = "text"
	AgentEventToolCallStarted AgentEventKind = "tool_call_started"
	AgentEventToolExecuting   AgentEventKind = "tool_executing"
	AgentEventToolResult      AgentEventKind = "tool_result"
	AgentEventCompleted       AgentEventKind = "completed"
	AgentEventError           AgentEventKind = "error"
)

// AgentEvent is one item in the coordinator's event stream observed by the
// UI. A non-cancellation failure ends the stream with an AgentEventError
// instead of completed, per §4.5 step 4 — cancellation itself ends the
// stream with neither, just a closed channel.
type AgentEvent struct {
	Kind     AgentEventKind
	Text     string
	ToolName string
	Content  string
	Err      error
}

func TextEvent(fragment string) AgentEvent {
	return AgentEvent{Kind: AgentEventText, Text: fragment}
}

func ToolCallStartedEvent(name string) AgentEvent {
	return AgentEvent{Kind: AgentEventToolCallStarted, ToolName: name}
}

func ToolExecutingEvent(name string) AgentEvent {
	return AgentEvent{Kind: AgentEventToolExecuting, ToolName: name}
}

func ToolResultEvent(name, content string) AgentEvent {
	return AgentEvent{Kind: AgentEventToolResult, ToolName: name, Content: content}
}

func CompletedEvent() AgentEvent {
	return AgentEvent{Kind: AgentEventCompleted}
}

func ErrorEvent(err error) AgentEvent {
	return AgentEvent{Kind: AgentEventError, Err: err}
}
