package tools

import "fmt"

// Kind categorizes a tool-dispatch failure per the error taxonomy in §7.
type Kind string

const (
	KindToolNotFound     Kind = "tool_not_found"
	KindInvalidArguments Kind = "invalid_arguments"
	KindPermissionDenied Kind = "permission_denied"
	KindExecutionFailed  Kind = "execution_failed"
)

// ExecutionError is a structured dispatch failure. Registry.ExecuteByName
// returns one when the name is unknown; tool authors may return one from
// Execute to say which kind of failure occurred. The registry returns such
// errors to its caller unchanged; the agent coordinator turns any of them
// into an error tool result, so it is never fatal to the agent loop.
type ExecutionError struct {
	Kind     Kind
	ToolName string
	Message  string
	Cause    error
}

func (e *ExecutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.ToolName, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.ToolName, e.Cause.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.ToolName)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// NotFound builds a tool_not_found ExecutionError for the given name.
func NotFound(name string) *ExecutionError {
	return &ExecutionError{Kind: KindToolNotFound, ToolName: name, Message: "Tool not found: " + name}
}
