// Package agent drives the inference engine through a bounded ReAct loop:
// stream tokens, accumulate text, dispatch any tool calls the model emits,
// reinject their results, and repeat until the model answers without
// calling a tool or the iteration cap is reached.
package agent

import "errors"

// ErrAlreadyProcessing is returned by Process when a prior call on the
// same Coordinator has not yet finished.
var ErrAlreadyProcessing = errors.New("agent: a Process call is already in flight")
