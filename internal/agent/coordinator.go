package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/onloopai/onloop/internal/prompt"
	"github.com/onloopai/onloop/internal/tools"
	"github.com/onloopai/onloop/pkg/models"
)

// MaxIterations bounds the ReAct loop per §4.5 step 3.
const MaxIterations = 5

const depthCapNotice = "I've reached my tool-use limit for this turn, so I'll answer with what I have so far."

// Engine is the subset of *engine.Engine the coordinator drives. Declared
// here, not imported from the concrete package, so tests substitute a
// scripted fake — the same boundary pattern as internal/engine/native.
type Engine interface {
	Generate(ctx context.Context, messages []models.Message, params models.GenerationParameters) (<-chan models.TokenEvent, error)
	Cancel()
}

// Coordinator drives Engine through a bounded ReAct loop, dispatching any
// tool calls the model emits through a Registry and reinjecting their
// results as new messages. Grounded on the teacher's AgenticLoop.Run, with
// the teacher's parallel/backpressured tool Executor deliberately not
// adopted — this loop dispatches tool calls sequentially, in emission
// order, per §4.5 step 3.e.
type Coordinator struct {
	engine   Engine
	registry *tools.Registry
	identity Identity
	logger   *slog.Logger

	mu         sync.Mutex
	processing bool
	cancelOnce sync.Once
	cancelled  atomic.Bool
}

// NewCoordinator builds a Coordinator around engine and registry. identity
// may be the zero value, in which case DefaultIdentity is used.
func NewCoordinator(engine Engine, registry *tools.Registry, identity Identity, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{engine: engine, registry: registry, identity: identity, logger: logger}
}

// Process drives one user turn to completion. It rejects a second call
// while one is already in flight, per the engine's own single-generation
// exclusivity extended to the coordinator.
func (c *Coordinator) Process(ctx context.Context, messages []models.Message, params models.GenerationParameters) (<-chan models.AgentEvent, error) {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return nil, ErrAlreadyProcessing
	}
	c.processing = true
	c.cancelOnce = sync.Once{}
	c.cancelled.Store(false)
	c.mu.Unlock()

	conversation := append([]models.Message(nil), messages...)
	conversation = prompt.EnsureLeadingSystemMessage(conversation, buildSystemPrompt(c.identity, c.registry))

	events := make(chan models.AgentEvent, 32)
	go func() {
		defer close(events)
		defer func() {
			c.mu.Lock()
			c.processing = false
			c.mu.Unlock()
		}()
		c.run(ctx, conversation, params, events)
	}()
	return events, nil
}

// Cancel stops the coordinator's driving loop and the engine's current
// generation. Idempotent: repeated calls after the first are no-ops.
func (c *Coordinator) Cancel() {
	c.cancelOnce.Do(func() {
		c.cancelled.Store(true)
		c.engine.Cancel()
	})
}

func (c *Coordinator) isCancelled(ctx context.Context) bool {
	if c.cancelled.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (c *Coordinator) run(ctx context.Context, conversation []models.Message, params models.GenerationParameters, events chan<- models.AgentEvent) {
	for iteration := 1; iteration <= MaxIterations; iteration++ {
		if c.isCancelled(ctx) {
			return
		}

		tokenEvents, err := c.engine.Generate(ctx, conversation, params)
		if err != nil {
			events <- models.ErrorEvent(err)
			return
		}

		var accumulated string
		var pendingCalls []models.ToolCall
		var finishReason models.FinishReason
		var genErr error
		for ev := range tokenEvents {
			switch ev.Kind {
			case models.TokenEventToken:
				accumulated += ev.Token
				events <- models.TextEvent(ev.Token)
			case models.TokenEventToolCall:
				if ev.Call != nil {
					pendingCalls = append(pendingCalls, *ev.Call)
					events <- models.ToolCallStartedEvent(ev.Call.Name)
				}
			case models.TokenEventDone:
				// Otherwise informational only: §4.5 step 3.c makes "did
				// pending_tool_calls end up non-empty" the authoritative
				// termination signal, since small models sometimes
				// mislabel the reason. Cancellation is the one reason
				// that overrides it — a cancelled turn never reports
				// completed.
				finishReason = ev.Reason
			case models.TokenEventError:
				genErr = ev.Err
			}
		}

		// A generation failure takes priority over everything below: an
		// engine error can end the stream before any token or tool call,
		// which would otherwise look exactly like a clean, empty completed
		// turn.
		if genErr != nil {
			events <- models.ErrorEvent(genErr)
			return
		}

		if finishReason == models.FinishCancelled || c.isCancelled(ctx) {
			return
		}

		if len(pendingCalls) == 0 {
			events <- models.CompletedEvent()
			return
		}

		assistantMsg := models.NewMessage(models.RoleAssistant, accumulated)
		assistantMsg.ToolCalls = pendingCalls
		conversation = append(conversation, assistantMsg)

		for _, call := range pendingCalls {
			if c.isCancelled(ctx) {
				return
			}
			conversation = c.dispatchToolCall(ctx, call, conversation, events)
		}

		if iteration == MaxIterations {
			events <- models.TextEvent(depthCapNotice)
			events <- models.CompletedEvent()
			return
		}
	}
}

// dispatchToolCall executes one pending tool call, emits its events, and
// returns conversation with a new tool-role message appended.
func (c *Coordinator) dispatchToolCall(ctx context.Context, call models.ToolCall, conversation []models.Message, events chan<- models.AgentEvent) []models.Message {
	events <- models.ToolExecutingEvent(call.Name)

	args := parseToolArguments(call.Arguments)

	var resultText string
	var isError bool
	output, err := c.registry.ExecuteByName(ctx, call.Name, args)
	if err != nil {
		resultText = fmt.Sprintf("Tool '%s' failed: %s", call.Name, toolErrorMessage(err))
		isError = true
	} else {
		resultText = output.Content
		isError = output.IsError
	}

	events <- models.ToolResultEvent(call.Name, resultText)

	toolMsg := models.NewMessage(models.RoleTool, resultText)
	toolMsg.ToolResult = &models.ToolResult{ToolCallID: call.ID, Content: resultText, IsError: isError}
	return append(conversation, toolMsg)
}

// toolErrorMessage prefers an ExecutionError's own message (e.g. "Tool not
// found: nonexistent") over its wrapped, kind-prefixed Error() form, so the
// text surfaced to the model reads like the rest of its tool results.
func toolErrorMessage(err error) string {
	if execErr, ok := err.(*tools.ExecutionError); ok && execErr.Message != "" {
		return execErr.Message
	}
	return err.Error()
}

// parseToolArguments parses a tool call's arguments string as a JSON
// object, falling back to an empty object on parse failure per §4.5 step
// 3.e.
func parseToolArguments(raw string) map[string]any {
	args := make(map[string]any)
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return make(map[string]any)
	}
	return args
}
