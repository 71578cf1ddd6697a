package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/onloopai/onloop/internal/tools"
	"github.com/onloopai/onloop/pkg/models"
)

// fakeEngine replays a scripted sequence of TokenEvents per Generate call.
// If fewer scripts than calls are supplied, the last script repeats.
type fakeEngine struct {
	mu        sync.Mutex
	scripts   [][]models.TokenEvent
	calls     int
	cancelled bool
	genErr    error
}

func (f *fakeEngine) Generate(ctx context.Context, messages []models.Message, params models.GenerationParameters) (<-chan models.TokenEvent, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()
	if f.genErr != nil {
		return nil, f.genErr
	}

	var script []models.TokenEvent
	switch {
	case idx < len(f.scripts):
		script = f.scripts[idx]
	case len(f.scripts) > 0:
		script = f.scripts[len(f.scripts)-1]
	}

	ch := make(chan models.TokenEvent, len(script))
	for _, ev := range script {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeTool is a minimal tools.Tool for tests that need one registered.
type fakeTool struct {
	name   string
	output *tools.Output
	err    error
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "test tool" }
func (t *fakeTool) ParametersSchema() tools.Schema {
	return tools.Schema{Type: "object"}
}
func (t *fakeTool) Execute(ctx context.Context, args map[string]any) (*tools.Output, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.output, nil
}

func drain(ch <-chan models.AgentEvent) []models.AgentEvent {
	var out []models.AgentEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestCoordinatorPlainChat(t *testing.T) {
	eng := &fakeEngine{scripts: [][]models.TokenEvent{
		{models.Token("Hello"), models.Token(" there"), models.Done(models.FinishStop)},
	}}
	c := NewCoordinator(eng, tools.NewRegistry(nil), Identity{}, nil)

	events, err := c.Process(context.Background(), []models.Message{models.NewMessage(models.RoleUser, "Hello")}, models.DefaultGenerationParameters())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := drain(events)

	var texts int
	var sawToolCallStarted bool
	var last models.AgentEvent
	for _, ev := range got {
		if ev.Kind == models.AgentEventText {
			texts++
		}
		if ev.Kind == models.AgentEventToolCallStarted {
			sawToolCallStarted = true
		}
		last = ev
	}
	if texts == 0 {
		t.Fatalf("expected at least one text event, got %+v", got)
	}
	if sawToolCallStarted {
		t.Fatalf("expected no tool_call_started events for plain chat, got %+v", got)
	}
	if last.Kind != models.AgentEventCompleted {
		t.Fatalf("expected terminal completed event, got %+v", last)
	}
}

func TestCoordinatorSingleToolCall(t *testing.T) {
	call := models.NewToolCall("calculator", `{"expression":"2+2"}`)
	eng := &fakeEngine{scripts: [][]models.TokenEvent{
		{models.ToolCallEvent(call), models.Done(models.FinishToolUse)},
		{models.Token("2 + 2 = 4"), models.Done(models.FinishStop)},
	}}
	registry := tools.NewRegistry(nil)
	registry.Register(&fakeTool{name: "calculator", output: tools.Success("2 + 2 = 4")})
	c := NewCoordinator(eng, registry, Identity{}, nil)

	events, err := c.Process(context.Background(), []models.Message{models.NewMessage(models.RoleUser, "what is 2+2?")}, models.DefaultGenerationParameters())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := drain(events)

	wantKinds := []models.AgentEventKind{
		models.AgentEventToolCallStarted,
		models.AgentEventToolExecuting,
		models.AgentEventToolResult,
		models.AgentEventText,
		models.AgentEventCompleted,
	}
	if len(got) != len(wantKinds) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantKinds), len(got), got)
	}
	for i, k := range wantKinds {
		if got[i].Kind != k {
			t.Fatalf("event %d: expected kind %s, got %s (%+v)", i, k, got[i].Kind, got[i])
		}
	}
	if got[0].ToolName != "calculator" {
		t.Fatalf("expected tool_call_started for calculator, got %+v", got[0])
	}
	if got[2].Content != "2 + 2 = 4" {
		t.Fatalf("expected tool result content '2 + 2 = 4', got %q", got[2].Content)
	}
	if eng.callCount() != 2 {
		t.Fatalf("expected exactly 2 engine iterations, got %d", eng.callCount())
	}
}

func TestCoordinatorToolNotFound(t *testing.T) {
	call := models.NewToolCall("nonexistent", "{}")
	eng := &fakeEngine{scripts: [][]models.TokenEvent{
		{models.ToolCallEvent(call), models.Done(models.FinishToolUse)},
		{models.Token("ok"), models.Done(models.FinishStop)},
	}}
	c := NewCoordinator(eng, tools.NewRegistry(nil), Identity{}, nil)

	events, err := c.Process(context.Background(), []models.Message{models.NewMessage(models.RoleUser, "do the thing")}, models.DefaultGenerationParameters())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := drain(events)

	var result *models.AgentEvent
	for i := range got {
		if got[i].Kind == models.AgentEventToolResult {
			result = &got[i]
		}
	}
	if result == nil {
		t.Fatalf("expected a tool_result event, got %+v", got)
	}
	want := "Tool 'nonexistent' failed: Tool not found: nonexistent"
	if result.Content != want {
		t.Fatalf("expected tool result %q, got %q", want, result.Content)
	}
}

func TestCoordinatorDepthCap(t *testing.T) {
	call := models.NewToolCall("noop", "{}")
	eng := &fakeEngine{scripts: [][]models.TokenEvent{
		{models.ToolCallEvent(call), models.Done(models.FinishToolUse)},
	}}
	registry := tools.NewRegistry(nil)
	registry.Register(&fakeTool{name: "noop", output: tools.Success("done")})
	c := NewCoordinator(eng, registry, Identity{}, nil)

	events, err := c.Process(context.Background(), []models.Message{models.NewMessage(models.RoleUser, "loop forever")}, models.DefaultGenerationParameters())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := drain(events)

	var executing int
	var sawNotice bool
	var last models.AgentEvent
	for _, ev := range got {
		if ev.Kind == models.AgentEventToolExecuting {
			executing++
		}
		if ev.Kind == models.AgentEventText && ev.Text == depthCapNotice {
			sawNotice = true
		}
		last = ev
	}
	if executing != MaxIterations {
		t.Fatalf("expected exactly %d tool_executing events, got %d", MaxIterations, executing)
	}
	if !sawNotice {
		t.Fatalf("expected a depth-cap notice text event, got %+v", got)
	}
	if last.Kind != models.AgentEventCompleted {
		t.Fatalf("expected terminal completed event, got %+v", last)
	}
	if eng.callCount() != MaxIterations {
		t.Fatalf("expected exactly %d engine iterations, got %d", MaxIterations, eng.callCount())
	}
}

func TestCoordinatorCancellationFinishesWithoutCompletedOrError(t *testing.T) {
	eng := &fakeEngine{scripts: [][]models.TokenEvent{
		{models.Token("partial"), models.Done(models.FinishCancelled)},
	}}
	c := NewCoordinator(eng, tools.NewRegistry(nil), Identity{}, nil)

	events, err := c.Process(context.Background(), []models.Message{models.NewMessage(models.RoleUser, "hi")}, models.DefaultGenerationParameters())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	c.Cancel()
	got := drain(events)

	for _, ev := range got {
		if ev.Kind == models.AgentEventCompleted || ev.Kind == models.AgentEventError {
			t.Fatalf("cancellation must finish cleanly with no completed/error event, got %+v", got)
		}
	}
	if !eng.cancelled {
		t.Fatalf("expected Coordinator.Cancel to propagate to the engine")
	}
}

func TestCoordinatorEngineFailureSurfacesAsErrorNotCompleted(t *testing.T) {
	wantErr := context.DeadlineExceeded
	eng := &fakeEngine{scripts: [][]models.TokenEvent{
		{models.TokenError(wantErr)},
	}}
	c := NewCoordinator(eng, tools.NewRegistry(nil), Identity{}, nil)

	events, err := c.Process(context.Background(), []models.Message{models.NewMessage(models.RoleUser, "hi")}, models.DefaultGenerationParameters())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := drain(events)

	if len(got) != 1 || got[0].Kind != models.AgentEventError {
		t.Fatalf("expected exactly one error event, got %+v", got)
	}
	if got[0].Err != wantErr {
		t.Fatalf("expected the engine's error to be forwarded unchanged, got %v", got[0].Err)
	}
	for _, ev := range got {
		if ev.Kind == models.AgentEventCompleted {
			t.Fatalf("an engine failure must never surface as completed, got %+v", got)
		}
	}
}

func TestCoordinatorRejectsConcurrentProcess(t *testing.T) {
	// A blockingEngine hands back a channel the test controls directly, so
	// the first Process call stays in flight until the test closes it.
	gate := make(chan models.TokenEvent)
	c := NewCoordinator(&blockingEngine{ch: gate}, tools.NewRegistry(nil), Identity{}, nil)

	_, err := c.Process(context.Background(), []models.Message{models.NewMessage(models.RoleUser, "hi")}, models.DefaultGenerationParameters())
	if err != nil {
		t.Fatalf("first Process: %v", err)
	}

	_, err = c.Process(context.Background(), []models.Message{models.NewMessage(models.RoleUser, "hi")}, models.DefaultGenerationParameters())
	if err != ErrAlreadyProcessing {
		t.Fatalf("expected ErrAlreadyProcessing for concurrent call, got %v", err)
	}

	close(gate)
}

type blockingEngine struct {
	ch <-chan models.TokenEvent
}

func (b *blockingEngine) Generate(ctx context.Context, messages []models.Message, params models.GenerationParameters) (<-chan models.TokenEvent, error) {
	return b.ch, nil
}

func (b *blockingEngine) Cancel() {}
