package tools

import (
	"context"
	"log/slog"
	"sync"
)

// Registry is a name-indexed collection of tools, safe for concurrent use
// from multiple coordinator instances. Adapted from the teacher's
// ToolRegistry: an RWMutex-guarded map keyed on Tool.Name().
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *slog.Logger
}

// NewRegistry returns an empty, ready-to-use registry. logger defaults to
// slog.Default() if nil, matching engine.New and agent.NewCoordinator.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds tool to the registry. Duplicate registration under the same
// name replaces the previous tool.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Unregister removes a tool by name. Unregistering a name that isn't
// present is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool in no particular order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// ExecuteByName dispatches args to the named tool. It returns a
// *ExecutionError with KindToolNotFound if name is unregistered; any error
// the tool itself returns is propagated unchanged, and a nil *Output with a
// nil error never happens — Execute is expected to return one or the other.
func (r *Registry) ExecuteByName(ctx context.Context, name string, args map[string]any) (*Output, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("tool not found", "name", name)
		return nil, NotFound(name)
	}
	return tool.Execute(ctx, args)
}
