package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// ErrUnknownTool is returned by Call for names with no registered tool.
var ErrUnknownTool = errors.New("unknown tool")

// toolNamePattern is the protocol constraint on tool names.
var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Registry maps tool names to tools. Registration happens once at startup;
// lookups may run concurrently afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool, rejecting malformed or duplicate names.
func (r *Registry) Register(tool Tool) error {
	name := tool.Definition.Name
	if !toolNamePattern.MatchString(name) {
		return fmt.Errorf("invalid tool name %q: must match %s", name, toolNamePattern)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Definitions returns all tool definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Call dispatches one invocation to the named tool.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	r.mu.RLock()
	tool, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool.Handler(ctx, args)
}
