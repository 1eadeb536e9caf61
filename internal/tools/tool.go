// Package tools defines the callable operations the bridge exposes to the
// assistant host. Each Tool carries its host-facing schema together with the
// handler invoked on tools/call; the Registry owns the name -> Tool mapping.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Definition is the host-facing schema of one tool: its name, description,
// and JSON Schema parameter specification.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON Schema fragment describing a tool's parameters.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes one parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Minimum     *int   `json:"minimum,omitempty"`
	Maximum     *int   `json:"maximum,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Tool couples a Definition with the handler that executes it. Handlers must
// be safe for concurrent use and must respect context cancellation; they
// return a JSON-serializable payload on success.
type Tool struct {
	Definition Definition
	Handler    func(ctx context.Context, args json.RawMessage) (any, error)
}

// ValidationError reports bad caller input. It is always raised before any
// network call is attempted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameters: %s", e.Message)
}
