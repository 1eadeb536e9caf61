package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tbraun92/strava-mcp/internal/tools"
)

// maxLineBytes bounds one newline-delimited JSON-RPC message on stdio.
const maxLineBytes = 4 << 20

// Server dispatches MCP methods against a tool registry. It holds no
// per-call state; the same instance backs the stdio and HTTP transports.
type Server struct {
	registry *tools.Registry
	info     ServerInfo
}

// NewServer creates a Server exposing the registry's tools.
func NewServer(registry *tools.Registry, name, version string) *Server {
	return &Server{
		registry: registry,
		info:     ServerInfo{Name: name, Version: version},
	}
}

// ServeStdio reads newline-delimited JSON-RPC requests from r and writes
// responses to w until r is exhausted or ctx is canceled. Logging must go
// elsewhere (stderr); w carries protocol traffic only.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64<<10), maxLineBytes)
		for scanner.Scan() {
			// Copy: the scanner reuses its buffer across iterations.
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				readErr <- nil
				return
			}
		}
		readErr <- scanner.Err()
	}()

	encoder := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				return nil
			}
			if len(line) == 0 {
				continue
			}

			resp := s.HandleRaw(ctx, line)
			if resp == nil {
				continue
			}
			if err := encoder.Encode(resp); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
		}
	}
}

// HandleRaw decodes one JSON-RPC message and dispatches it. A nil return
// means no response is due (notification).
func (s *Server) HandleRaw(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &Error{Code: codeParseError, Message: "parse error"},
		}
	}
	return s.Handle(ctx, &req)
}

// Handle dispatches one decoded request. A nil return means no response is
// due (notification).
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	if req.IsNotification() {
		// notifications/initialized and friends need no reply; anything
		// else without an ID cannot be answered either way.
		return nil
	}

	if req.JSONRPC != "2.0" {
		return s.errorResponse(req, codeInvalidRequest, "unsupported jsonrpc version")
	}

	switch req.Method {
	case "initialize":
		return s.resultResponse(req, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    Capabilities{Tools: ToolsCapability{}},
			ServerInfo:      s.info,
		})
	case "ping":
		return s.resultResponse(req, struct{}{})
	case "tools/list":
		return s.resultResponse(req, ListToolsResult{Tools: s.registry.Definitions()})
	case "tools/call":
		return s.callTool(ctx, req)
	default:
		return s.errorResponse(req, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (s *Server) callTool(ctx context.Context, req *Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return s.errorResponse(req, codeInvalidParams, "tools/call requires a tool name")
	}

	payload, err := s.registry.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			return s.errorResponse(req, codeInvalidParams, err.Error())
		}

		// Execution failures stay in-band: the host gets a well-formed
		// result, never a raw fault.
		slog.WarnContext(ctx, "tool call failed", "tool", params.Name, "error", err)
		return s.resultResponse(req, CallToolResult{
			Content: TextContent(err.Error()),
			IsError: true,
		})
	}

	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode tool result", "tool", params.Name, "error", err)
		return s.errorResponse(req, codeInternalError, "failed to encode tool result")
	}

	return s.resultResponse(req, CallToolResult{Content: TextContent(string(text))})
}

func (s *Server) resultResponse(req *Request, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) errorResponse(req *Request, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: req.ID, Error: &Error{Code: code, Message: message}}
}
