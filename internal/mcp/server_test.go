package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbraun92/strava-mcp/internal/tools"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.Tool{
		Definition: tools.Definition{Name: "greet", Description: "Say hello"},
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]string{"greeting": "hello"}, nil
		},
	}))
	require.NoError(t, registry.Register(tools.Tool{
		Definition: tools.Definition{Name: "boom", Description: "Always fails"},
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("upstream exploded")
		},
	}))

	return NewServer(registry, "test-server", "0.0.1")
}

func request(id int, method, params string) *Request {
	req := &Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(fmt.Sprintf("%d", id)),
		Method:  method,
	}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	return req
}

func TestInitialize(t *testing.T) {
	server := newTestServer(t)

	resp := server.Handle(context.Background(), request(1, "initialize", `{"protocolVersion":"2024-11-05"}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(InitializeResult)
	require.True(t, ok)
	assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "test-server", result.ServerInfo.Name)
}

func TestToolsList(t *testing.T) {
	server := newTestServer(t)

	resp := server.Handle(context.Background(), request(2, "tools/list", ""))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(ListToolsResult)
	require.True(t, ok)
	require.Len(t, result.Tools, 2)
	assert.Equal(t, "greet", result.Tools[0].Name)
	assert.Equal(t, "boom", result.Tools[1].Name)
}

func TestCallToolSuccess(t *testing.T) {
	server := newTestServer(t)

	resp := server.Handle(context.Background(), request(3, "tools/call", `{"name":"greet"}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(CallToolResult)
	require.True(t, ok)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, `"greeting": "hello"`)
}

func TestCallToolFailureStaysInBand(t *testing.T) {
	server := newTestServer(t)

	resp := server.Handle(context.Background(), request(4, "tools/call", `{"name":"boom"}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error, "execution failures must not become protocol errors")

	result, ok := resp.Result.(CallToolResult)
	require.True(t, ok)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "upstream exploded")
}

func TestCallUnknownToolIsInvalidParams(t *testing.T) {
	server := newTestServer(t)

	resp := server.Handle(context.Background(), request(5, "tools/call", `{"name":"nope"}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestCallWithoutToolNameIsInvalidParams(t *testing.T) {
	server := newTestServer(t)

	resp := server.Handle(context.Background(), request(6, "tools/call", `{}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	server := newTestServer(t)

	resp := server.Handle(context.Background(), request(7, "resources/list", ""))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestNotificationGetsNoResponse(t *testing.T) {
	server := newTestServer(t)

	resp := server.Handle(context.Background(), &Request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})
	assert.Nil(t, resp)
}

func TestParseErrorResponse(t *testing.T) {
	server := newTestServer(t)

	resp := server.HandleRaw(context.Background(), []byte("{not json"))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)
}

func TestServeStdioRoundTrip(t *testing.T) {
	server := newTestServer(t)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"greet"}}`,
	}, "\n") + "\n"

	var output bytes.Buffer
	err := server.ServeStdio(context.Background(), strings.NewReader(input), &output)
	require.NoError(t, err)

	// Two responses: the notification produces none.
	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 2)

	var first Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, json.RawMessage("1"), first.ID)
	assert.Nil(t, first.Error)

	var second Response
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, json.RawMessage("2"), second.ID)
	assert.Nil(t, second.Error)
}

func TestServeStdioStopsOnCancel(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A blocked reader: cancellation must still end the loop.
	blocked, _ := newBlockedReader()
	err := server.ServeStdio(ctx, blocked, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

// newBlockedReader returns a reader whose Read never returns until the
// writer side is closed.
func newBlockedReader() (*blockedReader, func()) {
	done := make(chan struct{})
	return &blockedReader{done: done}, func() { close(done) }
}

type blockedReader struct {
	done chan struct{}
}

func (r *blockedReader) Read(p []byte) (int, error) {
	<-r.done
	return 0, nil
}
