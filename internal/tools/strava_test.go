package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbraun92/strava-mcp/internal/strava"
)

type staticTokens struct{}

func (staticTokens) Token(ctx context.Context) (string, error) { return "token", nil }
func (staticTokens) ForceRefresh(ctx context.Context, stale string) (string, error) {
	return "token", nil
}

// newTestRegistry builds the full tool set against a fake upstream and
// counts every network call that reaches it.
func newTestRegistry(t *testing.T, handler http.HandlerFunc) (*Registry, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if handler != nil {
			handler(w, r)
			return
		}
		fmt.Fprint(w, "[]")
	}))
	t.Cleanup(server.Close)

	client := strava.NewClient(staticTokens{}, strava.WithBaseURL(server.URL))
	registry := NewRegistry()
	for _, tool := range NewStravaTools(client) {
		require.NoError(t, registry.Register(tool))
	}
	return registry, &calls
}

func call(t *testing.T, registry *Registry, name, args string) (any, error) {
	t.Helper()
	var raw json.RawMessage
	if args != "" {
		raw = json.RawMessage(args)
	}
	return registry.Call(context.Background(), name, raw)
}

func TestInvalidParametersFailBeforeAnyNetworkCall(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args string
	}{
		{"per_page zero", "get_activities", `{"per_page": 0}`},
		{"per_page too large", "get_activities", `{"per_page": 201}`},
		{"page zero", "get_activities", `{"page": 0}`},
		{"negative activity id", "get_activity", `{"activity_id": -5}`},
		{"missing activity id", "get_activity", `{}`},
		{"missing athlete id", "get_athlete_stats", `{}`},
		{"zero athlete id", "get_athlete_stats", `{"athlete_id": 0}`},
		{"routes per_page zero", "get_routes", `{"per_page": 0}`},
		{"arguments not an object", "get_activities", `[1, 2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, calls := newTestRegistry(t, nil)

			_, err := call(t, registry, tt.tool, tt.args)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.EqualValues(t, 0, calls.Load(), "validation must run before the network")
		})
	}
}

func TestPaginationDefaultsApplied(t *testing.T) {
	registry, calls := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "30", r.URL.Query().Get("per_page"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		fmt.Fprint(w, "[]")
	})

	_, err := call(t, registry, "get_activities", "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestExplicitPaginationPassedThrough(t *testing.T) {
	registry, _ := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		fmt.Fprint(w, "[]")
	})

	_, err := call(t, registry, "get_routes", `{"per_page": 2, "page": 3}`)
	require.NoError(t, err)
}

func TestUnrecognizedArgumentFieldsAreDiscarded(t *testing.T) {
	registry, _ := newTestRegistry(t, nil)

	_, err := call(t, registry, "get_activities", `{"per_page": 5, "sort": "asc"}`)
	require.NoError(t, err)
}

func TestPingNeedsNoUpstream(t *testing.T) {
	registry, calls := newTestRegistry(t, nil)

	result, err := call(t, registry, "ping", "")
	require.NoError(t, err)
	assert.Equal(t, pingResult{Status: "ok", Service: "strava-mcp"}, result)
	assert.EqualValues(t, 0, calls.Load())
}

func TestUnknownToolIsRejected(t *testing.T) {
	registry, calls := newTestRegistry(t, nil)

	_, err := call(t, registry, "delete_everything", "")
	require.ErrorIs(t, err, ErrUnknownTool)
	assert.EqualValues(t, 0, calls.Load())
}

func TestRegistryRejectsMalformedNames(t *testing.T) {
	registry := NewRegistry()
	noop := func(ctx context.Context, args json.RawMessage) (any, error) { return nil, nil }

	for _, name := range []string{"", "bad name", "uni©ode", strings.Repeat("x", 65)} {
		err := registry.Register(Tool{Definition: Definition{Name: name}, Handler: noop})
		assert.Error(t, err, "name %q", name)
	}

	require.NoError(t, registry.Register(Tool{Definition: Definition{Name: "ok_tool-1"}, Handler: noop}))
	assert.Error(t, registry.Register(Tool{Definition: Definition{Name: "ok_tool-1"}, Handler: noop}),
		"duplicate registration")
}

func TestDefinitionsKeepRegistrationOrder(t *testing.T) {
	registry, _ := newTestRegistry(t, nil)

	var names []string
	for _, def := range registry.Definitions() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{
		"ping",
		"get_activities",
		"get_activity",
		"get_athlete",
		"get_athlete_stats",
		"get_routes",
	}, names)
}

func TestUpstreamErrorsPropagateUntouched(t *testing.T) {
	registry, _ := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Record Not Found"}`, http.StatusNotFound)
	})

	_, err := call(t, registry, "get_activity", `{"activity_id": 12345}`)
	var notFound *strava.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.EqualValues(t, 12345, notFound.ID)
}
