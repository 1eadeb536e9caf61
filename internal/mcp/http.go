package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// maxRequestBytes bounds one HTTP-transported JSON-RPC message.
const maxRequestBytes = 4 << 20

// ReadinessChecker reports whether the application is ready to serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// NewHTTPHandler builds the HTTP transport: JSON-RPC over POST /mcp plus
// liveness and readiness probes. Middleware wiring happens in the app layer.
func NewHTTPHandler(server *Server, checker ReadinessChecker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /mcp", rpcHandler(server))
	mux.HandleFunc("GET /healthz", livenessHandler())
	mux.HandleFunc("GET /readyz", readinessHandler(checker))
	return mux
}

// rpcHandler serves one JSON-RPC message per POST. Notifications are
// acknowledged with 202 and no body.
func rpcHandler(server *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			slog.WarnContext(ctx, "failed to read request body", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		resp := server.HandleRaw(ctx, body)
		if resp == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		writeJSON(ctx, w, resp, http.StatusOK)
	}
}

// livenessHandler always returns 200 OK to indicate the process is alive.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}
}

// readinessHandler returns 200 OK once the application is ready to serve
// traffic, 503 otherwise.
func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if checker.IsReady() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}
}

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// Recovery recovers from panics in HTTP handlers and returns HTTP 500 to the client.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recover() != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				// Logging of panics is handled in Logging middleware
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ApplyMiddlewares applies middlewares to a handler in the order they appear.
// The first middleware in the slice is the outermost (executes first).
func ApplyMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
