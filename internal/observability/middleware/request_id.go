package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDContextKey is a context key for storing request IDs.
type RequestIDContextKey struct{}

// RequestID assigns each request an ID (from the client's X-Request-ID header
// or freshly generated), stores it in the request context, echoes it in the
// response header, and attaches it to the request log.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// Set early so the header is present even in recovery scenarios.
		w.Header().Set("X-Request-ID", requestID)
		SetLogAttrs(r.Context(), slog.String("request_id", requestID))

		ctx := context.WithValue(r.Context(), RequestIDContextKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
