package strava

import (
	"fmt"
	"time"
)

// AuthError indicates that the upstream rejected our credentials: either the
// token refresh itself failed, or an API call still returned 401 after the
// single forced refresh. Fatal for the current call, not for the process.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("strava: authentication failed: %s", e.Body)
	}
	return fmt.Sprintf("strava: authentication failed (status %d): %s", e.Status, e.Body)
}

// NotFoundError maps an upstream 404 for a specific resource.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("strava: %s %d not found", e.Resource, e.ID)
}

// ForbiddenError maps an upstream 403, e.g. stats requested for an athlete
// other than the authenticated one.
type ForbiddenError struct {
	Body string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("strava: access forbidden: %s", e.Body)
}

// RateLimitError maps an upstream 429. RetryAfter carries the server's
// Retry-After hint when present (zero otherwise); callers decide whether to
// wait and resubmit, the client never loops internally.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("strava: rate limited, retry after %s", e.RetryAfter)
	}
	return "strava: rate limited"
}

// UpstreamError covers every other non-2xx response and malformed bodies.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("strava: upstream error (status %d): %s", e.Status, e.Body)
}
