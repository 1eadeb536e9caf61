// Package strava is a typed, read-only client for the Strava v3 REST API.
// Every call obtains a bearer token from its TokenSource first, retries
// exactly once after a 401 (with a forced refresh in between), and maps
// upstream failures onto the package's error taxonomy so callers never see a
// raw HTTP response.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the versioned API root.
const DefaultBaseURL = "https://www.strava.com/api/v3"

// defaultTimeout bounds a single HTTP round trip so a stalled upstream cannot
// hang a tool call indefinitely.
const defaultTimeout = 15 * time.Second

// TokenSource supplies valid access tokens. Token is called before every
// request; ForceRefresh is called at most once per request, after a 401, with
// the token that was rejected.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context, stale string) (string, error)
}

// Client issues authenticated GET requests against the Strava API.
type Client struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root. Used in tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client used for API requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a Client that authenticates through the given TokenSource.
func NewClient(tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActivities returns the authenticated athlete's activities, most recent
// first as returned upstream.
func (c *Client) ListActivities(ctx context.Context, page, perPage int) ([]ActivityMetrics, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}

	var activities []ActivityMetrics
	if err := c.getJSON(ctx, "/athlete/activities", query, &activities, target{}); err != nil {
		return nil, err
	}
	return activities, nil
}

// GetActivity returns one activity with extended detail fields.
func (c *Client) GetActivity(ctx context.Context, id int64) (*ActivityDetail, error) {
	var detail ActivityDetail
	path := fmt.Sprintf("/activities/%d", id)
	if err := c.getJSON(ctx, path, nil, &detail, target{resource: "activity", id: id}); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetAthlete returns the authenticated athlete's profile.
func (c *Client) GetAthlete(ctx context.Context) (*Athlete, error) {
	var athlete Athlete
	if err := c.getJSON(ctx, "/athlete", nil, &athlete, target{}); err != nil {
		return nil, err
	}
	return &athlete, nil
}

// GetAthleteStats returns aggregated totals for the given athlete. The
// upstream rejects IDs other than the authenticated athlete's with 403.
func (c *Client) GetAthleteStats(ctx context.Context, athleteID int64) (*AthleteStats, error) {
	var stats AthleteStats
	path := fmt.Sprintf("/athletes/%d/stats", athleteID)
	if err := c.getJSON(ctx, path, nil, &stats, target{resource: "athlete", id: athleteID}); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListRoutes returns the authenticated athlete's saved routes.
func (c *Client) ListRoutes(ctx context.Context, page, perPage int) ([]RouteSummary, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}

	var routes []RouteSummary
	if err := c.getJSON(ctx, "/athlete/routes", query, &routes, target{}); err != nil {
		return nil, err
	}
	return routes, nil
}

// target identifies the resource a request is about, for 404 mapping.
// The zero value means the endpoint is not about one specific resource.
type target struct {
	resource string
	id       int64
}

// getJSON performs one authenticated GET as an explicit two-attempt loop:
// the first 401 triggers exactly one forced token refresh and one retry,
// a second 401 surfaces as AuthError. Other statuses are mapped and never
// retried here.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any, tgt target) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		resp, err := c.send(ctx, path, query, token)
		if err != nil {
			return err
		}

		if resp.status == http.StatusUnauthorized && attempt == 0 {
			token, err = c.tokens.ForceRefresh(ctx, token)
			if err != nil {
				return err
			}
			continue
		}

		return c.handleResponse(resp, out, tgt)
	}

	// Unreachable: the loop always returns on the second attempt.
	return &UpstreamError{Body: "request loop exhausted"}
}

// response is the fully read upstream reply, decoupled from net/http so the
// retry loop never holds an open body across attempts.
type response struct {
	status     int
	body       []byte
	retryAfter time.Duration
}

func (c *Client) send(ctx context.Context, path string, query url.Values, token string) (*response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &response{
		status:     resp.StatusCode,
		body:       body,
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}, nil
}

// parseRetryAfter handles the delay-seconds form of the Retry-After header.
// Strava doesn't use the HTTP-date form.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (c *Client) handleResponse(resp *response, out any, tgt target) error {
	switch {
	case resp.status >= 200 && resp.status < 300:
		if err := json.Unmarshal(resp.body, out); err != nil {
			return &UpstreamError{Status: resp.status, Body: "malformed response body"}
		}
		return nil
	case resp.status == http.StatusUnauthorized:
		return &AuthError{Status: resp.status, Body: string(resp.body)}
	case resp.status == http.StatusForbidden:
		return &ForbiddenError{Body: string(resp.body)}
	case resp.status == http.StatusNotFound && tgt.resource != "":
		return &NotFoundError{Resource: tgt.resource, ID: tgt.id}
	case resp.status == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: resp.retryAfter}
	default:
		return &UpstreamError{Status: resp.status, Body: string(resp.body)}
	}
}
