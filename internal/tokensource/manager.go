package tokensource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/tbraun92/strava-mcp/internal/strava"
)

// Endpoint is Strava's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// DefaultExpiryMargin is subtracted from the token expiry so a call started
// just before expiry doesn't race the upstream clock.
const DefaultExpiryMargin = 60 * time.Second

// Credential holds the process's OAuth2 state. AccessToken and Expiry are
// overwritten on every refresh; RefreshToken is overwritten when the provider
// rotates it. It lives in process memory only and is never persisted.
type Credential struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string

	// Expiry is the absolute expiry of AccessToken. Zero means unknown
	// (e.g. a pre-seeded token from the environment); such a token is used
	// until the upstream rejects it.
	Expiry time.Time
}

// Manager owns the single shared Credential and serializes every
// check-refresh-store sequence behind one mutex, so concurrent callers can
// never interleave two refreshes and lose a rotated refresh token.
type Manager struct {
	mu     sync.Mutex
	cred   Credential
	client *http.Client

	tokenURL string
	margin   time.Duration
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient overrides the HTTP client used for refresh requests.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.client = client
	}
}

// WithExpiryMargin overrides the safety margin applied to the token expiry.
func WithExpiryMargin(margin time.Duration) Option {
	return func(m *Manager) {
		m.margin = margin
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager around the given credential. tokenURL is the
// provider's OAuth2 token endpoint, usually Endpoint.TokenURL.
func NewManager(cred Credential, tokenURL string, opts ...Option) *Manager {
	m := &Manager{
		cred:     cred,
		tokenURL: tokenURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		margin:   DefaultExpiryMargin,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a currently valid access token, refreshing first if none is
// held or the held one is within the expiry margin.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.validLocked() {
		return m.cred.AccessToken, nil
	}
	return m.refreshLocked(ctx)
}

// ForceRefresh discards the access token that just failed with 401 and
// obtains a new one. If another caller already replaced the stale token the
// current one is returned without a second upstream request.
func (m *Manager) ForceRefresh(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred.AccessToken != "" && m.cred.AccessToken != stale {
		return m.cred.AccessToken, nil
	}
	return m.refreshLocked(ctx)
}

func (m *Manager) validLocked() bool {
	if m.cred.AccessToken == "" {
		return false
	}
	if m.cred.Expiry.IsZero() {
		return true
	}
	return m.now().Add(m.margin).Before(m.cred.Expiry)
}

// refreshLocked calls the token endpoint and overwrites the credential.
// The caller must hold m.mu.
func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	if m.cred.RefreshToken == "" {
		return "", &strava.AuthError{Body: "no refresh token available"}
	}

	form := url.Values{
		"client_id":     {m.cred.ClientID},
		"client_secret": {m.cred.ClientSecret},
		"refresh_token": {m.cred.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	now := m.now()
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("reading refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &strava.AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", &strava.AuthError{Status: resp.StatusCode, Body: "malformed token response"}
	}

	// Strict replacement: the refreshed token fully supersedes the old state.
	m.cred.AccessToken = tok.AccessToken
	switch {
	case tok.ExpiresAt > 0:
		m.cred.Expiry = time.Unix(tok.ExpiresAt, 0)
	case tok.ExpiresIn > 0:
		m.cred.Expiry = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	default:
		m.cred.Expiry = time.Time{}
	}
	if tok.RefreshToken != "" {
		m.cred.RefreshToken = tok.RefreshToken
	}

	return m.cred.AccessToken, nil
}

// tokenResponse is the body of a successful token endpoint call.
type tokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
}
