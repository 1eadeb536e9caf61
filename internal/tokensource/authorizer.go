package tokensource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultScopes covers every read-only endpoint the bridge exposes.
var DefaultScopes = []string{"read", "activity:read_all", "profile:read_all"}

// Authorizer handles the initial OAuth2 authorization-code flow for Strava.
// It uses a manual HTTP request for the token exchange because Strava expects
// the client secret form-encoded in the body rather than basic auth.
type Authorizer struct {
	config *oauth2.Config
	client *http.Client
}

// NewAuthorizer creates a Strava OAuth authorizer.
func NewAuthorizer(clientID, clientSecret, redirectURL string) *Authorizer {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{strings.Join(DefaultScopes, ",")},
		Endpoint:     Endpoint,
	}

	return &Authorizer{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthCodeURL generates the authorization URL the user must visit. Strava
// re-prompts on every visit with approval_prompt=force, which keeps the flow
// deterministic for scripted setups.
func (a *Authorizer) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "force"))
}

// Exchange completes the flow by exchanging an authorization code for tokens.
// The returned token's RefreshToken is the long-lived credential the server
// needs at startup.
func (a *Authorizer) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, errors.New("authorization code cannot be empty")
	}

	form := url.Values{
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	now := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("reading exchange response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decoding exchange response: %w", err)
	}

	token := &oauth2.Token{
		TokenType:    tok.TokenType,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	switch {
	case tok.ExpiresAt > 0:
		token.Expiry = time.Unix(tok.ExpiresAt, 0)
	case tok.ExpiresIn > 0:
		token.Expiry = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	return token, nil
}
