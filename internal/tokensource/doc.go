// Package tokensource provides OAuth2 token acquisition and automatic refresh
// for the Strava v3 API.
//
// Strava's OAuth2 implementation is close to the standard but has two quirks:
//   - Token responses carry an absolute "expires_at" epoch timestamp in
//     addition to the usual "expires_in"
//   - Refresh responses may rotate the refresh token; the latest one must be
//     used for the next refresh or the provider invalidates the grant
//
// # Token refresh
//
// Manager owns the process's single Credential and serializes every
// check-refresh-store sequence behind one mutex:
//
//	mgr := tokensource.NewManager(cred, tokensource.Endpoint.TokenURL)
//	token, err := mgr.Token(ctx) // refreshes only when missing or near expiry
//
// After an API call fails with 401, callers request exactly one forced
// refresh, passing the token that was rejected so that concurrent callers
// don't trigger duplicate refreshes:
//
//	token, err = mgr.ForceRefresh(ctx, staleToken)
//
// # Authorization flow
//
// Use Authorizer for the initial OAuth2 flow to obtain a refresh token:
//
//	auth := tokensource.NewAuthorizer(clientID, clientSecret, redirectURL)
//	authURL := auth.AuthCodeURL(state)
//	// After the user authorizes, Strava redirects with ?code=...
//	token, err := auth.Exchange(ctx, code)
//	// Save token.RefreshToken for future use
package tokensource
