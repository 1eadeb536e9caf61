package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/tbraun92/strava-mcp/internal/tokensource"
)

// defaultRedirectURL matches the callback domain Strava suggests for
// localhost applications. The code is pasted manually, so nothing needs to
// listen there.
const defaultRedirectURL = "http://localhost/exchange_token"

// authCommand returns the 'auth' subcommand for obtaining Strava credentials.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Strava authentication",
		Commands: []*cli.Command{
			authLoginCommand(),
		},
	}
}

// authLoginCommand returns the 'auth login' subcommand.
func authLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Run the Strava OAuth flow and print the refresh token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "redirect-url",
				Usage: "OAuth redirect URL registered with the Strava application",
				Value: defaultRedirectURL,
			},
		},
		Action: authLoginAction,
	}
}

// authLoginAction implements the OAuth authorization-code flow for Strava.
// The server itself never persists tokens; the operator stores the printed
// refresh token in the environment.
func authLoginAction(ctx context.Context, cmd *cli.Command) error {
	// Best effort: a missing .env simply means the environment is already set.
	_ = godotenv.Load()

	clientID := os.Getenv("STRAVA_CLIENT_ID")
	clientSecret := os.Getenv("STRAVA_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("STRAVA_CLIENT_ID and STRAVA_CLIENT_SECRET must be set before login")
	}

	authorizer := tokensource.NewAuthorizer(clientID, clientSecret, cmd.String("redirect-url"))

	// The verifier doubles as an opaque random state value; Strava has no PKCE.
	state := oauth2.GenerateVerifier()
	authURL := authorizer.AuthCodeURL(state)

	fmt.Println("=== Strava OAuth Login ===")
	fmt.Println()
	fmt.Printf("1. Visit this URL in your browser:\n   %s\n\n", authURL)
	fmt.Println("2. Authorize the application")
	fmt.Println("3. Copy the 'code' parameter from the redirect URL and paste it below")

	code, err := readSecureInput(ctx, "\nEnter authorization code: ")
	if err != nil {
		return err
	}

	token, err := authorizer.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Login Successful ===")
	fmt.Printf("Refresh token: %s\n", token.RefreshToken)
	fmt.Printf("Access token:  %s (expires %s)\n", token.AccessToken, token.Expiry.Format("2006-01-02 15:04:05"))
	fmt.Println()
	fmt.Println("Set STRAVA_REFRESH_TOKEN to the refresh token and start the server")

	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
