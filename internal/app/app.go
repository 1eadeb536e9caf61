// Package app wires configuration, the token manager, the Strava client, and
// the tool registry into a runnable MCP server with a stdio and an HTTP
// transport.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbraun92/strava-mcp/internal/config"
	"github.com/tbraun92/strava-mcp/internal/mcp"
	"github.com/tbraun92/strava-mcp/internal/observability/middleware"
	"github.com/tbraun92/strava-mcp/internal/strava"
	"github.com/tbraun92/strava-mcp/internal/tokensource"
	"github.com/tbraun92/strava-mcp/internal/tools"
)

const (
	serverName    = "strava-mcp"
	serverVersion = "0.2.0"
)

// App orchestrates the lifecycle of the MCP server.
type App struct {
	server *mcp.Server
	health *Health
}

// New builds the full dependency chain from configuration. The credential is
// loaded here once; from then on only the token manager touches it.
func New(cfg config.Config) (*App, error) {
	manager := tokensource.NewManager(tokensource.Credential{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RefreshToken: cfg.RefreshToken,
		AccessToken:  cfg.AccessToken,
	}, cfg.TokenURL)

	client := strava.NewClient(manager,
		strava.WithBaseURL(cfg.BaseURL),
		strava.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		}),
	)

	registry := tools.NewRegistry()
	for _, tool := range tools.NewStravaTools(client) {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("registering tool: %w", err)
		}
	}

	return &App{
		server: mcp.NewServer(registry, serverName, serverVersion),
		health: NewHealth(),
	}, nil
}

// RunStdio serves MCP over stdin/stdout until the input closes or the context
// is canceled. Cancellation is a clean shutdown, not an error.
func (a *App) RunStdio(ctx context.Context) error {
	slog.InfoContext(ctx, "serving MCP over stdio")
	a.health.SetReady(true)
	defer a.health.SetReady(false)

	err := a.server.ServeStdio(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunHTTP serves MCP over HTTP and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and coordinated cleanup.
func (a *App) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.ApplyMiddlewares(
		mcp.NewHTTPHandler(a.server, a.health),
		middleware.Logging(slog.Default()),
		middleware.RequestID,
		mcp.Recovery,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	slog.InfoContext(gCtx, "serving MCP over HTTP", "addr", addr)
	a.health.SetReady(true)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.health.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.InfoContext(shutdownCtx, "shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("application stopped")
	return nil
}
