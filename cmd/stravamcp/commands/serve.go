package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tbraun92/strava-mcp/internal/app"
	"github.com/tbraun92/strava-mcp/internal/config"
	"github.com/tbraun92/strava-mcp/internal/observability"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the MCP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "transport",
				Usage: "transport to serve on (stdio|http)",
				Value: "stdio",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address for the http transport",
				Value: "127.0.0.1:8765",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: "text",
			},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	level, err := logLevel(cmd)
	if err != nil {
		return err
	}

	// Logs always go to stderr: on the stdio transport, stdout carries
	// protocol traffic only.
	if err := observability.Instrument(level, cmd.String("log-format"), os.Stderr); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting")

	switch transport := cmd.String("transport"); transport {
	case "stdio":
		err = application.RunStdio(ctx)
	case "http":
		err = application.RunHTTP(ctx, cmd.String("addr"))
	default:
		return fmt.Errorf("unsupported transport %q (expected: stdio, http)", transport)
	}
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
