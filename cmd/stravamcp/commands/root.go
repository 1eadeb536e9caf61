// Package commands defines the stravamcp CLI.
package commands

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "stravamcp",
		Usage: "Strava bridge for AI-assistant hosts (MCP server)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a TOML config file (environment variables take precedence)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			authCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// logLevel parses the global --log-level flag.
func logLevel(cmd *cli.Command) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(cmd.String("log-level")))
	return level, err
}
