// Package cli exposes the chainsentinel command-line interface: the
// long-running monitoring daemon and a configuration validation command.
package cli

import (
	"context"
	"os"

	"github.com/gabapcia/chainsentinel/internal/config"

	"github.com/urfave/cli/v3"
)

// Run initializes and executes the chainsentinel CLI application.
//
// It registers all available commands:
//
//   - `start`: loads configuration and runs the monitoring pipeline until
//     interrupted.
//   - `validate`: loads and validates configuration, then exits.
//
// Parameters:
//   - ctx: Context used to control the lifecycle of the CLI application.
//   - cfg: The resolved environment configuration.
func Run(ctx context.Context, cfg config.Config) error {
	app := &cli.Command{
		EnableShellCompletion: true,
		DefaultCommand:        "start",
		Name:                  "chainsentinel",
		Description:           "Command-line interface for running and inspecting the chainsentinel monitoring daemon.",
		Usage:                 "chainsentinel [command] [flags]",
		Commands: []*cli.Command{
			startCommand(cfg),
			validateCommand(cfg),
		},
	}

	return app.Run(ctx, os.Args)
}
