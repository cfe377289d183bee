package cli

import (
	"context"
	"fmt"

	"github.com/gabapcia/chainsentinel/internal/config"
	"github.com/gabapcia/chainsentinel/internal/repository"

	"github.com/urfave/cli/v3"
)

// validateCommand returns the CLI command that loads the configuration
// tree, verifies every entity and cross-reference, and prints a short
// summary. A non-zero exit signals invalid configuration.
//
// Usage example:
//
//	chainsentinel validate
func validateCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:        "validate",
		Description: "Loads and validates networks, monitors, and triggers, then exits.",
		Usage:       "Checks the configuration tree without starting the daemon.",
		Action: func(ctx context.Context, c *cli.Command) error {
			repos, err := repository.Load(cfg.ConfigDir)
			if err != nil {
				return err
			}

			fmt.Printf("configuration OK: %d network(s), %d monitor(s), %d trigger(s)\n",
				len(repos.Networks.All()),
				len(repos.Monitors.All()),
				len(repos.Triggers.All()),
			)
			return nil
		},
	}
}
