package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gabapcia/chainsentinel/internal/config"
	"github.com/gabapcia/chainsentinel/internal/pipeline"
	"github.com/gabapcia/chainsentinel/internal/repository"

	"github.com/urfave/cli/v3"
)

// startCommand returns the CLI command that runs the full monitoring
// pipeline: scheduled block acquisition, filtering, and notification
// dispatch for every configured network.
//
// Usage example:
//
//	chainsentinel start
//
// The process runs indefinitely until it receives an interrupt (SIGINT or
// SIGTERM). In-flight ticks are allowed to finish; the cursor is never
// advanced for a partially processed range.
func startCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:        "start",
		Description: "Starts the monitoring pipeline including block acquisition, filtering, and notification dispatch.",
		Usage:       "Initializes and runs the daemon. Terminates gracefully on Ctrl+C or termination signals.",
		Action: func(ctx context.Context, c *cli.Command) error {
			repos, err := repository.Load(cfg.ConfigDir)
			if err != nil {
				return err
			}

			svc, err := pipeline.New(ctx, cfg, repos)
			if err != nil {
				return err
			}

			quit := make(chan os.Signal, 1)
			defer close(quit)

			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer svc.Close()

			<-quit
			return nil
		},
	}
}
