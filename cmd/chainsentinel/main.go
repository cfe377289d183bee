package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gabapcia/chainsentinel/internal/config"
	"github.com/gabapcia/chainsentinel/internal/handlers/cli"
	"github.com/gabapcia/chainsentinel/internal/pkg/logger"
	"github.com/gabapcia/chainsentinel/internal/pkg/telemetry"
)

// Exit codes: 0 on clean shutdown, 1 on unrecoverable startup failure
// (invalid configuration), 2 on panic.
const (
	exitStartupFailure = 1
	exitPanic          = 2
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			os.Exit(exitPanic)
		}
	}()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(exitStartupFailure)
	}

	if cfg.TelemetryEnabled {
		shutdown, err := telemetry.Init(ctx, "chainsentinel")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize telemetry: %v\n", err)
			os.Exit(exitStartupFailure)
		}
		defer func() {
			_ = shutdown(ctx)
		}()
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(exitStartupFailure)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := cli.Run(ctx, cfg); err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(exitStartupFailure)
	}
}
