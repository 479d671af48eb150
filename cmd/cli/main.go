package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vk/flowforge/internal/app"
	"github.com/vk/flowforge/internal/cli"
	"github.com/vk/flowforge/internal/coordinator"
	"github.com/vk/flowforge/internal/remote"
)

// main is the entrypoint for the flowforge application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runner coordinator.Runner
	if appConfig.Run {
		runner = remote.New(remote.Config{
			URL:            appConfig.ServerURL,
			Namespace:      appConfig.Namespace,
			Token:          appConfig.Token,
			ConnectTimeout: 10 * time.Second,
		})
	}

	flowforgeApp := app.NewApp(outW, appConfig, runner)
	return flowforgeApp.Run(ctx)
}
