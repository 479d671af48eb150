// Package app wires the workflow loader, the artifact compiler, and the
// execution coordinator behind a single Run entrypoint for the CLI.
package app

import (
	"io"
	"log/slog"

	"github.com/vk/flowforge/internal/coordinator"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	runner coordinator.Runner
}

// NewApp is the constructor for the main application. The runner may be nil
// when the configuration does not request a run; tests inject a fake runner
// in its place.
func NewApp(outW io.Writer, config *Config, runner coordinator.Runner) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		logger: logger,
		config: config,
		runner: runner,
	}
}
