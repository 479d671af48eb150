package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/flowforge/internal/compiler"
	"github.com/vk/flowforge/internal/coordinator"
	"github.com/vk/flowforge/internal/ctxlog"
	"github.com/vk/flowforge/internal/hclgrid"
	"github.com/vk/flowforge/internal/workflow"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	graph, err := hclgrid.LoadPath(a.config.WorkflowPath)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}
	a.logger.Info("Workflow loaded.",
		"nodes", len(graph.Nodes()),
		"edges", len(graph.Edges()),
		"exportable", workflow.IsExportable(graph))

	if len(a.config.ExportBackends) > 0 {
		if err := a.export(graph); err != nil {
			return err
		}
	}

	if a.config.Run {
		if err := a.execute(ctx, graph); err != nil {
			return err
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// export generates and writes the requested artifacts.
func (a *App) export(graph *workflow.Graph) error {
	if errs := workflow.ExportErrors(graph); len(errs) > 0 {
		for _, e := range errs {
			a.logger.Warn("Workflow is incomplete.", "reason", e)
		}
	}

	if err := os.MkdirAll(a.config.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	opts := compiler.Options{Overrides: a.config.Overrides}
	for _, name := range a.config.ExportBackends {
		backend, err := compiler.ByName(name)
		if err != nil {
			return err
		}
		artifact, err := backend.Generate(graph, opts)
		if err != nil {
			if errors.Is(err, compiler.ErrNotExportable) {
				return fmt.Errorf("backend %s refused the incomplete workflow: %w", name, err)
			}
			return fmt.Errorf("backend %s failed: %w", name, err)
		}

		path := filepath.Join(a.config.OutDir, backend.Filename())
		if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		a.logger.Info("Artifact written.", "backend", name, "path", path)
	}
	return nil
}

// execute launches the workflow on the remote execution service and streams
// its logs until the run reaches a terminal state or the context is
// cancelled (which triggers a cooperative stop).
func (a *App) execute(ctx context.Context, graph *workflow.Graph) error {
	if !workflow.IsExportable(graph) {
		return fmt.Errorf("refusing to run an incomplete workflow: %w", compiler.ErrNotExportable)
	}

	coord := coordinator.New(a.runner, coordinator.WithNotify(func(entry coordinator.LogEntry) {
		a.logger.Info("run: "+entry.Message,
			"level", entry.Level, "source", entry.Source, "step", entry.Step)
	}))

	handle, err := coord.Execute(ctx, graph)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	a.logger.Info("🚀 Run started.", "handle", string(handle))

	select {
	case <-coord.Done():
	case <-ctx.Done():
		a.logger.Warn("Interrupted; requesting cancellation.")
		stopCtx := ctxlog.WithLogger(context.Background(), a.logger)
		if err := coord.Stop(stopCtx); err != nil {
			a.logger.Warn("Stop request failed.", "error", err)
		}
		<-coord.Done()
	}

	state := coord.State()
	a.logger.Info("🏁 Run finished.",
		"status", string(state.Status),
		"progress", state.Progress,
		"duration_ms", state.Metrics.ExecutionTimeMs)
	if state.Status == coordinator.StatusError {
		return fmt.Errorf("run failed: %s", state.Error)
	}
	return nil
}
