package compiler

import (
	"fmt"
	"strings"

	"github.com/vk/flowforge/internal/workflow"
)

// containerBackend renders a container image definition that packages the
// exported script. A non-exportable graph is a hard error here: a machine
// consumes this artifact, and a placeholder image would fail far from the
// cause.
type containerBackend struct{}

func (*containerBackend) Name() string     { return "container" }
func (*containerBackend) Filename() string { return "Dockerfile" }

func (*containerBackend) Generate(g *workflow.Graph, opts Options) (string, error) {
	if errs := workflow.ExportErrors(g); len(errs) > 0 {
		return "", fmt.Errorf("%w: %s", ErrNotExportable, strings.Join(errs, "; "))
	}
	p := buildPlan(g)

	var sb strings.Builder
	sb.WriteString("# syntax=docker/dockerfile:1\n")
	sb.WriteString("# Optimization pipeline image exported by flowforge.\n")
	sb.WriteString("#\n")
	writePipelineSummary(&sb, "# ", p)
	sb.WriteString(`
FROM python:3.11-slim

WORKDIR /app

COPY requirements.txt ./
RUN pip install --no-cache-dir -r requirements.txt

COPY run_pipeline.py ./

ENV FLOWFORGE_TOKEN=""

ENTRYPOINT ["python", "run_pipeline.py"]
`)
	return sb.String(), nil
}

// writePipelineSummary emits the four-stage structure as prefixed comment
// lines, shared by the container and CI backends.
func writePipelineSummary(sb *strings.Builder, prefix string, p plan) {
	stage := 0
	writeLine := func(format string, args ...any) {
		sb.WriteString(prefix)
		fmt.Fprintf(sb, format, args...)
		sb.WriteString("\n")
	}
	if len(p.datasets) > 0 {
		stage++
		ids := make([]string, 0, len(p.datasets))
		for _, ds := range p.datasets {
			ids = append(ids, ds.ID)
		}
		writeLine("Stage %d - datasets: %s", stage, strings.Join(ids, ", "))
	}
	for _, pr := range p.problems {
		stage++
		writeLine("Stage %d - problem: %s (%s)", stage, pr.ID, repoRef(pr))
	}
	for _, opt := range p.optimizers {
		stage++
		writeLine("Stage %d - optimizer: %s (%s)", stage, opt.ID, repoRef(opt))
	}
	stage++
	keys := make([]string, 0, len(p.executions))
	for _, ex := range p.executions {
		keys = append(keys, ex.key)
	}
	writeLine("Stage %d - execution: %s", stage, strings.Join(keys, ", "))
}
