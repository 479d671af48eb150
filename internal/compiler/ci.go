package compiler

import (
	"fmt"
	"strings"

	"github.com/vk/flowforge/internal/workflow"
)

// ciBackend renders a CI pipeline definition that installs the manifest and
// runs the exported script. Like the container backend it refuses a
// non-exportable graph.
type ciBackend struct{}

func (*ciBackend) Name() string     { return "ci" }
func (*ciBackend) Filename() string { return "pipeline.yml" }

func (*ciBackend) Generate(g *workflow.Graph, opts Options) (string, error) {
	if errs := workflow.ExportErrors(g); len(errs) > 0 {
		return "", fmt.Errorf("%w: %s", ErrNotExportable, strings.Join(errs, "; "))
	}
	p := buildPlan(g)

	var sb strings.Builder
	sb.WriteString("# Optimization pipeline exported by flowforge.\n")
	sb.WriteString("#\n")
	writePipelineSummary(&sb, "# ", p)
	sb.WriteString(`
name: run-optimization-pipeline

on:
  workflow_dispatch:

jobs:
  run:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4

      - uses: actions/setup-python@v5
        with:
          python-version: "3.11"

      - name: Install dependencies
        run: pip install -r requirements.txt

      - name: Run pipeline
        run: python run_pipeline.py --token "$FLOWFORGE_TOKEN"
        env:
          FLOWFORGE_TOKEN: ${{ secrets.FLOWFORGE_TOKEN }}
`)
	return sb.String(), nil
}
