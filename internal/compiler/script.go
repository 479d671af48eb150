package compiler

import (
	"fmt"
	"strings"

	"github.com/vk/flowforge/internal/workflow"
)

// scriptBackend renders a standalone Python program with CLI argument
// parsing. For a graph that is not yet exportable it emits a placeholder
// comment instead of failing: the script is read by the same person who left
// the canvas incomplete.
type scriptBackend struct{}

func (*scriptBackend) Name() string     { return "script" }
func (*scriptBackend) Filename() string { return "run_pipeline.py" }

func (*scriptBackend) Generate(g *workflow.Graph, opts Options) (string, error) {
	var sb strings.Builder
	sb.WriteString("#!/usr/bin/env python3\n")

	if errs := workflow.ExportErrors(g); len(errs) > 0 {
		sb.WriteString("# This workflow is not ready to run:\n")
		for _, e := range errs {
			sb.WriteString("#   - " + e + "\n")
		}
		sb.WriteString("# Complete the pipeline on the canvas and export again.\n")
		return sb.String(), nil
	}

	p := buildPlan(g)

	sb.WriteString(`# Optimization pipeline exported by flowforge.

import argparse
import json

from pipeline_client import execute, load_dataset, load_optimizer, load_problem


def parse_overrides(pairs):
    overrides = {}
    for pair in pairs:
        key, sep, raw = pair.partition("=")
        if not sep:
            continue
        try:
            overrides[key] = json.loads(raw)
        except json.JSONDecodeError:
            overrides[key] = raw
    return overrides


def main():
    parser = argparse.ArgumentParser(description="Run an exported optimization pipeline.")
    parser.add_argument("--token", default="", help="platform access token")
    parser.add_argument(
        "--param",
        action="append",
        default=[],
        metavar="KEY=VALUE",
        help="parameter override; VALUE is parsed as JSON, or kept as a raw string",
    )
    args = parser.parse_args()
    overrides = parse_overrides(args.param)

`)

	stageTotal := 3
	if len(p.datasets) > 0 {
		stageTotal = 4
	}
	stage := 0
	writeStage := func(title string, lines []string) {
		stage++
		if stage > 1 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "    print(\"[%d/%d] %s\")\n", stage, stageTotal, title)
		for _, line := range lines {
			sb.WriteString("    " + line + "\n")
		}
	}

	if len(p.datasets) > 0 {
		writeStage("Loading datasets", datasetLines(p, "args.token"))
	}

	probLines, err := problemLines(g, p, opts, "args.token", "overrides")
	if err != nil {
		return "", err
	}
	writeStage("Loading problem", probLines)

	optLines, err := optimizerLines(g, p, opts, "args.token", "overrides")
	if err != nil {
		return "", err
	}
	writeStage("Loading optimizer", optLines)

	writeStage("Running optimization", executionLines(p))

	sb.WriteString(`

if __name__ == "__main__":
    main()
`)
	return sb.String(), nil
}
