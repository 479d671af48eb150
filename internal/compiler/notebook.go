package compiler

import (
	"encoding/json"
	"strings"

	"github.com/vk/flowforge/internal/workflow"
)

// notebookBackend renders a Jupyter notebook mirroring the four pipeline
// stages as markdown/code cell pairs.
type notebookBackend struct{}

func (*notebookBackend) Name() string     { return "notebook" }
func (*notebookBackend) Filename() string { return "pipeline.ipynb" }

type nbCell struct {
	CellType string         `json:"cell_type"`
	Metadata map[string]any `json:"metadata"`
	Source   []string       `json:"source"`
	// ExecutionCount and Outputs only appear on code cells.
	ExecutionCount *int  `json:"execution_count,omitempty"`
	Outputs        []any `json:"outputs,omitempty"`
}

type nbKernelspec struct {
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Name        string `json:"name"`
}

type nbMetadata struct {
	Kernelspec nbKernelspec `json:"kernelspec"`
}

type notebook struct {
	Cells         []nbCell   `json:"cells"`
	Metadata      nbMetadata `json:"metadata"`
	NBFormat      int        `json:"nbformat"`
	NBFormatMinor int        `json:"nbformat_minor"`
}

// nbSource converts statement lines into nbformat source: every line but the
// last carries its own trailing newline.
func nbSource(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if i < len(lines)-1 {
			out[i] = line + "\n"
		} else {
			out[i] = line
		}
	}
	return out
}

func markdownCell(lines ...string) nbCell {
	return nbCell{CellType: "markdown", Metadata: map[string]any{}, Source: nbSource(lines)}
}

func codeCell(lines []string) nbCell {
	return nbCell{
		CellType: "code",
		Metadata: map[string]any{},
		Source:   nbSource(lines),
		Outputs:  []any{},
	}
}

func (*notebookBackend) Generate(g *workflow.Graph, opts Options) (string, error) {
	nb := notebook{
		Metadata: nbMetadata{
			Kernelspec: nbKernelspec{DisplayName: "Python 3", Language: "python", Name: "python3"},
		},
		NBFormat:      4,
		NBFormatMinor: 5,
	}

	if errs := workflow.ExportErrors(g); len(errs) > 0 {
		lines := []string{"# Incomplete pipeline", "", "This workflow is not ready to run:", ""}
		for _, e := range errs {
			lines = append(lines, "- "+e)
		}
		lines = append(lines, "", "Complete the pipeline on the canvas and export again.")
		nb.Cells = []nbCell{markdownCell(lines...)}
		return marshalNotebook(nb)
	}

	p := buildPlan(g)

	nb.Cells = append(nb.Cells,
		markdownCell("# Optimization pipeline", "", "Exported by flowforge."),
		codeCell([]string{
			"from pipeline_client import execute, load_dataset, load_optimizer, load_problem",
			"",
			`TOKEN = ""`,
			"OVERRIDES = {}",
		}),
	)

	if len(p.datasets) > 0 {
		nb.Cells = append(nb.Cells,
			markdownCell("## Load datasets"),
			codeCell(datasetLines(p, "TOKEN")),
		)
	}

	probLines, err := problemLines(g, p, opts, "TOKEN", "OVERRIDES")
	if err != nil {
		return "", err
	}
	nb.Cells = append(nb.Cells, markdownCell("## Load the problem"), codeCell(probLines))

	optLines, err := optimizerLines(g, p, opts, "TOKEN", "OVERRIDES")
	if err != nil {
		return "", err
	}
	nb.Cells = append(nb.Cells, markdownCell("## Load the optimizer"), codeCell(optLines))

	nb.Cells = append(nb.Cells, markdownCell("## Run the optimization"), codeCell(executionLines(p)))

	return marshalNotebook(nb)
}

func marshalNotebook(nb notebook) (string, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetIndent("", " ")
	if err := enc.Encode(nb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
