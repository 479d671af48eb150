package compiler

import (
	"fmt"

	"github.com/vk/flowforge/internal/workflow"
)

// The stage emitters below produce the Python statements shared by the script
// and notebook backends. tokenExpr and overridesExpr are the expressions the
// surrounding envelope provides for the access token and runtime overrides.

func datasetLines(p plan, tokenExpr string) []string {
	lines := []string{"datasets = {}"}
	for _, ds := range p.datasets {
		lines = append(lines, fmt.Sprintf(`datasets[%q] = load_dataset(%q, token=%s)`, ds.ID, catalogID(ds), tokenExpr))
	}
	return lines
}

func problemLines(g *workflow.Graph, p plan, opts Options, tokenExpr, overridesExpr string) ([]string, error) {
	lines := []string{"problems = {}"}
	for _, pr := range p.problems {
		dict, err := renderDict(mergedParams(g, pr, opts))
		if err != nil {
			return nil, fmt.Errorf("problem %s: %w", pr.ID, err)
		}
		lines = append(lines,
			"params = "+dict,
			fmt.Sprintf("params.update(%s)", overridesExpr),
			fmt.Sprintf(`problems[%q] = load_problem(%q, params=params, token=%s)`, pr.ID, repoRef(pr), tokenExpr),
		)
	}
	return lines, nil
}

func optimizerLines(g *workflow.Graph, p plan, opts Options, tokenExpr, overridesExpr string) ([]string, error) {
	lines := []string{"optimizers = {}"}
	for _, opt := range p.optimizers {
		dict, err := renderDict(mergedParams(g, opt, opts))
		if err != nil {
			return nil, fmt.Errorf("optimizer %s: %w", opt.ID, err)
		}
		lines = append(lines,
			"params = "+dict,
			fmt.Sprintf("params.update(%s)", overridesExpr),
			fmt.Sprintf(`optimizers[%q] = load_optimizer(%q, params=params, token=%s)`, opt.ID, repoRef(opt), tokenExpr),
		)
	}
	return lines, nil
}

func executionLines(p plan) []string {
	lines := []string{"results = {}"}
	for _, ex := range p.executions {
		lines = append(lines, fmt.Sprintf(`results[%q] = execute(problems[%q], optimizers[%q])`, ex.key, ex.problem.ID, ex.optimizer.ID))
	}
	lines = append(lines,
		"for name, result in results.items():",
		`    print(name, "->", result)`,
	)
	return lines
}
