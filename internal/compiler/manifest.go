package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/flowforge/internal/workflow"
)

// baseDependency is required by every exported pipeline: it provides the
// load_dataset/load_problem/load_optimizer/execute entry points the script
// and notebook import.
const baseDependency = "pipeline-client"

// tagDependencies maps node tags to extra runtime dependencies.
var tagDependencies = map[string]string{
	"scheduling": "ortools",
	"routing":    "networkx",
	"ml":         "scikit-learn",
	"continuous": "numpy",
}

// manifestBackend renders the flat dependency manifest: the fixed base
// dependency plus tag-driven additions, as newline-joined sorted unique
// names. Refuses a non-exportable graph.
type manifestBackend struct{}

func (*manifestBackend) Name() string     { return "manifest" }
func (*manifestBackend) Filename() string { return "requirements.txt" }

func (*manifestBackend) Generate(g *workflow.Graph, opts Options) (string, error) {
	if errs := workflow.ExportErrors(g); len(errs) > 0 {
		return "", fmt.Errorf("%w: %s", ErrNotExportable, strings.Join(errs, "; "))
	}

	seen := map[string]bool{baseDependency: true}
	for _, n := range g.Nodes() {
		for _, tag := range n.Tags {
			if dep, ok := tagDependencies[tag]; ok {
				seen[dep] = true
			}
		}
	}

	deps := make([]string, 0, len(seen))
	for dep := range seen {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return strings.Join(deps, "\n") + "\n", nil
}
