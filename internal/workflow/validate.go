package workflow

import "fmt"

// ExportErrors returns the list of topology violations that prevent the graph
// from being exported. The canvas may hold drafts with any node counts; these
// rules only gate export and execution, never node or edge creation.
func ExportErrors(g *Graph) []string {
	var errs []string

	problems := g.NodesOfKind(KindProblem)
	optimizers := g.NodesOfKind(KindOptimizer)

	if len(problems) != 1 {
		errs = append(errs, fmt.Sprintf("expected exactly one problem node, found %d", len(problems)))
	}
	if len(optimizers) != 1 {
		errs = append(errs, fmt.Sprintf("expected exactly one optimizer node, found %d", len(optimizers)))
	}
	if len(problems) == 1 && len(optimizers) == 1 {
		if !g.HasEdge(problems[0].ID, optimizers[0].ID) {
			errs = append(errs, fmt.Sprintf("problem %q is not connected to optimizer %q", problems[0].ID, optimizers[0].ID))
		}
	}

	// Every dataset on the canvas must feed the problem; a canvas without
	// datasets trivially satisfies this.
	if len(problems) == 1 {
		for _, ds := range g.NodesOfKind(KindDataset) {
			if !g.HasEdge(ds.ID, problems[0].ID) {
				errs = append(errs, fmt.Sprintf("dataset %q is not connected to the problem node", ds.ID))
			}
		}
	}

	return errs
}

// IsExportable reports whether the graph forms a complete pipeline: exactly
// one problem and one optimizer connected by an edge, with every dataset node
// (if any) connected to the problem.
func IsExportable(g *Graph) bool {
	return len(ExportErrors(g)) == 0
}
