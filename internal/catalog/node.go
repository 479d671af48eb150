package catalog

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/vk/flowforge/internal/value"
	"github.com/vk/flowforge/internal/workflow"
)

// DatasetNode converts a dataset record into a workflow node. The catalog id
// is kept in CatalogRef.Name so the compiler can emit the load-by-id call.
func DatasetNode(d *Dataset) workflow.Node {
	id := strconv.FormatInt(d.ID, 10)
	return workflow.Node{
		ID:          workflow.DatasetNodeID(id),
		Kind:        workflow.KindDataset,
		DisplayName: d.Name,
		OwnerHandle: d.Username,
		Parameters:  value.NewParams(),
		CatalogRef:  &workflow.CatalogRef{Owner: d.Username, Name: id},
	}
}

// ProblemNode converts a problem record into a workflow node with parameters
// seeded from the schema defaults.
func ProblemNode(p *Problem) (workflow.Node, error) {
	params, err := defaultParams(p.Parameters)
	if err != nil {
		return workflow.Node{}, fmt.Errorf("problem %s/%s: %w", p.Username, p.Name, err)
	}
	ref := workflow.CatalogRef{Owner: p.Username, Name: p.Name}
	return workflow.Node{
		ID:          workflow.CatalogNodeID(workflow.KindProblem, ref),
		Kind:        workflow.KindProblem,
		DisplayName: p.Name,
		OwnerHandle: p.Username,
		Parameters:  params,
		CatalogRef:  &ref,
		Tags:        append([]string(nil), p.Tags...),
	}, nil
}

// OptimizerNode converts an optimizer record into a workflow node.
func OptimizerNode(o *Optimizer) (workflow.Node, error) {
	params, err := defaultParams(o.Parameters)
	if err != nil {
		return workflow.Node{}, fmt.Errorf("optimizer %s/%s: %w", o.Username, o.Name, err)
	}
	ref := workflow.CatalogRef{Owner: o.Username, Name: o.Name}
	return workflow.Node{
		ID:          workflow.CatalogNodeID(workflow.KindOptimizer, ref),
		Kind:        workflow.KindOptimizer,
		DisplayName: o.Name,
		OwnerHandle: o.Username,
		Parameters:  params,
		CatalogRef:  &ref,
		Tags:        append([]string(nil), o.Tags...),
	}, nil
}

// defaultParams seeds a parameter map from schema defaults. Schema maps carry
// no ordering, so keys are seeded alphabetically; entries without a default
// are omitted rather than seeded as null.
func defaultParams(schema map[string]ParameterSpec) (*value.Params, error) {
	params := value.NewParams()
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		spec := schema[k]
		if spec.Default == nil {
			continue
		}
		v, err := value.FromGo(spec.Default)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		params.Set(k, v)
	}
	return params, nil
}
