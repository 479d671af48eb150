package compiler

import (
	"strings"

	"github.com/vk/flowforge/internal/value"
	"github.com/vk/flowforge/internal/workflow"
)

// plan is the structured intermediate representation all backends emit from:
// the four stages in order, with node lists and execution pairs already
// sorted for deterministic output.
type plan struct {
	datasets   []*workflow.Node
	problems   []*workflow.Node
	optimizers []*workflow.Node
	executions []execution
}

// execution is one problem->optimizer run, keyed "<problemID>_<optimizerID>".
type execution struct {
	key       string
	problem   *workflow.Node
	optimizer *workflow.Node
}

func buildPlan(g *workflow.Graph) plan {
	p := plan{
		datasets:   g.NodesOfKind(workflow.KindDataset),
		problems:   g.NodesOfKind(workflow.KindProblem),
		optimizers: g.NodesOfKind(workflow.KindOptimizer),
	}
	// Edges() is sorted by id, so execution order is stable across runs.
	for _, e := range g.Edges() {
		src, ok := g.Node(e.Source)
		if !ok || src.Kind != workflow.KindProblem {
			continue
		}
		dst, ok := g.Node(e.Target)
		if !ok || dst.Kind != workflow.KindOptimizer {
			continue
		}
		p.executions = append(p.executions, execution{
			key:       e.Source + "_" + e.Target,
			problem:   src,
			optimizer: dst,
		})
	}
	return p
}

// paramEntry is one entry of a merged parameter dictionary: either a literal
// Value or a raw code reference to a loaded dataset object.
type paramEntry struct {
	key string
	lit value.Value
	ref string
}

// entrySet builds a merged dictionary with dict-like overwrite semantics:
// re-setting a key replaces its value but keeps its original position.
type entrySet struct {
	order   []string
	entries map[string]paramEntry
}

func newEntrySet() *entrySet {
	return &entrySet{entries: make(map[string]paramEntry)}
}

func (s *entrySet) set(e paramEntry) {
	if _, ok := s.entries[e.key]; !ok {
		s.order = append(s.order, e.key)
	}
	s.entries[e.key] = e
}

func (s *entrySet) list() []paramEntry {
	out := make([]paramEntry, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.entries[k])
	}
	return out
}

// mergedParams assembles a node's final parameter dictionary in increasing
// precedence: the node's own parameters (reserved mapping keys excluded),
// then one reference entry per incoming dataset edge (problems only), then
// caller overrides.
func mergedParams(g *workflow.Graph, n *workflow.Node, opts Options) []paramEntry {
	set := newEntrySet()

	for p := n.Parameters.Oldest(); p != nil; p = p.Next() {
		if workflow.IsDatasetMappingKey(p.Key) {
			continue
		}
		set.set(paramEntry{key: p.Key, lit: p.Value})
	}

	if n.Kind == workflow.KindProblem {
		for _, e := range g.EdgesTo(n.ID) {
			src, ok := g.Node(e.Source)
			if !ok || src.Kind != workflow.KindDataset || e.DatasetParameter == "" {
				continue
			}
			set.set(paramEntry{key: e.DatasetParameter, ref: datasetRef(e.Source)})
		}
	}

	if opts.Overrides != nil {
		for p := opts.Overrides.Oldest(); p != nil; p = p.Next() {
			set.set(paramEntry{key: p.Key, lit: p.Value})
		}
	}

	return set.list()
}

// datasetRef is the code expression referencing a loaded dataset object.
func datasetRef(nodeID string) string {
	return `datasets["` + nodeID + `"]`
}

// renderDict renders merged entries as a Python dict literal, preserving
// entry order.
func renderDict(entries []paramEntry) (string, error) {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		var rendered string
		if e.ref != "" {
			rendered = e.ref
		} else {
			lit, err := value.ToSourceLiteral(e.lit, value.TargetPython)
			if err != nil {
				return "", err
			}
			rendered = lit
		}
		keyLit, err := value.ToSourceLiteral(value.String(e.key), value.TargetPython)
		if err != nil {
			return "", err
		}
		parts = append(parts, keyLit+": "+rendered)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// catalogID returns the catalog identifier a dataset node loads by. Dataset
// nodes store their catalog id in CatalogRef.Name.
func catalogID(n *workflow.Node) string {
	if n.CatalogRef != nil {
		return n.CatalogRef.Name
	}
	return strings.TrimPrefix(n.ID, "dataset-")
}

// repoRef returns the "owner/name" reference for a catalog-backed node.
func repoRef(n *workflow.Node) string {
	if n.CatalogRef != nil {
		return n.CatalogRef.String()
	}
	return n.OwnerHandle + "/" + n.DisplayName
}
