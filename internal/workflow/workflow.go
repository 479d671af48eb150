// Package workflow holds the canonical node/edge model for an optimization
// pipeline, plus the topology rules and the two-phase parameter binder that
// gate which edges may be committed.
//
// The model is single-writer: all mutations are synchronous and callers must
// serialize access. Consumers that run concurrently (the execution
// coordinator, the compiler) operate on a Clone().
package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/flowforge/internal/value"
)

// Kind classifies a node in the pipeline graph.
type Kind string

const (
	KindDataset   Kind = "dataset"
	KindProblem   Kind = "problem"
	KindOptimizer Kind = "optimizer"
)

// CatalogRef identifies the catalog record a node was instantiated from.
type CatalogRef struct {
	Owner string
	Name  string
}

func (r CatalogRef) String() string {
	return r.Owner + "/" + r.Name
}

// Node is a typed unit in the workflow graph.
type Node struct {
	ID          string
	Kind        Kind
	DisplayName string
	OwnerHandle string
	Parameters  *value.Params
	CatalogRef  *CatalogRef
	Tags        []string
}

// Edge is a directed connection between two nodes. Edges whose source is a
// dataset node carry the name of the problem parameter that receives the
// dataset's content; such edges are only created through the Binder.
type Edge struct {
	ID               string
	Source           string
	Target           string
	DatasetParameter string
}

var (
	// ErrNodeNotFound is returned when an edge references a missing endpoint.
	ErrNodeNotFound = errors.New("node not found")
	// ErrDatasetEdgeDirect is returned when a dataset-source edge is added
	// directly instead of through the binder's confirm path.
	ErrDatasetEdgeDirect = errors.New("dataset connections must be committed through the parameter binder")
)

// CatalogNodeID derives the stable identity of a catalog-backed node. Adding
// the same catalog item twice must resolve to the same node, so the id is a
// pure function of kind and catalog reference.
func CatalogNodeID(kind Kind, ref CatalogRef) string {
	return fmt.Sprintf("%s-%s-%s", kind, slug(ref.Owner), slug(ref.Name))
}

// DatasetNodeID derives the stable identity of a dataset node from its
// catalog dataset id.
func DatasetNodeID(datasetID string) string {
	return "dataset-" + slug(datasetID)
}

// EdgeID derives the identity of an edge from its endpoints; there is at most
// one edge per ordered node pair.
func EdgeID(source, target string) string {
	return source + "->" + target
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}

// Graph is the canonical store of nodes and committed edges.
type Graph struct {
	nodes map[string]*Node
	edges map[string]*Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

// AddNode upserts a node keyed by its deterministic id and returns the node
// stored in the graph. Re-adding an existing id replaces the mutable fields
// (display name, owner, parameters, catalog ref, tags) in place; it never
// creates a duplicate and never disturbs committed edges.
func (g *Graph) AddNode(n Node) *Node {
	if n.Parameters == nil {
		n.Parameters = value.NewParams()
	}
	existing, ok := g.nodes[n.ID]
	if !ok {
		stored := n
		g.nodes[n.ID] = &stored
		return &stored
	}
	existing.DisplayName = n.DisplayName
	existing.OwnerHandle = n.OwnerHandle
	existing.Parameters = n.Parameters
	existing.CatalogRef = n.CatalogRef
	existing.Tags = n.Tags
	return existing
}

// RemoveNode deletes a node and cascades removal of every incident edge, so
// dangling edges are never observable. Removing a dataset node also clears
// its reserved mapping key from bound problem nodes. Removing an unknown id
// is a no-op.
func (g *Graph) RemoveNode(id string) {
	delete(g.nodes, id)
	mappingKey := DatasetMappingKey(id)
	for eid, e := range g.edges {
		if e.Source != id && e.Target != id {
			continue
		}
		if e.Source == id && e.DatasetParameter != "" {
			if target, ok := g.nodes[e.Target]; ok && target.Parameters != nil {
				target.Parameters.Delete(mappingKey)
			}
		}
		delete(g.edges, eid)
	}
}

// AddEdge commits a directed edge between two existing nodes. Edges sourced
// at a dataset node are rejected here; they must go through Binder.Confirm so
// the dataset-to-parameter binding is recorded atomically with the edge.
func (g *Graph) AddEdge(source, target string) (*Edge, error) {
	src, ok := g.nodes[source]
	if !ok {
		return nil, fmt.Errorf("%w: source %q", ErrNodeNotFound, source)
	}
	if _, ok := g.nodes[target]; !ok {
		return nil, fmt.Errorf("%w: target %q", ErrNodeNotFound, target)
	}
	if src.Kind == KindDataset {
		return nil, ErrDatasetEdgeDirect
	}
	return g.putEdge(Edge{Source: source, Target: target}), nil
}

// putEdge upserts an edge keyed by its endpoint pair.
func (g *Graph) putEdge(e Edge) *Edge {
	e.ID = EdgeID(e.Source, e.Target)
	stored := e
	g.edges[e.ID] = &stored
	return &stored
}

// UpdateNodeParameters shallow-merges patch into the node's parameter map:
// keys present in patch overwrite, all other keys are untouched.
func (g *Graph) UpdateNodeParameters(id string, patch *value.Params) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	if patch == nil {
		return nil
	}
	for p := patch.Oldest(); p != nil; p = p.Next() {
		n.Parameters.Set(p.Key, p.Value)
	}
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by id for deterministic iteration.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodesOfKind returns all nodes of the given kind sorted by id.
func (g *Graph) NodesOfKind(kind Kind) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns all committed edges sorted by id.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EdgesTo returns all edges whose target is the given node, sorted by id.
func (g *Graph) EdgesTo(id string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges() {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFrom returns all edges whose source is the given node, sorted by id.
func (g *Graph) EdgesFrom(id string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges() {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// HasEdge reports whether an edge from source to target is committed.
func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.edges[EdgeID(source, target)]
	return ok
}

// Clone returns a deep copy of the graph for consumers that read outside the
// single-writer discipline.
func (g *Graph) Clone() *Graph {
	out := NewGraph()
	for _, n := range g.nodes {
		cn := *n
		params := value.NewParams()
		for p := n.Parameters.Oldest(); p != nil; p = p.Next() {
			params.Set(p.Key, p.Value)
		}
		cn.Parameters = params
		if n.CatalogRef != nil {
			ref := *n.CatalogRef
			cn.CatalogRef = &ref
		}
		cn.Tags = append([]string(nil), n.Tags...)
		out.nodes[cn.ID] = &cn
	}
	for _, e := range g.edges {
		ce := *e
		out.edges[ce.ID] = &ce
	}
	return out
}
