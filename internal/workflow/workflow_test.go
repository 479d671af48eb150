package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowforge/internal/value"
)

func problemNode() Node {
	return Node{
		ID:          CatalogNodeID(KindProblem, CatalogRef{Owner: "alice", Name: "tsp"}),
		Kind:        KindProblem,
		DisplayName: "TSP",
		OwnerHandle: "alice",
		CatalogRef:  &CatalogRef{Owner: "alice", Name: "tsp"},
	}
}

func optimizerNode() Node {
	return Node{
		ID:          CatalogNodeID(KindOptimizer, CatalogRef{Owner: "alice", Name: "annealer"}),
		Kind:        KindOptimizer,
		DisplayName: "Annealer",
		OwnerHandle: "alice",
		CatalogRef:  &CatalogRef{Owner: "alice", Name: "annealer"},
	}
}

func datasetNode() Node {
	return Node{
		ID:          DatasetNodeID("42"),
		Kind:        KindDataset,
		DisplayName: "cities",
		OwnerHandle: "bob",
	}
}

func TestAddNodeUpsertIsIdempotent(t *testing.T) {
	g := NewGraph()

	first := g.AddNode(problemNode())

	again := problemNode()
	again.DisplayName = "TSP (updated)"
	second := g.AddNode(again)

	assert.Same(t, first, second, "re-adding the same catalog item must update, not duplicate")
	assert.Len(t, g.Nodes(), 1)
	assert.Equal(t, "TSP (updated)", first.DisplayName)
}

func TestCatalogNodeIDIsDeterministic(t *testing.T) {
	ref := CatalogRef{Owner: "Alice", Name: "My Problem"}
	assert.Equal(t, CatalogNodeID(KindProblem, ref), CatalogNodeID(KindProblem, ref))
	assert.NotEqual(t,
		CatalogNodeID(KindProblem, ref),
		CatalogNodeID(KindOptimizer, ref),
		"kind participates in identity")
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	g := NewGraph()
	p := g.AddNode(problemNode())
	o := g.AddNode(optimizerNode())
	_, err := g.AddEdge(p.ID, o.ID)
	require.NoError(t, err)

	g.RemoveNode(o.ID)

	for _, e := range g.Edges() {
		assert.NotEqual(t, o.ID, e.Source)
		assert.NotEqual(t, o.ID, e.Target)
	}
	assert.Empty(t, g.Edges())
}

func TestRemoveDatasetNodeClearsMappingKey(t *testing.T) {
	g := NewGraph()
	d := g.AddNode(datasetNode())
	p := g.AddNode(problemNode())

	b := NewBinder(g)
	require.NoError(t, b.Propose(PendingConnection{Source: d.ID, Target: p.ID}))
	_, err := b.Confirm("data")
	require.NoError(t, err)
	_, ok := p.Parameters.Get(DatasetMappingKey(d.ID))
	require.True(t, ok)

	g.RemoveNode(d.ID)

	assert.Empty(t, g.Edges())
	_, ok = p.Parameters.Get(DatasetMappingKey(d.ID))
	assert.False(t, ok, "removing the dataset clears its mapping bookkeeping")
}

func TestAddEdgeRejectsMissingEndpoints(t *testing.T) {
	g := NewGraph()
	p := g.AddNode(problemNode())

	_, err := g.AddEdge(p.ID, "nope")
	require.ErrorIs(t, err, ErrNodeNotFound)

	_, err = g.AddEdge("nope", p.ID)
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestAddEdgeRejectsDirectDatasetEdges(t *testing.T) {
	g := NewGraph()
	d := g.AddNode(datasetNode())
	p := g.AddNode(problemNode())

	_, err := g.AddEdge(d.ID, p.ID)
	require.ErrorIs(t, err, ErrDatasetEdgeDirect)
	assert.Empty(t, g.Edges())
}

func TestUpdateNodeParametersShallowMerge(t *testing.T) {
	g := NewGraph()
	n := problemNode()
	n.Parameters = value.NewParams()
	n.Parameters.Set("population", value.Number(100))
	n.Parameters.Set("seed", value.Number(7))
	p := g.AddNode(n)

	patch := value.NewParams()
	patch.Set("seed", value.Number(99))
	patch.Set("mutation_rate", value.Number(0.05))
	require.NoError(t, g.UpdateNodeParameters(p.ID, patch))

	pop, _ := p.Parameters.Get("population")
	assert.Equal(t, float64(100), pop.AsNumber(), "untouched keys survive")
	seed, _ := p.Parameters.Get("seed")
	assert.Equal(t, float64(99), seed.AsNumber(), "patched keys overwrite")
	_, ok := p.Parameters.Get("mutation_rate")
	assert.True(t, ok, "new keys are added")
}

func TestCloneIsDeep(t *testing.T) {
	g := NewGraph()
	n := problemNode()
	n.Parameters = value.NewParams()
	n.Parameters.Set("seed", value.Number(1))
	g.AddNode(n)
	g.AddNode(optimizerNode())
	_, err := g.AddEdge(n.ID, optimizerNode().ID)
	require.NoError(t, err)

	clone := g.Clone()
	patch := value.NewParams()
	patch.Set("seed", value.Number(2))
	require.NoError(t, g.UpdateNodeParameters(n.ID, patch))
	g.RemoveNode(optimizerNode().ID)

	cn, ok := clone.Node(n.ID)
	require.True(t, ok)
	seed, _ := cn.Parameters.Get("seed")
	assert.Equal(t, float64(1), seed.AsNumber())
	assert.Len(t, clone.Edges(), 1)
}

func TestIsExportable(t *testing.T) {
	t.Run("missing problem or optimizer", func(t *testing.T) {
		g := NewGraph()
		assert.False(t, IsExportable(g))

		g.AddNode(problemNode())
		assert.False(t, IsExportable(g))
	})

	t.Run("disconnected pair", func(t *testing.T) {
		g := NewGraph()
		g.AddNode(problemNode())
		g.AddNode(optimizerNode())
		assert.False(t, IsExportable(g))
	})

	t.Run("connected pair", func(t *testing.T) {
		g := NewGraph()
		p := g.AddNode(problemNode())
		o := g.AddNode(optimizerNode())
		_, err := g.AddEdge(p.ID, o.ID)
		require.NoError(t, err)
		assert.True(t, IsExportable(g))
	})

	t.Run("two problems", func(t *testing.T) {
		g := NewGraph()
		p := g.AddNode(problemNode())
		other := problemNode()
		other.ID = CatalogNodeID(KindProblem, CatalogRef{Owner: "bob", Name: "knapsack"})
		g.AddNode(other)
		o := g.AddNode(optimizerNode())
		_, err := g.AddEdge(p.ID, o.ID)
		require.NoError(t, err)
		assert.False(t, IsExportable(g))
	})

	t.Run("unbound dataset blocks export", func(t *testing.T) {
		g := NewGraph()
		p := g.AddNode(problemNode())
		o := g.AddNode(optimizerNode())
		d := g.AddNode(datasetNode())
		_, err := g.AddEdge(p.ID, o.ID)
		require.NoError(t, err)
		assert.False(t, IsExportable(g))

		b := NewBinder(g)
		require.NoError(t, b.Propose(PendingConnection{Source: d.ID, Target: p.ID}))
		_, err = b.Confirm("data")
		require.NoError(t, err)
		assert.True(t, IsExportable(g))
	})
}

func TestExportErrorsAreDescriptive(t *testing.T) {
	g := NewGraph()
	g.AddNode(problemNode())
	errs := ExportErrors(g)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "optimizer")
}
