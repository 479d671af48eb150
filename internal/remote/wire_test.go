package remote

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowforge/internal/coordinator"
	"github.com/vk/flowforge/internal/value"
	"github.com/vk/flowforge/internal/workflow"
)

func TestDecodeLogEvent(t *testing.T) {
	ev := decodeLogEvent(map[string]any{
		"timestamp": "2026-03-01T10:00:00Z",
		"level":     "info",
		"message":   "loading problem",
		"source":    "worker-1",
		"step":      "load-problem",
	})
	assert.Equal(t, "info", ev.Level)
	assert.Equal(t, "loading problem", ev.Message)
	assert.Equal(t, "worker-1", ev.Source)
	assert.Equal(t, "load-problem", ev.Step)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ev.Timestamp)
}

func TestDecodeLogEventMalformed(t *testing.T) {
	cases := []struct {
		name string
		data any
	}{
		{"nil payload", nil},
		{"not a map", "oops"},
		{"wrong types", map[string]any{"level": 3, "message": true, "timestamp": "not-a-time"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := decodeLogEvent(tc.data)
			// Zero values; the coordinator downgrades these to warnings.
			assert.Empty(t, ev.Message)
			assert.Empty(t, ev.Level)
			assert.True(t, ev.Timestamp.IsZero())
		})
	}
}

func TestDecodeProgressEvent(t *testing.T) {
	ev := decodeProgressEvent(map[string]any{"percent": float64(42), "step": "execute"})
	assert.Equal(t, coordinator.ProgressEvent{Percent: 42, Step: "execute"}, ev)

	// A missing or mistyped percent is out of range, not silently zero, so
	// the coordinator records a warning instead of regressing progress.
	ev = decodeProgressEvent(map[string]any{"step": "execute"})
	assert.Equal(t, -1, ev.Percent)

	ev = decodeProgressEvent(nil)
	assert.Equal(t, -1, ev.Percent)
}

func TestDecodeRunIDAndFailure(t *testing.T) {
	assert.Equal(t, "run-77", decodeRunID(map[string]any{"run_id": "run-77"}))
	assert.Empty(t, decodeRunID(nil))

	assert.Equal(t, "boom", decodeFailure(map[string]any{"error": "boom"}))
	assert.Equal(t, "run failed", decodeFailure(map[string]any{}))
}

func TestExecutePayload(t *testing.T) {
	g := workflow.NewGraph()
	params := value.NewParams()
	params.Set("zeta", value.Number(1))
	params.Set("alpha", value.Bool(true))
	p := g.AddNode(workflow.Node{
		ID:          workflow.CatalogNodeID(workflow.KindProblem, workflow.CatalogRef{Owner: "alice", Name: "tsp"}),
		Kind:        workflow.KindProblem,
		DisplayName: "TSP",
		OwnerHandle: "alice",
		Parameters:  params,
		CatalogRef:  &workflow.CatalogRef{Owner: "alice", Name: "tsp"},
	})
	o := g.AddNode(workflow.Node{
		ID:   workflow.CatalogNodeID(workflow.KindOptimizer, workflow.CatalogRef{Owner: "alice", Name: "annealer"}),
		Kind: workflow.KindOptimizer,
	})
	_, err := g.AddEdge(p.ID, o.ID)
	require.NoError(t, err)

	payload := executePayload("secret", g)
	assert.Equal(t, "secret", payload.Token)
	require.Len(t, payload.Nodes, 2)
	require.Len(t, payload.Edges, 1)
	assert.Equal(t, p.ID, payload.Edges[0].Source)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	// Parameter order survives serialization.
	assert.Contains(t, string(raw), `"parameters":{"zeta":1,"alpha":true}`)
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{URL: "wss://example.test/run"})
	assert.Equal(t, 10*time.Second, c.cfg.ConnectTimeout)
	assert.Equal(t, "/", c.cfg.Namespace)
}

func TestStopWithoutConnection(t *testing.T) {
	c := New(Config{URL: "wss://example.test/run"})
	err := c.Stop(context.Background(), coordinator.Handle("run-1"))
	require.ErrorIs(t, err, ErrNotConnected)
}
