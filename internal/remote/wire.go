package remote

import (
	"time"

	"github.com/vk/flowforge/internal/coordinator"
	"github.com/vk/flowforge/internal/value"
	"github.com/vk/flowforge/internal/workflow"
)

// Wire shapes for the "execute" emit. Parameters serialize through the
// ordered Value map, so the service sees them in canvas order.

type wireRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

type wireNode struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	DisplayName string        `json:"display_name"`
	Owner       string        `json:"owner"`
	Parameters  *value.Params `json:"parameters"`
	CatalogRef  *wireRef      `json:"catalog_ref,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

type wireEdge struct {
	ID               string `json:"id"`
	Source           string `json:"source"`
	Target           string `json:"target"`
	DatasetParameter string `json:"dataset_parameter,omitempty"`
}

type wirePayload struct {
	Token string     `json:"token"`
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

func executePayload(token string, g *workflow.Graph) wirePayload {
	payload := wirePayload{Token: token, Nodes: []wireNode{}, Edges: []wireEdge{}}
	for _, n := range g.Nodes() {
		wn := wireNode{
			ID:          n.ID,
			Kind:        string(n.Kind),
			DisplayName: n.DisplayName,
			Owner:       n.OwnerHandle,
			Parameters:  n.Parameters,
			Tags:        n.Tags,
		}
		if n.CatalogRef != nil {
			wn.CatalogRef = &wireRef{Owner: n.CatalogRef.Owner, Name: n.CatalogRef.Name}
		}
		payload.Nodes = append(payload.Nodes, wn)
	}
	for _, e := range g.Edges() {
		payload.Edges = append(payload.Edges, wireEdge{
			ID:               e.ID,
			Source:           e.Source,
			Target:           e.Target,
			DatasetParameter: e.DatasetParameter,
		})
	}
	return payload
}

// The decoders below are intentionally forgiving: a field of the wrong type
// decodes to its zero value and the coordinator downgrades the event to a
// warning entry, so a misbehaving service cannot crash a run.

func asMap(data any) map[string]any {
	m, _ := data.(map[string]any)
	return m
}

func asString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func asInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return -1
	}
}

func decodeLogEvent(data any) coordinator.LogEvent {
	m := asMap(data)
	ev := coordinator.LogEvent{
		Level:   asString(m, "level"),
		Message: asString(m, "message"),
		Source:  asString(m, "source"),
		Step:    asString(m, "step"),
	}
	if raw := asString(m, "timestamp"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			ev.Timestamp = ts
		}
	}
	return ev
}

func decodeProgressEvent(data any) coordinator.ProgressEvent {
	m := asMap(data)
	return coordinator.ProgressEvent{
		Percent: asInt(m, "percent"),
		Step:    asString(m, "step"),
	}
}

func decodeRunID(data any) string {
	return asString(asMap(data), "run_id")
}

func decodeFailure(data any) string {
	if msg := asString(asMap(data), "error"); msg != "" {
		return msg
	}
	return "run failed"
}
