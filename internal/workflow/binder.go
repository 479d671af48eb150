package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/flowforge/internal/value"
)

// datasetMappingPrefix marks the reserved parameter keys the binder records
// on a problem node so the compiler can tell bound parameters apart from
// user-entered literals.
const datasetMappingPrefix = "__dataset_mapping_"

// DatasetMappingKey returns the reserved parameter key recording which
// problem parameter the given dataset node is bound to.
func DatasetMappingKey(datasetNodeID string) string {
	return datasetMappingPrefix + datasetNodeID
}

// IsDatasetMappingKey reports whether a parameter key is binder bookkeeping
// rather than a user-facing parameter.
func IsDatasetMappingKey(key string) bool {
	return strings.HasPrefix(key, datasetMappingPrefix)
}

var (
	// ErrNoPendingConnection is returned by Confirm when nothing was proposed.
	ErrNoPendingConnection = errors.New("no pending connection to confirm")
	// ErrEmptyParameterName is returned by Confirm for an empty binding name.
	ErrEmptyParameterName = errors.New("dataset binding requires a non-empty parameter name")
	// ErrReservedParameterName is returned by Confirm when the binding name
	// collides with the binder's reserved key prefix.
	ErrReservedParameterName = errors.New("parameter name uses a reserved prefix")
	// ErrInvalidConnection is returned by Propose for endpoints that are not
	// a dataset feeding a problem.
	ErrInvalidConnection = errors.New("connection must go from a dataset node to a problem node")
)

// PendingConnection is a candidate dataset-to-problem connection held outside
// the graph until the user names the receiving parameter.
type PendingConnection struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// Binder implements the two-phase commit protocol for dataset-to-problem
// edges: Propose holds a candidate connection, Confirm commits the edge and
// records the parameter mapping atomically from the model's perspective, and
// Cancel discards the candidate. At most one connection is pending at a time.
type Binder struct {
	graph   *Graph
	pending *PendingConnection
}

// NewBinder creates a binder over the given graph.
func NewBinder(g *Graph) *Binder {
	return &Binder{graph: g}
}

// Propose records a candidate connection. A previously pending connection is
// implicitly cancelled. The endpoints must exist and must be a dataset node
// and a problem node respectively; the edge is not committed yet.
func (b *Binder) Propose(pc PendingConnection) error {
	b.pending = nil

	src, ok := b.graph.Node(pc.Source)
	if !ok {
		return fmt.Errorf("%w: source %q", ErrNodeNotFound, pc.Source)
	}
	dst, ok := b.graph.Node(pc.Target)
	if !ok {
		return fmt.Errorf("%w: target %q", ErrNodeNotFound, pc.Target)
	}
	if src.Kind != KindDataset || dst.Kind != KindProblem {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidConnection, src.Kind, dst.Kind)
	}

	b.pending = &pc
	return nil
}

// Pending returns the currently proposed connection, if any.
func (b *Binder) Pending() (PendingConnection, bool) {
	if b.pending == nil {
		return PendingConnection{}, false
	}
	return *b.pending, true
}

// Cancel discards the pending connection without mutating the graph.
func (b *Binder) Cancel() {
	b.pending = nil
}

// Confirm commits the pending connection: the edge is created carrying the
// parameter name, and the problem node's parameters record the reserved
// mapping key. Both writes happen before control returns, so observers of the
// model never see one without the other. The parameter name is not checked
// against the problem's schema (the catalog owns that), only for emptiness
// and the reserved prefix.
func (b *Binder) Confirm(parameterName string) (*Edge, error) {
	if b.pending == nil {
		return nil, ErrNoPendingConnection
	}
	if parameterName == "" {
		return nil, ErrEmptyParameterName
	}
	if IsDatasetMappingKey(parameterName) {
		return nil, fmt.Errorf("%w: %q", ErrReservedParameterName, parameterName)
	}

	pc := *b.pending
	target, ok := b.graph.Node(pc.Target)
	if !ok {
		// The problem node was removed while the connection was pending.
		b.pending = nil
		return nil, fmt.Errorf("%w: target %q", ErrNodeNotFound, pc.Target)
	}
	if _, ok := b.graph.Node(pc.Source); !ok {
		b.pending = nil
		return nil, fmt.Errorf("%w: source %q", ErrNodeNotFound, pc.Source)
	}

	edge := b.graph.putEdge(Edge{
		Source:           pc.Source,
		Target:           pc.Target,
		DatasetParameter: parameterName,
	})
	target.Parameters.Set(DatasetMappingKey(pc.Source), value.String(parameterName))

	b.pending = nil
	return edge, nil
}
