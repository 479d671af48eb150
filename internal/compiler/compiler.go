// Package compiler turns a committed workflow graph into runnable artifacts.
//
// Every backend consumes the same staged plan derived from graph topology
// (datasets, then problems, then optimizers, then one execution per
// problem->optimizer edge) and differs only in its textual envelope. Backends
// are pure: same graph and options in, same bytes out.
package compiler

import (
	"errors"
	"fmt"

	"github.com/vk/flowforge/internal/value"
	"github.com/vk/flowforge/internal/workflow"
)

// ErrNotExportable is returned by machine-consumed backends (container, CI,
// manifest) when the graph fails the exportability rules. Human-readable
// backends degrade to a placeholder comment instead.
var ErrNotExportable = errors.New("workflow graph is not exportable")

// Options carries caller-supplied inputs that shape generation.
type Options struct {
	// Overrides take precedence over node parameters and dataset bindings in
	// every instantiation call. Nil means no overrides.
	Overrides *value.Params
}

// Backend renders one artifact format.
type Backend interface {
	// Name is the identifier used to select the backend (e.g. "script").
	Name() string
	// Filename is the conventional output file name for the artifact.
	Filename() string
	// Generate renders the artifact text for the given graph.
	Generate(g *workflow.Graph, opts Options) (string, error)
}

// Backends returns all registered backends in stable order.
func Backends() []Backend {
	return []Backend{
		&scriptBackend{},
		&notebookBackend{},
		&containerBackend{},
		&ciBackend{},
		&manifestBackend{},
	}
}

// ByName resolves a backend by its identifier.
func ByName(name string) (Backend, error) {
	for _, b := range Backends() {
		if b.Name() == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}
