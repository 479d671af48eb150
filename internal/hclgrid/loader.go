// Package hclgrid loads workflow definitions from .hcl files into a graph.
//
// A workflow file declares dataset/problem/optimizer blocks plus run and
// bind blocks for the edges:
//
//	dataset "42" {
//	  display_name = "TSP cities"
//	  owner        = "bob"
//	}
//
//	problem "alice" "tsp" {
//	  tags = ["scheduling"]
//	  params {
//	    population = 100
//	    seed       = 7
//	  }
//	}
//
//	optimizer "alice" "annealer" {}
//
//	run {
//	  problem   = "alice/tsp"
//	  optimizer = "alice/annealer"
//	}
//
//	bind {
//	  dataset = "42"
//	  problem = "alice/tsp"
//	  param   = "data"
//	}
//
// Bind blocks go through the parameter binder's propose/confirm path, so a
// loaded graph satisfies the same invariants as one assembled interactively.
package hclgrid

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowforge/internal/workflow"
)

// LoadPath loads a single .hcl file or every .hcl file under a directory
// (sorted by path, so multi-file workflows load deterministically).
func LoadPath(path string) (*workflow.Graph, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat workflow path: %w", err)
	}
	if !info.IsDir() {
		return Load(path)
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan workflow directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl workflow files found under %s", path)
	}
	sort.Strings(files)
	return Load(files...)
}

// Load parses the given files and assembles the workflow graph.
func Load(files ...string) (*workflow.Graph, error) {
	parser := hclparse.NewParser()

	var spec fileSpec
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", file, diags)
		}
		body, ok := hclFile.Body.(*hclsyntax.Body)
		if !ok {
			return nil, fmt.Errorf("unexpected body type in %s", file)
		}
		if err := collectBlocks(body, &spec); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	return buildGraph(&spec)
}

type datasetSpec struct {
	id          string
	displayName string
	owner       string
}

type catalogSpec struct {
	kind        workflow.Kind
	owner       string
	name        string
	displayName string
	tags        []string
	params      blockParams
}

type runSpec struct {
	problem   string
	optimizer string
}

type bindSpec struct {
	dataset string
	problem string
	param   string
}

type fileSpec struct {
	datasets []datasetSpec
	catalog  []catalogSpec
	runs     []runSpec
	binds    []bindSpec
}

func collectBlocks(body *hclsyntax.Body, spec *fileSpec) error {
	for _, block := range body.Blocks {
		switch block.Type {
		case "dataset":
			if len(block.Labels) != 1 {
				return fmt.Errorf("dataset block requires exactly one label (the catalog id)")
			}
			ds := datasetSpec{id: block.Labels[0]}
			var err error
			if ds.displayName, err = stringAttr(block.Body, "display_name"); err != nil {
				return err
			}
			if ds.owner, err = stringAttr(block.Body, "owner"); err != nil {
				return err
			}
			spec.datasets = append(spec.datasets, ds)

		case "problem", "optimizer":
			if len(block.Labels) != 2 {
				return fmt.Errorf("%s block requires two labels (owner and name)", block.Type)
			}
			cs := catalogSpec{
				kind:  workflow.Kind(block.Type),
				owner: block.Labels[0],
				name:  block.Labels[1],
			}
			var err error
			if cs.displayName, err = stringAttr(block.Body, "display_name"); err != nil {
				return err
			}
			if cs.tags, err = stringListAttr(block.Body, "tags"); err != nil {
				return err
			}
			if cs.params, err = paramsBlock(block.Body); err != nil {
				return fmt.Errorf("%s %s/%s: %w", block.Type, cs.owner, cs.name, err)
			}
			spec.catalog = append(spec.catalog, cs)

		case "run":
			rs := runSpec{}
			var err error
			if rs.problem, err = stringAttr(block.Body, "problem"); err != nil {
				return err
			}
			if rs.optimizer, err = stringAttr(block.Body, "optimizer"); err != nil {
				return err
			}
			if rs.problem == "" || rs.optimizer == "" {
				return fmt.Errorf("run block requires problem and optimizer attributes")
			}
			spec.runs = append(spec.runs, rs)

		case "bind":
			bs := bindSpec{}
			var err error
			if bs.dataset, err = stringAttr(block.Body, "dataset"); err != nil {
				return err
			}
			if bs.problem, err = stringAttr(block.Body, "problem"); err != nil {
				return err
			}
			if bs.param, err = stringAttr(block.Body, "param"); err != nil {
				return err
			}
			if bs.dataset == "" || bs.problem == "" {
				return fmt.Errorf("bind block requires dataset and problem attributes")
			}
			spec.binds = append(spec.binds, bs)

		default:
			return fmt.Errorf("unknown block type %q", block.Type)
		}
	}
	return nil
}

func buildGraph(spec *fileSpec) (*workflow.Graph, error) {
	g := workflow.NewGraph()

	for _, ds := range spec.datasets {
		name := ds.displayName
		if name == "" {
			name = "dataset " + ds.id
		}
		g.AddNode(workflow.Node{
			ID:          workflow.DatasetNodeID(ds.id),
			Kind:        workflow.KindDataset,
			DisplayName: name,
			OwnerHandle: ds.owner,
			CatalogRef:  &workflow.CatalogRef{Owner: ds.owner, Name: ds.id},
		})
	}

	for _, cs := range spec.catalog {
		ref := workflow.CatalogRef{Owner: cs.owner, Name: cs.name}
		name := cs.displayName
		if name == "" {
			name = cs.name
		}
		g.AddNode(workflow.Node{
			ID:          workflow.CatalogNodeID(cs.kind, ref),
			Kind:        cs.kind,
			DisplayName: name,
			OwnerHandle: cs.owner,
			Parameters:  cs.params.toParams(),
			CatalogRef:  &ref,
			Tags:        cs.tags,
		})
	}

	for _, rs := range spec.runs {
		problemID, err := catalogRefID(workflow.KindProblem, rs.problem)
		if err != nil {
			return nil, fmt.Errorf("run block: %w", err)
		}
		optimizerID, err := catalogRefID(workflow.KindOptimizer, rs.optimizer)
		if err != nil {
			return nil, fmt.Errorf("run block: %w", err)
		}
		if _, err := g.AddEdge(problemID, optimizerID); err != nil {
			return nil, fmt.Errorf("run block %s -> %s: %w", rs.problem, rs.optimizer, err)
		}
	}

	binder := workflow.NewBinder(g)
	for _, bs := range spec.binds {
		problemID, err := catalogRefID(workflow.KindProblem, bs.problem)
		if err != nil {
			return nil, fmt.Errorf("bind block: %w", err)
		}
		pc := workflow.PendingConnection{
			Source: workflow.DatasetNodeID(bs.dataset),
			Target: problemID,
		}
		if err := binder.Propose(pc); err != nil {
			return nil, fmt.Errorf("bind block dataset %s: %w", bs.dataset, err)
		}
		if _, err := binder.Confirm(bs.param); err != nil {
			return nil, fmt.Errorf("bind block dataset %s: %w", bs.dataset, err)
		}
	}

	return g, nil
}

// catalogRefID resolves an "owner/name" reference to a node id.
func catalogRefID(kind workflow.Kind, ref string) (string, error) {
	owner, name, ok := strings.Cut(ref, "/")
	if !ok || owner == "" || name == "" {
		return "", fmt.Errorf("reference %q must have the form owner/name", ref)
	}
	return workflow.CatalogNodeID(kind, workflow.CatalogRef{Owner: owner, Name: name}), nil
}

// stringAttr evaluates an optional string attribute.
func stringAttr(body *hclsyntax.Body, name string) (string, error) {
	attr, ok := body.Attributes[name]
	if !ok {
		return "", nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("attribute %q: %w", name, diags)
	}
	if val.Type() != cty.String {
		return "", fmt.Errorf("attribute %q must be a string", name)
	}
	return val.AsString(), nil
}

// stringListAttr evaluates an optional list-of-strings attribute.
func stringListAttr(body *hclsyntax.Body, name string) ([]string, error) {
	attr, ok := body.Attributes[name]
	if !ok {
		return nil, nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("attribute %q: %w", name, diags)
	}
	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if ev.Type() != cty.String {
			return nil, fmt.Errorf("attribute %q must contain only strings", name)
		}
		out = append(out, ev.AsString())
	}
	return out, nil
}
