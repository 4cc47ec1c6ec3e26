// Package registry holds the source definitions of a project and computes the
// order in which sources are processed. A source is always processed after
// every source its foreign keys reference.
package registry

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/silverline/internal/dag"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// SourceRegistry holds source definitions as the nodes of their dependency
// graph. Node insertion order is declaration order.
type SourceRegistry struct {
	graph *dag.Graph
}

// New builds a registry from definitions in declaration order.
// Duplicate names and foreign keys into undeclared sources are rejected.
// Cycles are not rejected here; they surface from Order.
func New(defs []*core.SourceDefinition) (*SourceRegistry, error) {
	r := &SourceRegistry{graph: dag.NewGraph()}

	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("source at position %d has no name", i)
		}
		if _, exists := r.graph.GetNode(def.Name); exists {
			return nil, fmt.Errorf("source %q declared more than once", def.Name)
		}
		r.graph.AddNode(def.Name, def)
	}

	for _, def := range defs {
		for _, fk := range def.ForeignKeys {
			if _, ok := r.graph.GetNode(fk.References); !ok {
				return nil, fmt.Errorf("source %q: foreign key %s references undeclared source %q",
					def.Name, fk.Field, fk.References)
			}
			if err := r.graph.AddEdge(fk.References, def.Name); err != nil {
				return nil, err
			}
		}
	}

	return r, nil
}

// Order returns definitions in processing order. Among sources whose
// dependencies are all placed, the earliest declared comes first.
// A cycle (including a self-reference) yields *core.CyclicDependencyError.
func (r *SourceRegistry) Order() ([]*core.SourceDefinition, error) {
	nodes, err := r.graph.TopologicalSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &core.CyclicDependencyError{Cycle: cycleErr.Path}
		}
		return nil, err
	}

	ordered := make([]*core.SourceDefinition, 0, len(nodes))
	for _, node := range nodes {
		ordered = append(ordered, node.Data.(*core.SourceDefinition))
	}
	return ordered, nil
}

// Levels groups source names by dependency depth. Sources at the same level
// do not depend on each other.
func (r *SourceRegistry) Levels() ([][]string, error) {
	levels, err := r.graph.GetExecutionLevels()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &core.CyclicDependencyError{Cycle: cycleErr.Path}
		}
		return nil, err
	}
	return levels, nil
}

// Get returns the definition for a source name.
func (r *SourceRegistry) Get(name string) (*core.SourceDefinition, bool) {
	node, ok := r.graph.GetNode(name)
	if !ok {
		return nil, false
	}
	return node.Data.(*core.SourceDefinition), true
}

// All returns all definitions in declaration order.
func (r *SourceRegistry) All() []*core.SourceDefinition {
	nodes := r.graph.GetAllNodes()
	out := make([]*core.SourceDefinition, len(nodes))
	for i, node := range nodes {
		out[i] = node.Data.(*core.SourceDefinition)
	}
	return out
}

// Count returns the number of registered sources.
func (r *SourceRegistry) Count() int {
	return r.graph.NodeCount()
}

// References returns the sources the named source references directly.
func (r *SourceRegistry) References(name string) []string {
	return append([]string(nil), r.graph.GetParents(name)...)
}

// ReferencedBy returns the sources that reference the named source directly.
func (r *SourceRegistry) ReferencedBy(name string) []string {
	return append([]string(nil), r.graph.GetChildren(name)...)
}

// Roots returns sources that reference no other source, in declaration order.
func (r *SourceRegistry) Roots() []string {
	return r.graph.GetRoots()
}

// Leaves returns sources nothing references, in declaration order.
func (r *SourceRegistry) Leaves() []string {
	return r.graph.GetLeaves()
}

// EdgeCount returns the number of distinct foreign-key dependencies.
func (r *SourceRegistry) EdgeCount() int {
	return r.graph.EdgeCount()
}

// Dependencies returns every source the named source depends on, directly or
// transitively, in declaration order.
func (r *SourceRegistry) Dependencies(name string) []string {
	return r.graph.GetUpstreamNodes(name)
}

// Dependents returns every source that depends on the named source, directly
// or transitively, in declaration order. The source itself is not included.
func (r *SourceRegistry) Dependents(name string) []string {
	affected := r.graph.GetAffectedNodes([]string{name})
	out := make([]string, 0, len(affected))
	for _, id := range affected {
		if id != name {
			out = append(out, id)
		}
	}
	return out
}

// Select returns a registry restricted to the named sources plus everything
// they depend on. Unknown names are an error.
func (r *SourceRegistry) Select(names []string) (*SourceRegistry, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := r.graph.GetNode(name); !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		ids = append(ids, name)
		ids = append(ids, r.Dependencies(name)...)
	}
	return &SourceRegistry{graph: r.graph.Subgraph(ids)}, nil
}
