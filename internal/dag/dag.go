// Package dag provides directed acyclic graph operations for source dependencies.
// It supports cycle detection and deterministic topological ordering where ties
// are broken by the order in which nodes were added.
package dag

import (
	"fmt"
	"sort"
)

// Node represents a node in the DAG.
type Node struct {
	// ID is the unique identifier (source name)
	ID string
	// Data holds arbitrary node data
	Data interface{}
}

// Graph represents a directed acyclic graph.
type Graph struct {
	nodes   map[string]*Node
	order   []string            // node IDs in insertion order
	index   map[string]int      // node ID -> insertion position
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// CycleError is returned by ordering operations on a cyclic graph.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		index:   make(map[string]int),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Re-adding an existing ID updates its data
// but keeps its original position.
func (g *Graph) AddNode(id string, data interface{}) {
	if node, exists := g.nodes[id]; exists {
		node.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
// Self-loops are accepted and reported by HasCycle.
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}

	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}

	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the parents (dependencies) of a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the children (dependents) of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// GetAllNodes returns all nodes in insertion order.
func (g *Graph) GetAllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
// The path starts and ends with the same node.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string) // Track the path for error reporting

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				// Found cycle, walk back from id to childID
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// TopologicalSort returns nodes in topological order (dependencies before dependents).
// Among nodes whose dependencies are all placed, the earliest added goes first.
// Returns a *CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, &CycleError{Path: cyclePath}
	}

	remaining := make(map[string]int, len(g.nodes))
	for id, parents := range g.parents {
		remaining[id] = len(parents)
	}

	placed := make(map[string]bool, len(g.nodes))
	result := make([]*Node, 0, len(g.nodes))

	for len(result) < len(g.order) {
		next := ""
		for _, id := range g.order {
			if !placed[id] && remaining[id] == 0 {
				next = id
				break
			}
		}
		if next == "" {
			// Unreachable after HasCycle, kept as a guard.
			return nil, &CycleError{}
		}

		placed[next] = true
		result = append(result, g.nodes[next])
		for _, childID := range g.edges[next] {
			remaining[childID]--
		}
	}

	return result, nil
}

// GetExecutionLevels returns nodes grouped by execution level.
// Nodes at level N depend only on nodes at levels below N.
// Level 0 contains nodes with no dependencies.
func (g *Graph) GetExecutionLevels() ([][]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	assigned := make(map[string]int, len(sorted))
	maxLevel := -1
	for _, node := range sorted {
		level := 0
		for _, parentID := range g.parents[node.ID] {
			if assigned[parentID]+1 > level {
				level = assigned[parentID] + 1
			}
		}
		assigned[node.ID] = level
		if level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, node := range sorted {
		level := assigned[node.ID]
		levels[level] = append(levels[level], node.ID)
	}

	return levels, nil
}

// GetAffectedNodes returns the given nodes and all their downstream dependents,
// in insertion order.
func (g *Graph) GetAffectedNodes(changedIDs []string) []string {
	affected := make(map[string]bool)

	var markAffected func(id string)
	markAffected = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true

		for _, childID := range g.edges[id] {
			markAffected(childID)
		}
	}

	for _, id := range changedIDs {
		if _, exists := g.nodes[id]; exists {
			markAffected(id)
		}
	}

	return g.inOrder(affected)
}

// GetUpstreamNodes returns all nodes upstream of the given node (its
// dependencies and their dependencies), in insertion order.
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := make(map[string]bool)

	var markUpstream func(nodeID string)
	markUpstream = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !upstream[parentID] {
				upstream[parentID] = true
				markUpstream(parentID)
			}
		}
	}

	markUpstream(id)
	delete(upstream, id)

	return g.inOrder(upstream)
}

// GetRoots returns nodes with no parents (no dependencies).
func (g *Graph) GetRoots() []string {
	var roots []string
	for _, id := range g.order {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// GetLeaves returns nodes with no children (no dependents).
func (g *Graph) GetLeaves() []string {
	var leaves []string
	for _, id := range g.order {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// Subgraph returns a new graph containing only the specified nodes and their
// edges. Nodes keep their relative insertion order.
func (g *Graph) Subgraph(nodeIDs []string) *Graph {
	include := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		include[id] = true
	}

	subgraph := NewGraph()
	for _, id := range g.order {
		if include[id] {
			subgraph.AddNode(id, g.nodes[id].Data)
		}
	}

	for _, id := range subgraph.order {
		for _, childID := range g.edges[id] {
			if include[childID] {
				_ = subgraph.AddEdge(id, childID)
			}
		}
	}

	return subgraph
}

// inOrder returns the IDs in set, sorted by insertion position.
func (g *Graph) inOrder(set map[string]bool) []string {
	result := make([]string, 0, len(set))
	for id := range set {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool {
		return g.index[result[i]] < g.index[result[j]]
	})
	return result
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
