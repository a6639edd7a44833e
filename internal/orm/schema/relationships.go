package schema

import (
	"fmt"
	"strings"
)

// RelationshipGraph represents the belongs_to dependency graph between resources
type RelationshipGraph struct {
	nodes []string
	edges map[string][]string // resource -> dependencies
}

// NewRelationshipGraph creates a new relationship graph. order fixes the
// iteration order so results are deterministic.
func NewRelationshipGraph(schemas map[string]*ResourceSchema, order []string) *RelationshipGraph {
	graph := &RelationshipGraph{
		nodes: order,
		edges: make(map[string][]string),
	}

	for _, name := range order {
		for _, field := range schemas[name].ForeignKeys() {
			target := field.Relation.TargetResource
			// Self references do not constrain creation order.
			if target == name {
				continue
			}
			graph.edges[name] = append(graph.edges[name], target)
		}
	}

	return graph
}

// DetectCycles detects circular dependencies in the relationship graph
func (g *RelationshipGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				dfs(neighbor, path)
				continue
			}
			if !onStack[neighbor] {
				continue
			}
			for i, n := range path {
				if n == neighbor {
					cycle := make([]string, len(path)-i)
					copy(cycle, path[i:])
					cycles = append(cycles, cycle)
					break
				}
			}
		}

		onStack[node] = false
	}

	for _, node := range g.nodes {
		if !visited[node] {
			dfs(node, nil)
		}
	}

	return cycles
}

// TopologicalSort returns resources in dependency order (dependencies first).
// Ties keep registration order.
func (g *RelationshipGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int, len(g.nodes))
	reverseEdges := make(map[string][]string)
	for _, node := range g.nodes {
		outDegree[node] = len(g.edges[node])
		for _, target := range g.edges[node] {
			reverseEdges[target] = append(reverseEdges[target], node)
		}
	}

	queue := []string{}
	for _, node := range g.nodes {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range reverseEdges[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		if cycles := g.DetectCycles(); len(cycles) > 0 {
			return nil, fmt.Errorf("circular dependency detected: %s", formatCycles(cycles))
		}
		return nil, fmt.Errorf("circular dependency detected")
	}

	return result, nil
}

// Dependencies returns the direct dependencies of a resource
func (g *RelationshipGraph) Dependencies(resource string) []string {
	return g.edges[resource]
}

func formatCycles(cycles [][]string) string {
	parts := make([]string, 0, len(cycles))
	for _, cycle := range cycles {
		parts = append(parts, strings.Join(append(cycle, cycle[0]), " -> "))
	}
	return strings.Join(parts, "; ")
}
