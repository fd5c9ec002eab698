package eval

import (
	"github.com/roach88/g3d/internal/expr"
	"github.com/roach88/g3d/internal/ir"
)

// dependencyGraph maps function name → user functions its body refers to,
// either by call or, for constants, by bare identifier.
type dependencyGraph map[string][]string

func buildDependencyGraph(defs []ir.NamedFunction, trees map[string]expr.Node) dependencyGraph {
	byName := make(map[string]ir.NamedFunction, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	graph := make(dependencyGraph, len(defs))
	for _, d := range defs {
		graph[d.Name] = []string{}
		tree, ok := trees[d.Name]
		if !ok {
			continue
		}
		params := make(map[string]bool, len(d.Params))
		for _, p := range d.Params {
			params[p] = true
		}
		idents, calls := expr.Refs(tree)
		for _, c := range calls {
			if _, ok := byName[c]; ok {
				graph[d.Name] = append(graph[d.Name], c)
			}
		}
		for _, id := range idents {
			if params[id] {
				continue
			}
			if dep, ok := byName[id]; ok && dep.IsConstant() {
				graph[d.Name] = append(graph[d.Name], id)
			}
		}
	}
	return graph
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components, visiting nodes in the
// given order so results are deterministic.
//
// Edges point from a function to its dependencies, so components come out
// dependencies-first: the returned order is a valid binding order.
func tarjanSCC(nodes []string, graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// findCycle returns the cycle containing the earliest declared function,
// or nil for an acyclic graph.
func findCycle(nodes []string, sccs [][]string, graph dependencyGraph) *CycleError {
	rank := make(map[string]int, len(nodes))
	for i, n := range nodes {
		rank[n] = i
	}

	var best []string
	bestRank := len(nodes)
	for _, scc := range sccs {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		for _, n := range scc {
			if rank[n] < bestRank {
				best, bestRank = scc, rank[n]
			}
		}
	}
	if best == nil {
		return nil
	}

	names := make([]string, 0, len(best))
	for _, n := range nodes {
		for _, m := range best {
			if n == m {
				names = append(names, n)
			}
		}
	}
	return &CycleError{Names: names, Path: cyclePath(names, graph)}
}

// cyclePath walks edges inside the component from its first member until
// it returns to the start.
func cyclePath(scc []string, graph dependencyGraph) []string {
	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true
		var next string
		for _, neighbor := range graph[current] {
			if member[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
