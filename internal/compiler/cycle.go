package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// Cycle is a set of pipelines that reference each other, directly or
// through joins. Such pipelines cannot be expanded into subqueries.
type Cycle struct {
	Path    []string `json:"path"` // e.g. ["a", "b", "a"]
	Message string   `json:"message"`
}

// FindCycles reports every reference cycle among pipelines.
//
// The algorithm:
//  1. Build the pipeline -> referenced pipelines graph from sources and join inners
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// Results are deterministic: nodes are visited in name order.
func FindCycles(pipelines map[string]*Pipeline) []Cycle {
	graph := buildReferenceGraph(pipelines)

	var cycles []Cycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	return cycles
}

// referenceGraph maps pipeline name -> names it references.
type referenceGraph map[string][]string

func buildReferenceGraph(pipelines map[string]*Pipeline) referenceGraph {
	graph := make(referenceGraph)
	for name, p := range pipelines {
		refs := []string{}
		if p.From.Pipeline != "" {
			refs = append(refs, p.From.Pipeline)
		}
		for _, c := range p.Calls {
			if c.Inner != nil && c.Inner.Pipeline != "" {
				refs = append(refs, c.Inner.Pipeline)
			}
		}
		graph[name] = refs
	}
	return graph
}

func hasSelfLoop(node string, graph referenceGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(graph referenceGraph) [][]string {
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
			if _, known := graph[w]; !known {
				continue
			}
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

	names := make([]string, 0, len(graph))
	for name := range graph {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, visited := indices[name]; !visited {
			strongConnect(name)
		}
	}

	return sccs
}

// sccToCycle builds a cycle path starting at the SCC's smallest name.
func sccToCycle(scc []string, graph referenceGraph) Cycle {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)
	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range graph[current] {
			if members[w] && (w == start || !visited[w]) {
				next = w
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
		visited[next] = true
		current = next
	}
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("pipeline reference cycle: %s", strings.Join(path, " -> ")),
	}
}
