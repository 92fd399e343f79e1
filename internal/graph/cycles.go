package graph

import (
	"sort"

	"github.com/standardbeagle/sge/internal/types"
)

// Cycle is one elementary dependency cycle, in traversal order starting at
// the cycle's smallest symbol ID so equal cycles compare equal.
type Cycle []types.SymbolID

// DetectCircularDependencies finds elementary cycles by depth-first search
// with a visited set and an on-stack recursion set: revisiting a symbol that
// is still on the stack signals a cycle. Disconnected components and
// self-references terminate normally. Roots are visited in sorted ID order
// so the result is deterministic.
//
// This is a whole-graph O(V+E) scan; callers should keep it off the
// interactive request path or memoize the result.
func (g *ReferenceGraph) DetectCircularDependencies() []Cycle {
	g.mu.RLock()
	defer g.mu.RUnlock()

	roots := make([]types.SymbolID, 0, len(g.nodes))
	for id := range g.nodes {
		roots = append(roots, id)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	d := &cycleDetector{
		graph:   g,
		visited: make(map[types.SymbolID]bool, len(g.nodes)),
		onStack: make(map[types.SymbolID]bool),
		seen:    make(map[string]bool),
	}
	for _, root := range roots {
		if !d.visited[root] {
			d.visit(root)
		}
	}
	return d.cycles
}

type cycleDetector struct {
	graph   *ReferenceGraph
	visited map[types.SymbolID]bool
	onStack map[types.SymbolID]bool
	path    []types.SymbolID
	seen    map[string]bool // canonical cycle keys, for deduplication
	cycles  []Cycle
}

func (d *cycleDetector) visit(id types.SymbolID) {
	d.visited[id] = true
	d.onStack[id] = true
	d.path = append(d.path, id)

	for _, target := range d.successors(id) {
		if d.onStack[target] {
			d.recordCycle(target)
		} else if !d.visited[target] {
			d.visit(target)
		}
	}

	d.path = d.path[:len(d.path)-1]
	d.onStack[id] = false
}

// successors returns the sorted, deduplicated outgoing neighbors of id,
// skipping dangling targets.
func (d *cycleDetector) successors(id types.SymbolID) []types.SymbolID {
	edges := d.graph.outgoing[id]
	if len(edges) == 0 {
		return nil
	}
	seen := make(map[types.SymbolID]bool, len(edges))
	out := make([]types.SymbolID, 0, len(edges))
	for _, edge := range edges {
		if _, exists := d.graph.nodes[edge.TargetID]; !exists {
			continue
		}
		if !seen[edge.TargetID] {
			seen[edge.TargetID] = true
			out = append(out, edge.TargetID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// recordCycle extracts the path segment from the on-stack occurrence of
// entry to the top of the stack and records it in canonical rotation.
func (d *cycleDetector) recordCycle(entry types.SymbolID) {
	start := -1
	for i, id := range d.path {
		if id == entry {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}

	cycle := canonicalize(d.path[start:])
	key := cycleKey(cycle)
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.cycles = append(d.cycles, cycle)
}

// canonicalize rotates the cycle so it starts at its smallest ID.
func canonicalize(path []types.SymbolID) Cycle {
	minIdx := 0
	for i, id := range path {
		if id < path[minIdx] {
			minIdx = i
		}
	}
	cycle := make(Cycle, 0, len(path))
	cycle = append(cycle, path[minIdx:]...)
	cycle = append(cycle, path[:minIdx]...)
	return cycle
}

// cycleKey builds a map key from the canonical rotation. 64-bit IDs are
// packed as raw runes; the key is never displayed.
func cycleKey(cycle Cycle) string {
	buf := make([]byte, 0, len(cycle)*8)
	for _, id := range cycle {
		for shift := 56; shift >= 0; shift -= 8 {
			buf = append(buf, byte(id>>uint(shift)))
		}
	}
	return string(buf)
}
