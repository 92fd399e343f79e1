package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/standardbeagle/sge/internal/types"
)

// DefaultDeferredCap bounds how many deferred references are retained per
// unresolved target. Oldest entries are dropped first when the cap is hit.
const DefaultDeferredCap = 64

// ReferenceNode is the lightweight graph-side view of a symbol. The
// authoritative Symbol lives in its file's SymbolTable; the graph stores
// only this reference so graph memory stays bounded by V+E.
type ReferenceNode struct {
	SymbolID    types.SymbolID `json:"symbol_id"`
	FileID      types.FileID   `json:"file_id"`
	LastUpdated time.Time      `json:"last_updated"`
	RefCount    int            `json:"ref_count"` // incoming edge count
}

// ReferenceEdge is a typed, directed cross-file relationship
type ReferenceEdge struct {
	SourceID types.SymbolID      `json:"source_id"`
	TargetID types.SymbolID      `json:"target_id"`
	Type     types.ReferenceType `json:"type"`
	Location types.Location      `json:"location"` // reference site, always in the source's file
}

// DeferredReference records an edge whose target was not registered yet
// (a forward reference). It is promoted to a real edge once the target
// registers.
type DeferredReference struct {
	Edge       ReferenceEdge `json:"edge"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Reference is one incident edge as seen from a query symbol
type Reference struct {
	SymbolID types.SymbolID      `json:"symbol_id"` // the other endpoint
	Type     types.ReferenceType `json:"type"`
	Location types.Location      `json:"location"`
}

// DependencyAnalysis is the result of a single-symbol dependency query
type DependencyAnalysis struct {
	SymbolID         types.SymbolID   `json:"symbol_id"`
	DirectDeps       []types.SymbolID `json:"direct_deps"`
	DirectDependents []types.SymbolID `json:"direct_dependents"`
	HasCircular      bool             `json:"has_circular"`
}

// Stats reports graph-level counters
type Stats struct {
	Nodes             int   `json:"nodes"`
	Edges             int   `json:"edges"`
	DeferredPending   int   `json:"deferred_pending"`
	DeferredPromoted  int64 `json:"deferred_promoted"`
	DeferredDropped   int64 `json:"deferred_dropped"`
	DanglingPruned    int64 `json:"dangling_pruned"`
	FilesWithSymbols  int   `json:"files_with_symbols"`
	ReferencesTracked int64 `json:"references_tracked"`
}

// ReferenceGraph is the directed cross-file reference graph. Nodes refer to
// symbols by ID only; edges are typed relationships between them. Mutations
// and reads are guarded by a single RWMutex so read-only batch queries can
// run concurrently.
type ReferenceGraph struct {
	mu sync.RWMutex

	nodes    map[types.SymbolID]*ReferenceNode
	outgoing map[types.SymbolID][]*ReferenceEdge
	incoming map[types.SymbolID][]*ReferenceEdge

	// Forward references waiting for their target, keyed by target ID.
	deferred    map[types.SymbolID][]DeferredReference
	deferredCap int

	// Per-file node index so RemoveFile is O(nodes in file + incident edges).
	fileNodes map[types.FileID][]types.SymbolID

	edgeCount         int
	deferredPromoted  int64
	deferredDropped   int64
	danglingPruned    int64
	referencesTracked int64
}

// Option configures a ReferenceGraph
type Option func(*ReferenceGraph)

// WithDeferredCap overrides the per-target deferred reference cap.
func WithDeferredCap(cap int) Option {
	return func(g *ReferenceGraph) {
		if cap > 0 {
			g.deferredCap = cap
		}
	}
}

// NewReferenceGraph creates an empty graph
func NewReferenceGraph(opts ...Option) *ReferenceGraph {
	g := &ReferenceGraph{
		nodes:       make(map[types.SymbolID]*ReferenceNode),
		outgoing:    make(map[types.SymbolID][]*ReferenceEdge),
		incoming:    make(map[types.SymbolID][]*ReferenceEdge),
		deferred:    make(map[types.SymbolID][]DeferredReference),
		fileNodes:   make(map[types.FileID][]types.SymbolID),
		deferredCap: DefaultDeferredCap,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddSymbol registers or updates a node for the symbol. Re-adding the same
// ID updates metadata without duplicating the node. Any deferred references
// waiting for this ID are promoted to real edges; the source IDs of those
// edges are returned so callers holding derived caches can invalidate
// them (the sources live in files added earlier).
func (g *ReferenceGraph) AddSymbol(sym *types.Symbol, fileID types.FileID) []types.SymbolID {
	if sym == nil || !sym.ID.IsValid() {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if node, exists := g.nodes[sym.ID]; exists {
		node.FileID = fileID
		node.LastUpdated = time.Now()
	} else {
		g.nodes[sym.ID] = &ReferenceNode{
			SymbolID:    sym.ID,
			FileID:      fileID,
			LastUpdated: time.Now(),
		}
		g.fileNodes[fileID] = append(g.fileNodes[fileID], sym.ID)
	}

	return g.promoteDeferredLocked(sym.ID)
}

// AddReference inserts a typed edge. When the target is not registered yet
// the edge is stored as a deferred reference and promoted once the target
// appears.
func (g *ReferenceGraph) AddReference(sourceID, targetID types.SymbolID, refType types.ReferenceType, loc types.Location) {
	if !sourceID.IsValid() || !targetID.IsValid() {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.referencesTracked++

	edge := ReferenceEdge{SourceID: sourceID, TargetID: targetID, Type: refType, Location: loc}

	if _, exists := g.nodes[targetID]; !exists {
		g.deferLocked(edge)
		return
	}

	g.insertEdgeLocked(edge)
}

// insertEdgeLocked inserts an edge unless an identical one already exists.
func (g *ReferenceGraph) insertEdgeLocked(edge ReferenceEdge) {
	for _, existing := range g.incoming[edge.TargetID] {
		if existing.SourceID == edge.SourceID &&
			existing.Type == edge.Type &&
			existing.Location == edge.Location {
			return
		}
	}

	e := &edge
	g.outgoing[edge.SourceID] = append(g.outgoing[edge.SourceID], e)
	g.incoming[edge.TargetID] = append(g.incoming[edge.TargetID], e)
	g.edgeCount++

	if node, exists := g.nodes[edge.TargetID]; exists {
		node.RefCount++
	}
}

// deferLocked stores a forward reference, dropping the oldest entry when
// the per-target cap is reached.
func (g *ReferenceGraph) deferLocked(edge ReferenceEdge) {
	pending := g.deferred[edge.TargetID]
	if len(pending) >= g.deferredCap {
		pending = pending[1:]
		g.deferredDropped++
	}
	g.deferred[edge.TargetID] = append(pending, DeferredReference{
		Edge:       edge,
		RecordedAt: time.Now(),
	})
}

// promoteDeferredLocked turns all deferred references waiting for target
// into real edges and returns their source IDs.
func (g *ReferenceGraph) promoteDeferredLocked(targetID types.SymbolID) []types.SymbolID {
	pending, exists := g.deferred[targetID]
	if !exists {
		return nil
	}
	delete(g.deferred, targetID)
	sources := make([]types.SymbolID, 0, len(pending))
	for _, def := range pending {
		g.insertEdgeLocked(def.Edge)
		g.deferredPromoted++
		sources = append(sources, def.Edge.SourceID)
	}
	return sources
}

// RemoveFile removes every node owned by the file, every edge touching
// those nodes in either direction, and deferred references recorded from
// the file. A file that was never added is a no-op.
func (g *ReferenceGraph) RemoveFile(fileID types.FileID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids, exists := g.fileNodes[fileID]
	if exists {
		removed := make(map[types.SymbolID]bool, len(ids))
		for _, id := range ids {
			removed[id] = true
		}

		for _, id := range ids {
			g.detachEdgesLocked(id, removed)
			delete(g.nodes, id)
			delete(g.outgoing, id)
			delete(g.incoming, id)
			delete(g.deferred, id)
		}
		delete(g.fileNodes, fileID)
	}

	// Deferred references recorded from the removed file must go too,
	// regardless of where their unresolved target will eventually live.
	for targetID, pending := range g.deferred {
		kept := pending[:0]
		for _, def := range pending {
			if def.Edge.Location.FileID != fileID {
				kept = append(kept, def)
			}
		}
		if len(kept) == 0 {
			delete(g.deferred, targetID)
		} else {
			g.deferred[targetID] = kept
		}
	}
}

// detachEdgesLocked removes the mirror half of every edge incident to id.
// Edges between two symbols in the removed set need no mirror cleanup.
func (g *ReferenceGraph) detachEdgesLocked(id types.SymbolID, removed map[types.SymbolID]bool) {
	for _, edge := range g.outgoing[id] {
		g.edgeCount--
		if removed[edge.TargetID] {
			continue
		}
		g.incoming[edge.TargetID] = dropEdges(g.incoming[edge.TargetID], id, true)
		if node, exists := g.nodes[edge.TargetID]; exists && node.RefCount > 0 {
			node.RefCount--
		}
	}
	for _, edge := range g.incoming[id] {
		if removed[edge.SourceID] {
			continue // counted when the source side is detached
		}
		g.edgeCount--
		g.outgoing[edge.SourceID] = dropEdges(g.outgoing[edge.SourceID], id, false)
	}
}

// dropEdges filters out edges whose far endpoint is id. bySource selects
// which endpoint to compare.
func dropEdges(edges []*ReferenceEdge, id types.SymbolID, bySource bool) []*ReferenceEdge {
	kept := edges[:0]
	for _, edge := range edges {
		other := edge.TargetID
		if bySource {
			other = edge.SourceID
		}
		if other != id {
			kept = append(kept, edge)
		}
	}
	return kept
}

// HasSymbol reports whether the ID is registered.
func (g *ReferenceGraph) HasSymbol(id types.SymbolID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, exists := g.nodes[id]
	return exists
}

// Node returns a copy of the node for the ID, false when absent.
func (g *ReferenceGraph) Node(id types.SymbolID) (ReferenceNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, exists := g.nodes[id]
	if !exists {
		return ReferenceNode{}, false
	}
	return *node, true
}

// FindReferencesTo returns incoming references for the symbol, the
// referring symbol first. Unknown IDs return an empty slice. Dangling edges
// (a source node that no longer exists) are pruned rather than returned.
func (g *ReferenceGraph) FindReferencesTo(id types.SymbolID) []Reference {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.collectLocked(id, true)
}

// FindReferencesFrom returns outgoing references for the symbol.
func (g *ReferenceGraph) FindReferencesFrom(id types.SymbolID) []Reference {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.collectLocked(id, false)
}

// collectLocked gathers incident edges in one direction, pruning any edge
// whose far endpoint disappeared. Structural inconsistency here is a bug
// upstream; crashing an editor feature over it is worse than repairing.
func (g *ReferenceGraph) collectLocked(id types.SymbolID, incomingDir bool) []Reference {
	var edges []*ReferenceEdge
	if incomingDir {
		edges = g.incoming[id]
	} else {
		edges = g.outgoing[id]
	}
	if len(edges) == 0 {
		return []Reference{}
	}

	refs := make([]Reference, 0, len(edges))
	kept := edges[:0]
	for _, edge := range edges {
		other := edge.SourceID
		if !incomingDir {
			other = edge.TargetID
		}
		if _, exists := g.nodes[other]; !exists {
			g.danglingPruned++
			g.edgeCount--
			continue
		}
		kept = append(kept, edge)
		refs = append(refs, Reference{SymbolID: other, Type: edge.Type, Location: edge.Location})
	}
	if incomingDir {
		g.incoming[id] = kept
	} else {
		g.outgoing[id] = kept
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].SymbolID != refs[j].SymbolID {
			return refs[i].SymbolID < refs[j].SymbolID
		}
		return refs[i].Type < refs[j].Type
	})
	return refs
}

// AnalyzeDependencies reports direct dependencies, direct dependents, and a
// local circularity flag for one symbol without scanning the whole graph.
func (g *ReferenceGraph) AnalyzeDependencies(id types.SymbolID) DependencyAnalysis {
	g.mu.RLock()
	defer g.mu.RUnlock()

	analysis := DependencyAnalysis{SymbolID: id}
	if _, exists := g.nodes[id]; !exists {
		analysis.DirectDeps = []types.SymbolID{}
		analysis.DirectDependents = []types.SymbolID{}
		return analysis
	}

	analysis.DirectDeps = g.neighborsLocked(id, false)
	analysis.DirectDependents = g.neighborsLocked(id, true)
	analysis.HasCircular = g.reachableFromLocked(id, id)
	return analysis
}

// neighborsLocked returns the deduplicated, sorted far endpoints of one
// edge direction.
func (g *ReferenceGraph) neighborsLocked(id types.SymbolID, incomingDir bool) []types.SymbolID {
	var edges []*ReferenceEdge
	if incomingDir {
		edges = g.incoming[id]
	} else {
		edges = g.outgoing[id]
	}

	seen := make(map[types.SymbolID]bool, len(edges))
	out := make([]types.SymbolID, 0, len(edges))
	for _, edge := range edges {
		other := edge.SourceID
		if !incomingDir {
			other = edge.TargetID
		}
		if _, exists := g.nodes[other]; !exists {
			continue
		}
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// reachableFromLocked reports whether target is reachable by following
// outgoing edges from any successor of start.
func (g *ReferenceGraph) reachableFromLocked(start, target types.SymbolID) bool {
	visited := make(map[types.SymbolID]bool)
	stack := make([]types.SymbolID, 0, 8)
	for _, edge := range g.outgoing[start] {
		stack = append(stack, edge.TargetID)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, edge := range g.outgoing[id] {
			stack = append(stack, edge.TargetID)
		}
	}
	return false
}

// SymbolsInFile returns the registered IDs owned by a file, sorted.
func (g *ReferenceGraph) SymbolsInFile(fileID types.FileID) []types.SymbolID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.fileNodes[fileID]
	out := make([]types.SymbolID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PendingDeferred returns how many deferred references wait for the target.
func (g *ReferenceGraph) PendingDeferred(targetID types.SymbolID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.deferred[targetID])
}

// Stats returns a snapshot of graph counters
func (g *ReferenceGraph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pending := 0
	for _, defs := range g.deferred {
		pending += len(defs)
	}

	return Stats{
		Nodes:             len(g.nodes),
		Edges:             g.edgeCount,
		DeferredPending:   pending,
		DeferredPromoted:  g.deferredPromoted,
		DeferredDropped:   g.deferredDropped,
		DanglingPruned:    g.danglingPruned,
		FilesWithSymbols:  len(g.fileNodes),
		ReferencesTracked: g.referencesTracked,
	}
}
