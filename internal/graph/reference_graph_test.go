package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sge/internal/types"
)

func newSymbol(file types.FileID, scope, name string, kind types.SymbolKind) *types.Symbol {
	return &types.Symbol{
		ID:     types.ComputeSymbolID(file, scope, name),
		Name:   name,
		Kind:   kind,
		FileID: file,
	}
}

func loc(file types.FileID, line int) types.Location {
	return types.Location{FileID: file, Range: types.Range{Start: types.Position{Line: line}}}
}

// TestReferenceGraph_AddSymbolIdempotent tests that re-adding an ID updates
// metadata without duplicating the node.
func TestReferenceGraph_AddSymbolIdempotent(t *testing.T) {
	g := NewReferenceGraph()
	sym := newSymbol("file:///a.cls", "", "A", types.KindClass)

	g.AddSymbol(sym, sym.FileID)
	g.AddSymbol(sym, sym.FileID)

	stats := g.Stats()
	assert.Equal(t, 1, stats.Nodes)
	assert.True(t, g.HasSymbol(sym.ID))
}

// TestReferenceGraph_References tests edge insertion and directional queries.
func TestReferenceGraph_References(t *testing.T) {
	g := NewReferenceGraph()
	caller := newSymbol("file:///caller.cls", "Caller", "run", types.KindMethod)
	callee := newSymbol("file:///callee.cls", "Callee", "work", types.KindMethod)

	g.AddSymbol(caller, caller.FileID)
	g.AddSymbol(callee, callee.FileID)
	g.AddReference(caller.ID, callee.ID, types.RefMethodCall, loc(caller.FileID, 10))

	to := g.FindReferencesTo(callee.ID)
	require.Len(t, to, 1)
	assert.Equal(t, caller.ID, to[0].SymbolID)
	assert.Equal(t, types.RefMethodCall, to[0].Type)
	assert.Equal(t, caller.FileID, to[0].Location.FileID)

	from := g.FindReferencesFrom(caller.ID)
	require.Len(t, from, 1)
	assert.Equal(t, callee.ID, from[0].SymbolID)

	node, ok := g.Node(callee.ID)
	require.True(t, ok)
	assert.Equal(t, 1, node.RefCount)
}

// TestReferenceGraph_UnknownIDsReturnEmpty tests that unknown IDs never
// error and never panic.
func TestReferenceGraph_UnknownIDsReturnEmpty(t *testing.T) {
	g := NewReferenceGraph()

	assert.Empty(t, g.FindReferencesTo(types.SymbolID(12345)))
	assert.Empty(t, g.FindReferencesFrom(types.SymbolID(12345)))

	analysis := g.AnalyzeDependencies(types.SymbolID(12345))
	assert.Empty(t, analysis.DirectDeps)
	assert.Empty(t, analysis.DirectDependents)
	assert.False(t, analysis.HasCircular)
}

// TestReferenceGraph_DeferredPromotion tests that a forward reference added
// before its target registers appears once the target arrives, without
// duplicating the edge.
func TestReferenceGraph_DeferredPromotion(t *testing.T) {
	g := NewReferenceGraph()
	source := newSymbol("file:///src.cls", "Src", "call", types.KindMethod)
	target := newSymbol("file:///tgt.cls", "", "Tgt", types.KindClass)

	g.AddSymbol(source, source.FileID)
	g.AddReference(source.ID, target.ID, types.RefTypeReference, loc(source.FileID, 3))

	// Target not registered yet: no edge, one pending deferred entry.
	assert.Empty(t, g.FindReferencesTo(target.ID))
	assert.Equal(t, 1, g.PendingDeferred(target.ID))

	// Registration reports the promoted edge's source so callers can
	// invalidate results derived from it.
	promoted := g.AddSymbol(target, target.FileID)
	assert.Equal(t, []types.SymbolID{source.ID}, promoted)

	refs := g.FindReferencesTo(target.ID)
	require.Len(t, refs, 1)
	assert.Equal(t, source.ID, refs[0].SymbolID)
	assert.Equal(t, 0, g.PendingDeferred(target.ID))

	// Promotion must not duplicate when the same reference is re-added.
	g.AddReference(source.ID, target.ID, types.RefTypeReference, loc(source.FileID, 3))
	assert.Len(t, g.FindReferencesTo(target.ID), 1)
	assert.Equal(t, int64(1), g.Stats().DeferredPromoted)
}

// TestReferenceGraph_DeferredCap tests that the per-target deferred store
// is bounded, oldest entries dropped first.
func TestReferenceGraph_DeferredCap(t *testing.T) {
	g := NewReferenceGraph(WithDeferredCap(2))
	target := newSymbol("file:///tgt.cls", "", "Tgt", types.KindClass)

	for i := 0; i < 5; i++ {
		src := newSymbol("file:///src.cls", "Src", string(rune('a'+i)), types.KindMethod)
		g.AddSymbol(src, src.FileID)
		g.AddReference(src.ID, target.ID, types.RefTypeReference, loc(src.FileID, i))
	}

	assert.Equal(t, 2, g.PendingDeferred(target.ID))
	assert.Equal(t, int64(3), g.Stats().DeferredDropped)

	g.AddSymbol(target, target.FileID)
	assert.Len(t, g.FindReferencesTo(target.ID), 2)
}

// TestReferenceGraph_RemoveFile tests that removal purges nodes, both edge
// directions, and matching deferred entries.
func TestReferenceGraph_RemoveFile(t *testing.T) {
	g := NewReferenceGraph()
	a := newSymbol("file:///a.cls", "", "A", types.KindClass)
	b := newSymbol("file:///b.cls", "", "B", types.KindClass)
	c := newSymbol("file:///c.cls", "", "C", types.KindClass)

	g.AddSymbol(a, a.FileID)
	g.AddSymbol(b, b.FileID)
	g.AddSymbol(c, c.FileID)

	g.AddReference(a.ID, b.ID, types.RefTypeReference, loc(a.FileID, 1))
	g.AddReference(b.ID, c.ID, types.RefTypeReference, loc(b.FileID, 2))
	// Deferred reference recorded from b's file toward a not-yet-known target
	ghost := types.ComputeSymbolID("file:///ghost.cls", "", "Ghost")
	g.AddReference(b.ID, ghost, types.RefTypeReference, loc(b.FileID, 3))

	g.RemoveFile(b.FileID)

	assert.False(t, g.HasSymbol(b.ID))
	assert.Empty(t, g.FindReferencesFrom(a.ID))
	assert.Empty(t, g.FindReferencesTo(c.ID))
	assert.Equal(t, 0, g.PendingDeferred(ghost))

	stats := g.Stats()
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 0, stats.Edges)
}

// TestReferenceGraph_RemoveFileNeverAdded tests that removing an unknown
// file is tolerated.
func TestReferenceGraph_RemoveFileNeverAdded(t *testing.T) {
	g := NewReferenceGraph()
	assert.NotPanics(t, func() { g.RemoveFile("file:///never-added.cls") })
}

// TestReferenceGraph_RemoveThenReAdd tests the rebuild invariant: removing
// a file and re-adding the same unchanged symbols reproduces identical IDs
// and an identical incident-edge set.
func TestReferenceGraph_RemoveThenReAdd(t *testing.T) {
	g := NewReferenceGraph()
	a := newSymbol("file:///a.cls", "", "A", types.KindClass)
	b := newSymbol("file:///b.cls", "", "B", types.KindClass)

	add := func() {
		g.AddSymbol(a, a.FileID)
		g.AddSymbol(b, b.FileID)
		g.AddReference(a.ID, b.ID, types.RefInheritance, loc(a.FileID, 1))
	}

	add()
	before := g.FindReferencesTo(b.ID)
	require.Len(t, before, 1)

	g.RemoveFile(a.FileID)
	assert.Empty(t, g.FindReferencesTo(b.ID))

	// Recompiling the unchanged file reproduces the same ID
	reAdded := newSymbol("file:///a.cls", "", "A", types.KindClass)
	assert.Equal(t, a.ID, reAdded.ID)

	add()
	after := g.FindReferencesTo(b.ID)
	assert.Equal(t, before, after)
}

// TestReferenceGraph_DetectCircularDependencies tests that a three-symbol
// cycle is reported exactly once with exactly its members, with unrelated
// structure present.
func TestReferenceGraph_DetectCircularDependencies(t *testing.T) {
	g := NewReferenceGraph()
	a := newSymbol("file:///a.cls", "", "A", types.KindClass)
	b := newSymbol("file:///b.cls", "", "B", types.KindClass)
	c := newSymbol("file:///c.cls", "", "C", types.KindClass)
	d := newSymbol("file:///d.cls", "", "D", types.KindClass) // disconnected
	e := newSymbol("file:///e.cls", "", "E", types.KindClass) // self-loop

	for _, sym := range []*types.Symbol{a, b, c, d, e} {
		g.AddSymbol(sym, sym.FileID)
	}

	g.AddReference(a.ID, b.ID, types.RefTypeReference, loc(a.FileID, 1))
	g.AddReference(b.ID, c.ID, types.RefTypeReference, loc(b.FileID, 1))
	g.AddReference(c.ID, a.ID, types.RefTypeReference, loc(c.FileID, 1))
	g.AddReference(e.ID, e.ID, types.RefTypeReference, loc(e.FileID, 1))

	cycles := g.DetectCircularDependencies()
	require.Len(t, cycles, 2)

	members := func(cy Cycle) map[types.SymbolID]bool {
		m := make(map[types.SymbolID]bool, len(cy))
		for _, id := range cy {
			m[id] = true
		}
		return m
	}

	var found3, foundSelf bool
	for _, cy := range cycles {
		switch len(cy) {
		case 3:
			m := members(cy)
			assert.True(t, m[a.ID] && m[b.ID] && m[c.ID])
			found3 = true
		case 1:
			assert.Equal(t, e.ID, cy[0])
			foundSelf = true
		}
	}
	assert.True(t, found3, "expected the A→B→C→A cycle")
	assert.True(t, foundSelf, "expected the self-loop cycle")

	// Determinism: repeated detection yields identical results
	assert.Equal(t, cycles, g.DetectCircularDependencies())
}

// TestReferenceGraph_AnalyzeDependencies tests the local dependency view
// and circularity flag.
func TestReferenceGraph_AnalyzeDependencies(t *testing.T) {
	g := NewReferenceGraph()
	a := newSymbol("file:///a.cls", "", "A", types.KindClass)
	b := newSymbol("file:///b.cls", "", "B", types.KindClass)
	c := newSymbol("file:///c.cls", "", "C", types.KindClass)

	for _, sym := range []*types.Symbol{a, b, c} {
		g.AddSymbol(sym, sym.FileID)
	}
	g.AddReference(a.ID, b.ID, types.RefTypeReference, loc(a.FileID, 1))
	g.AddReference(c.ID, a.ID, types.RefMethodCall, loc(c.FileID, 2))

	analysis := g.AnalyzeDependencies(a.ID)
	assert.Equal(t, []types.SymbolID{b.ID}, analysis.DirectDeps)
	assert.Equal(t, []types.SymbolID{c.ID}, analysis.DirectDependents)
	assert.False(t, analysis.HasCircular)

	// Closing the loop flips the local circularity flag
	g.AddReference(b.ID, c.ID, types.RefTypeReference, loc(b.FileID, 3))
	assert.True(t, g.AnalyzeDependencies(a.ID).HasCircular)
}

// TestReferenceGraph_SymbolsInFile tests the per-file node index.
func TestReferenceGraph_SymbolsInFile(t *testing.T) {
	g := NewReferenceGraph()
	a := newSymbol("file:///a.cls", "", "A", types.KindClass)
	a2 := newSymbol("file:///a.cls", "A", "run", types.KindMethod)
	b := newSymbol("file:///b.cls", "", "B", types.KindClass)

	g.AddSymbol(a, a.FileID)
	g.AddSymbol(a2, a.FileID)
	g.AddSymbol(b, b.FileID)

	assert.Len(t, g.SymbolsInFile("file:///a.cls"), 2)
	assert.Len(t, g.SymbolsInFile("file:///b.cls"), 1)
	assert.Empty(t, g.SymbolsInFile("file:///missing.cls"))
}
