package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sge/internal/types"
)

// TestEngine_ZeroCandidates tests the empty result contract.
func TestEngine_ZeroCandidates(t *testing.T) {
	e := NewEngine()
	res := e.Resolve("Missing", nil, &Context{})

	assert.Nil(t, res.Symbol)
	assert.Zero(t, res.Confidence)
	assert.False(t, res.IsAmbiguous)
	assert.Empty(t, res.Candidates)
	assert.Contains(t, res.Explanation, "Missing")
}

// TestEngine_SingleCandidate tests the 0.9 single-candidate confidence.
func TestEngine_SingleCandidate(t *testing.T) {
	e := NewEngine()
	only := candidate("NS", "", "Thing", types.KindClass)

	res := e.Resolve("Thing", []*types.Symbol{only}, &Context{})
	require.NotNil(t, res.Symbol)
	assert.Equal(t, only.ID, res.Symbol.ID)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.False(t, res.IsAmbiguous)
}

// TestEngine_MultipleCandidates tests that context signals pick the
// contextually closer candidate and attach the full scored list.
func TestEngine_MultipleCandidates(t *testing.T) {
	e := NewEngine()

	near := candidate("Sales", "", "Error", types.KindClass)
	near.Modifiers.Visibility = types.VisibilityPublic
	far := candidate("Billing", "", "Error", types.KindClass)
	far.Modifiers.Visibility = types.VisibilityPublic

	ctx := &Context{
		Namespace: "Sales",
		Imports:   []string{"Sales.Error"},
	}
	res := e.Resolve("Error", []*types.Symbol{far, near}, ctx)

	require.NotNil(t, res.Symbol)
	assert.Equal(t, near.ID, res.Symbol.ID)
	assert.True(t, res.IsAmbiguous)
	require.Len(t, res.Candidates, 2)
	assert.Greater(t, res.Candidates[0].Score, res.Candidates[1].Score)
	assert.Greater(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	assert.NotEmpty(t, res.Candidates[0].Breakdown)
	assert.Contains(t, res.Explanation, "Sales.Error")
}

// TestEngine_Deterministic tests that identical inputs yield bit-identical
// results across repeated calls, regardless of candidate slice order.
func TestEngine_Deterministic(t *testing.T) {
	e := NewEngine()

	a := candidate("NS1", "", "Error", types.KindClass)
	b := candidate("NS2", "", "Error", types.KindClass)
	ctx := &Context{Namespace: "NS2"}

	first := e.Resolve("Error", []*types.Symbol{a, b}, ctx)
	for i := 0; i < 10; i++ {
		again := e.Resolve("Error", []*types.Symbol{a, b}, ctx)
		assert.Equal(t, first.Symbol.ID, again.Symbol.ID)
		assert.Equal(t, first.Confidence, again.Confidence)
	}

	// Reversed candidate order must not change the outcome
	reversed := e.Resolve("Error", []*types.Symbol{b, a}, ctx)
	assert.Equal(t, first.Symbol.ID, reversed.Symbol.ID)
	assert.Equal(t, first.Confidence, reversed.Confidence)
}

// TestEngine_TieBreakByFQN tests the documented tie-break: equal scores
// fall back to lexicographic FQN order.
func TestEngine_TieBreakByFQN(t *testing.T) {
	e := NewEngine()

	// Identical modifiers, kinds, and (empty) context: scores tie exactly.
	zed := candidate("Zed", "", "Widget", types.KindClass)
	alpha := candidate("Alpha", "", "Widget", types.KindClass)

	res := e.Resolve("Widget", []*types.Symbol{zed, alpha}, &Context{})
	require.NotNil(t, res.Symbol)
	assert.Equal(t, alpha.ID, res.Symbol.ID)
	assert.Equal(t, res.Candidates[0].Score, res.Candidates[1].Score)
}

// TestEngine_NilContext tests that a nil context is tolerated.
func TestEngine_NilContext(t *testing.T) {
	e := NewEngine()
	only := candidate("NS", "", "Thing", types.KindClass)
	res := e.Resolve("Thing", []*types.Symbol{only}, nil)
	assert.Equal(t, only.ID, res.Symbol.ID)
}

// TestEngine_ScoreClamped tests that totals never exceed 1.
func TestEngine_ScoreClamped(t *testing.T) {
	e := NewEngine()

	best := candidate("Sales", "OrderService", "submit", types.KindMethod)
	best.Modifiers.Visibility = types.VisibilityPublic
	best.TypeName = "Order"
	other := candidate("Billing", "Other", "submit", types.KindMethod)

	ctx := &Context{
		Namespace:        "Sales",
		Imports:          []string{"Sales.OrderService.submit"},
		ScopeChain:       []string{"submit", "OrderService"},
		ReturnType:       "Order",
		RelationshipType: types.RefMethodCall,
	}
	res := e.Resolve("submit", []*types.Symbol{best, other}, ctx)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	assert.Equal(t, best.ID, res.Symbol.ID)
}
