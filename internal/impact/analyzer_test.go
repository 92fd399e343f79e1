package impact

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sge/internal/graph"
	"github.com/standardbeagle/sge/internal/types"
)

// stubProvider serves symbols from a map.
type stubProvider struct {
	symbols map[types.SymbolID]*types.Symbol
}

func (p *stubProvider) SymbolByID(id types.SymbolID) *types.Symbol {
	return p.symbols[id]
}

type fixture struct {
	graph    *graph.ReferenceGraph
	provider *stubProvider
}

func newFixture() *fixture {
	return &fixture{
		graph:    graph.NewReferenceGraph(),
		provider: &stubProvider{symbols: make(map[types.SymbolID]*types.Symbol)},
	}
}

func (f *fixture) addClass(name string, vis types.Visibility) *types.Symbol {
	file := types.FileID("file:///" + name + ".cls")
	sym := &types.Symbol{
		ID:     types.ComputeSymbolID(file, "", name),
		Name:   name,
		Kind:   types.KindClass,
		FileID: file,
		FQN:    name,
	}
	sym.Modifiers.Visibility = vis
	f.graph.AddSymbol(sym, file)
	f.provider.symbols[sym.ID] = sym
	return sym
}

func (f *fixture) refer(from, to *types.Symbol, refType types.ReferenceType) {
	f.graph.AddReference(from.ID, to.ID, refType,
		types.Location{FileID: from.FileID})
}

// TestAnalyzer_NoReferrers tests that an unreferenced symbol is low risk
// with empty impact.
func TestAnalyzer_NoReferrers(t *testing.T) {
	f := newFixture()
	lonely := f.addClass("Lonely", types.VisibilityPrivate)

	a := NewAnalyzer(f.graph, f.provider, DefaultPolicy())
	analysis := a.Analyze(lonely.ID)

	assert.Empty(t, analysis.DirectImpact)
	assert.Empty(t, analysis.IndirectImpact)
	assert.Equal(t, 0, analysis.TotalImpacted)
	assert.Equal(t, RiskLow, analysis.Risk)
	assert.NotEmpty(t, analysis.MigrationPath)
}

// TestAnalyzer_DirectAndIndirect tests the depth-capped closure.
func TestAnalyzer_DirectAndIndirect(t *testing.T) {
	f := newFixture()

	// chain: d3 -> d2 -> d1 -> target, plus one too-deep referrer d4 -> d3
	target := f.addClass("Target", types.VisibilityPrivate)
	d1 := f.addClass("Depth1", types.VisibilityPrivate)
	d2 := f.addClass("Depth2", types.VisibilityPrivate)
	d3 := f.addClass("Depth3", types.VisibilityPrivate)
	d4 := f.addClass("Depth4", types.VisibilityPrivate)

	f.refer(d1, target, types.RefTypeReference)
	f.refer(d2, d1, types.RefTypeReference)
	f.refer(d3, d2, types.RefTypeReference)
	f.refer(d4, d3, types.RefTypeReference)

	a := NewAnalyzer(f.graph, f.provider, DefaultPolicy())
	analysis := a.Analyze(target.ID)

	require.Len(t, analysis.DirectImpact, 1)
	assert.Equal(t, d1.ID, analysis.DirectImpact[0].SymbolID)
	// Depth cap 3: d2 (hop 2) and d3 (hop 3) are in, d4 (hop 4) is out
	assert.ElementsMatch(t, []types.SymbolID{d2.ID, d3.ID}, analysis.IndirectImpact)
	assert.Equal(t, 3, analysis.TotalImpacted)
	assert.Equal(t, RiskLow, analysis.Risk)
}

// TestAnalyzer_CycleGuard tests termination and deduplication when
// referrers form a cycle around the target.
func TestAnalyzer_CycleGuard(t *testing.T) {
	f := newFixture()
	target := f.addClass("Hub", types.VisibilityPrivate)
	a1 := f.addClass("SpokeA", types.VisibilityPrivate)
	b1 := f.addClass("SpokeB", types.VisibilityPrivate)

	f.refer(a1, target, types.RefTypeReference)
	f.refer(b1, a1, types.RefTypeReference)
	f.refer(a1, b1, types.RefTypeReference) // cycle a1 <-> b1
	f.refer(target, a1, types.RefTypeReference)

	analyzer := NewAnalyzer(f.graph, f.provider, DefaultPolicy())
	analysis := analyzer.Analyze(target.ID)

	// b1 appears exactly once; the target itself never appears
	assert.Equal(t, []types.SymbolID{b1.ID}, analysis.IndirectImpact)
}

// TestAnalyzer_RiskThresholds tests the policy boundaries.
func TestAnalyzer_RiskThresholds(t *testing.T) {
	tests := []struct {
		referrers int
		want      RiskLevel
	}{
		{0, RiskLow},
		{5, RiskLow},
		{6, RiskMedium},
		{20, RiskMedium},
		{21, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d referrers", tt.referrers), func(t *testing.T) {
			f := newFixture()
			target := f.addClass("Target", types.VisibilityPrivate)
			for i := 0; i < tt.referrers; i++ {
				ref := f.addClass(fmt.Sprintf("Ref%02d", i), types.VisibilityPrivate)
				f.refer(ref, target, types.RefMethodCall)
			}

			a := NewAnalyzer(f.graph, f.provider, DefaultPolicy())
			assert.Equal(t, tt.want, a.Analyze(target.ID).Risk)
		})
	}
}

// TestAnalyzer_BreakingChanges tests the breaking-change warning list.
func TestAnalyzer_BreakingChanges(t *testing.T) {
	f := newFixture()
	iface := f.addClass("Payable", types.VisibilityGlobal)

	impl := f.addClass("Invoice", types.VisibilityPublic)
	sub := f.addClass("CreditMemo", types.VisibilityPublic)
	f.refer(impl, iface, types.RefInterfaceImpl)
	f.refer(sub, iface, types.RefInheritance)
	for i := 0; i < 11; i++ {
		caller := f.addClass(fmt.Sprintf("Caller%02d", i), types.VisibilityPrivate)
		f.refer(caller, iface, types.RefMethodCall)
	}

	a := NewAnalyzer(f.graph, f.provider, DefaultPolicy())
	analysis := a.Analyze(iface.ID)

	require.Len(t, analysis.BreakingChanges, 4)
	assert.Contains(t, analysis.BreakingChanges[0], "global")
	assert.Contains(t, analysis.BreakingChanges[1], "implementation")
	assert.Contains(t, analysis.BreakingChanges[2], "subclass")
	assert.Contains(t, analysis.BreakingChanges[3], "13 sites")
}

// TestAnalyzer_CustomPolicy tests that thresholds and depth are honored.
func TestAnalyzer_CustomPolicy(t *testing.T) {
	f := newFixture()
	target := f.addClass("Target", types.VisibilityPrivate)
	d1 := f.addClass("Depth1", types.VisibilityPrivate)
	d2 := f.addClass("Depth2", types.VisibilityPrivate)
	f.refer(d1, target, types.RefTypeReference)
	f.refer(d2, d1, types.RefTypeReference)

	policy := Policy{MaxDepth: 1, LowRiskThreshold: 0, MedRiskThreshold: 1, BreakingReferrers: 10}
	a := NewAnalyzer(f.graph, f.provider, policy)
	analysis := a.Analyze(target.ID)

	assert.Empty(t, analysis.IndirectImpact) // depth 1 = direct only
	assert.Equal(t, RiskMedium, analysis.Risk)
}

// TestAnalyzer_UnknownSymbol tests empty behavior for unknown IDs.
func TestAnalyzer_UnknownSymbol(t *testing.T) {
	f := newFixture()
	a := NewAnalyzer(f.graph, f.provider, DefaultPolicy())
	analysis := a.Analyze(types.SymbolID(999))

	assert.Empty(t, analysis.DirectImpact)
	assert.Equal(t, RiskLow, analysis.Risk)
}
