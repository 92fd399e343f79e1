package impact

import (
	"fmt"
	"sort"

	"github.com/standardbeagle/sge/internal/graph"
	"github.com/standardbeagle/sge/internal/types"
)

// Policy holds the tunable impact constants. The defaults mirror long-
// standing editor behavior but carry no protocol meaning; embedders may
// override them through configuration.
type Policy struct {
	MaxDepth          int `json:"max_depth"`          // indirect closure hop cap
	LowRiskThreshold  int `json:"low_risk_threshold"` // impacted count <= this is low
	MedRiskThreshold  int `json:"med_risk_threshold"` // impacted count <= this is medium
	BreakingReferrers int `json:"breaking_referrers"` // referrer count that alone flags a breaking change
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MaxDepth:          3,
		LowRiskThreshold:  5,
		MedRiskThreshold:  20,
		BreakingReferrers: 10,
	}
}

// RiskLevel classifies the blast radius of changing a symbol
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Analysis is the full impact report for one symbol
type Analysis struct {
	SymbolID        types.SymbolID    `json:"symbol_id"`
	DirectImpact    []graph.Reference `json:"direct_impact"`
	IndirectImpact  []types.SymbolID  `json:"indirect_impact"`
	TotalImpacted   int               `json:"total_impacted"`
	Risk            RiskLevel         `json:"risk"`
	BreakingChanges []string          `json:"breaking_changes,omitempty"`
	MigrationPath   []string          `json:"migration_path"`
}

// SymbolInfoProvider supplies authoritative symbol data for narrative
// generation. The manager implements it; tests may stub it.
type SymbolInfoProvider interface {
	SymbolByID(id types.SymbolID) *types.Symbol
}

// Analyzer computes refactor impact from the reference graph. It only
// reads the graph, so independent analyses are safe to run concurrently.
type Analyzer struct {
	graph   *graph.ReferenceGraph
	symbols SymbolInfoProvider
	policy  Policy
}

// NewAnalyzer creates an analyzer over a graph.
func NewAnalyzer(g *graph.ReferenceGraph, symbols SymbolInfoProvider, policy Policy) *Analyzer {
	if policy.MaxDepth <= 0 {
		policy = DefaultPolicy()
	}
	return &Analyzer{graph: g, symbols: symbols, policy: policy}
}

// Analyze computes direct impact (incoming references), the indirect
// closure of referrers-of-referrers up to the configured depth, a risk
// classification, breaking-change warnings, and a migration narrative.
func (a *Analyzer) Analyze(id types.SymbolID) Analysis {
	analysis := Analysis{SymbolID: id}

	analysis.DirectImpact = a.graph.FindReferencesTo(id)
	analysis.IndirectImpact = a.indirectClosure(id, analysis.DirectImpact)
	analysis.TotalImpacted = len(analysis.DirectImpact) + len(analysis.IndirectImpact)
	analysis.Risk = a.classify(analysis.TotalImpacted)
	analysis.BreakingChanges = a.breakingChanges(id, analysis.DirectImpact)
	analysis.MigrationPath = a.migrationPath(id, &analysis)

	return analysis
}

// indirectClosure walks referrers-of-referrers breadth-first. Depth is
// capped, a visited set guards against cycles, and results are
// deduplicated by symbol identity and sorted for determinism.
func (a *Analyzer) indirectClosure(root types.SymbolID, direct []graph.Reference) []types.SymbolID {
	visited := map[types.SymbolID]bool{root: true}
	frontier := make([]types.SymbolID, 0, len(direct))
	for _, ref := range direct {
		if !visited[ref.SymbolID] {
			visited[ref.SymbolID] = true
			frontier = append(frontier, ref.SymbolID)
		}
	}

	var indirect []types.SymbolID
	for depth := 2; depth <= a.policy.MaxDepth && len(frontier) > 0; depth++ {
		next := make([]types.SymbolID, 0)
		for _, id := range frontier {
			for _, ref := range a.graph.FindReferencesTo(id) {
				if visited[ref.SymbolID] {
					continue
				}
				visited[ref.SymbolID] = true
				next = append(next, ref.SymbolID)
				indirect = append(indirect, ref.SymbolID)
			}
		}
		frontier = next
	}

	sort.Slice(indirect, func(i, j int) bool { return indirect[i] < indirect[j] })
	return indirect
}

// classify maps the total impacted count to a risk level.
func (a *Analyzer) classify(total int) RiskLevel {
	switch {
	case total <= a.policy.LowRiskThreshold:
		return RiskLow
	case total <= a.policy.MedRiskThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// breakingChanges lists the conditions that make a change to this symbol
// likely to break consumers.
func (a *Analyzer) breakingChanges(id types.SymbolID, direct []graph.Reference) []string {
	var warnings []string

	sym := a.lookup(id)
	if sym != nil && sym.IsPublicOrGlobal() {
		warnings = append(warnings,
			fmt.Sprintf("%s is %s: external callers may exist beyond the indexed graph", sym.Name, sym.Modifiers.Visibility))
	}

	implementers := 0
	subclasses := 0
	for _, ref := range direct {
		switch ref.Type {
		case types.RefInterfaceImpl:
			implementers++
		case types.RefInheritance:
			subclasses++
		}
	}
	if implementers > 0 {
		warnings = append(warnings,
			fmt.Sprintf("%d implementation(s) depend on this contract", implementers))
	}
	if subclasses > 0 {
		warnings = append(warnings,
			fmt.Sprintf("%d subclass(es) inherit this declaration", subclasses))
	}
	if len(direct) > a.policy.BreakingReferrers {
		warnings = append(warnings,
			fmt.Sprintf("referenced from %d sites, above the %d-site warning threshold", len(direct), a.policy.BreakingReferrers))
	}

	return warnings
}

// migrationPath renders an ordered narrative of how to stage the change.
func (a *Analyzer) migrationPath(id types.SymbolID, analysis *Analysis) []string {
	name := fmt.Sprintf("symbol %d", uint64(id))
	if sym := a.lookup(id); sym != nil {
		name = sym.EffectiveFQN()
	}

	path := []string{
		fmt.Sprintf("review the declaration of %s and its tests", name),
	}
	if len(analysis.DirectImpact) > 0 {
		path = append(path, fmt.Sprintf("update %d direct reference site(s)", len(analysis.DirectImpact)))
	}
	if len(analysis.IndirectImpact) > 0 {
		path = append(path, fmt.Sprintf("re-verify %d transitively affected symbol(s) within %d hop(s)", len(analysis.IndirectImpact), a.policy.MaxDepth))
	}
	if len(analysis.BreakingChanges) > 0 {
		path = append(path, "stage the change behind the existing signature until all referrers migrate")
	}
	path = append(path, "recompile affected files and re-run impacted validations")
	return path
}

func (a *Analyzer) lookup(id types.SymbolID) *types.Symbol {
	if a.symbols == nil {
		return nil
	}
	return a.symbols.SymbolByID(id)
}
