// Package analysis computes best-effort software metrics for symbols from
// the reference graph. Everything here is diagnostic: the numbers guide
// refactoring decisions but carry no protocol meaning.
package analysis

import (
	"sort"
	"strings"
	"unicode"

	"github.com/surgebase/porter2"

	"github.com/standardbeagle/sge/internal/graph"
	"github.com/standardbeagle/sge/internal/types"
)

// LifecycleStage classifies where a symbol sits in its maintenance life.
type LifecycleStage string

const (
	StageActive       LifecycleStage = "active"
	StageExperimental LifecycleStage = "experimental"
	StageDeprecated   LifecycleStage = "deprecated"
	StageLegacy       LifecycleStage = "legacy"
)

// SymbolMetrics represents derived metrics calculated for a single symbol
type SymbolMetrics struct {
	SymbolID types.SymbolID `json:"symbol_id"`

	// Core metrics
	Complexity       float64 `json:"complexity"`        // approximate cyclomatic complexity
	InheritanceDepth int     `json:"inheritance_depth"` // hops to the root of the extends chain
	ReferenceCount   int     `json:"reference_count"`   // incoming + outgoing

	// Coupling (classic afferent/efferent with an instability score)
	AfferentCoupling int     `json:"afferent_coupling"` // distinct files that depend on this symbol
	EfferentCoupling int     `json:"efferent_coupling"` // distinct files this symbol depends on
	Instability      float64 `json:"instability"`       // Ce / (Ca + Ce), 0 = stable

	// Classification
	Lifecycle LifecycleStage `json:"lifecycle"`
	Tags      []string       `json:"tags"`
}

// SymbolSource supplies symbol data for metric calculation.
type SymbolSource interface {
	SymbolByID(id types.SymbolID) *types.Symbol
}

// Calculator computes SymbolMetrics from the reference graph. It only reads
// the graph, so independent calculations are safe to run concurrently.
type Calculator struct {
	graph   *graph.ReferenceGraph
	symbols SymbolSource

	highUsage       int // incoming count that earns the highly-referenced tag
	maxInheritDepth int // cap on extends-chain walks
}

// NewCalculator creates a metrics calculator over a graph.
func NewCalculator(g *graph.ReferenceGraph, symbols SymbolSource) *Calculator {
	return &Calculator{
		graph:           g,
		symbols:         symbols,
		highUsage:       10,
		maxInheritDepth: 16,
	}
}

// Calculate computes metrics for a single symbol. Unknown symbols yield
// zero-valued metrics with lifecycle "active".
func (c *Calculator) Calculate(id types.SymbolID) *SymbolMetrics {
	m := &SymbolMetrics{
		SymbolID:  id,
		Lifecycle: StageActive,
		Tags:      []string{},
	}

	sym := c.lookup(id)
	incoming := c.graph.FindReferencesTo(id)
	outgoing := c.graph.FindReferencesFrom(id)

	m.ReferenceCount = len(incoming) + len(outgoing)
	m.Complexity = c.approximateComplexity(outgoing)
	m.InheritanceDepth = c.inheritanceDepth(id)
	m.AfferentCoupling, m.EfferentCoupling, m.Instability = c.coupling(incoming, outgoing)
	if sym != nil {
		m.Lifecycle = classifyLifecycle(sym.Name)
	}
	m.Tags = c.generateTags(sym, incoming, outgoing)

	return m
}

// approximateComplexity estimates cyclomatic complexity from the outgoing
// edge profile. With no statement-level data available, each call or query
// site counts as one decision point and the remaining value edges as half.
func (c *Calculator) approximateComplexity(outgoing []graph.Reference) float64 {
	complexity := 1.0
	for _, ref := range outgoing {
		switch ref.Type {
		case types.RefMethodCall, types.RefConstructorCall, types.RefQueryDML:
			complexity += 1.0
		case types.RefInheritance, types.RefInterfaceImpl, types.RefAnnotation:
			// declaration-site edges add no branches
		default:
			complexity += 0.5
		}
	}
	return complexity
}

// inheritanceDepth follows outgoing inheritance edges to the root of the
// extends chain. A visited set guards against malformed cyclic hierarchies
// and depth is capped so a corrupt chain cannot spin.
func (c *Calculator) inheritanceDepth(id types.SymbolID) int {
	depth := 0
	visited := map[types.SymbolID]bool{id: true}
	current := id

	for depth < c.maxInheritDepth {
		next, ok := c.parentOf(current)
		if !ok || visited[next] {
			break
		}
		visited[next] = true
		current = next
		depth++
	}
	return depth
}

func (c *Calculator) parentOf(id types.SymbolID) (types.SymbolID, bool) {
	for _, ref := range c.graph.FindReferencesFrom(id) {
		if ref.Type == types.RefInheritance {
			return ref.SymbolID, true
		}
	}
	return 0, false
}

// coupling counts distinct files on each side of the symbol's edges and
// derives the instability ratio Ce/(Ca+Ce).
func (c *Calculator) coupling(incoming, outgoing []graph.Reference) (ca, ce int, instability float64) {
	ca = c.distinctFiles(incoming)
	ce = c.distinctFiles(outgoing)
	if ca+ce > 0 {
		instability = float64(ce) / float64(ca+ce)
	}
	return ca, ce, instability
}

func (c *Calculator) distinctFiles(refs []graph.Reference) int {
	files := make(map[types.FileID]bool, len(refs))
	for _, ref := range refs {
		if sym := c.lookup(ref.SymbolID); sym != nil {
			files[sym.FileID] = true
		}
	}
	return len(files)
}

// generateTags produces usage and access tags for the symbol.
func (c *Calculator) generateTags(sym *types.Symbol, incoming, outgoing []graph.Reference) []string {
	var tags []string

	if len(incoming) >= c.highUsage {
		tags = append(tags, "highly-referenced")
	}
	if len(incoming) == 0 && len(outgoing) == 0 {
		tags = append(tags, "isolated")
	} else if len(incoming) == 0 && (sym == nil || !sym.IsPublicOrGlobal()) {
		tags = append(tags, "unreferenced")
	}
	if sym != nil {
		if sym.IsPublicOrGlobal() {
			tags = append(tags, "exported")
		}
		if sym.Modifiers.IsStatic {
			tags = append(tags, "static")
		}
		if sym.Kind == types.KindInterface {
			tags = append(tags, "contract")
		}
	}

	sort.Strings(tags)
	return tags
}

func (c *Calculator) lookup(id types.SymbolID) *types.Symbol {
	if c.symbols == nil {
		return nil
	}
	return c.symbols.SymbolByID(id)
}

// lifecycleStems maps porter2-stemmed marker words to a lifecycle stage, so
// "deprecated", "deprecation" and "deprecate" all land on the same key.
var lifecycleStems = func() map[string]LifecycleStage {
	markers := map[string]LifecycleStage{
		"deprecated":   StageDeprecated,
		"obsolete":     StageDeprecated,
		"legacy":       StageLegacy,
		"old":          StageLegacy,
		"archived":     StageLegacy,
		"experimental": StageExperimental,
		"beta":         StageExperimental,
		"prototype":    StageExperimental,
		"draft":        StageExperimental,
		"temp":         StageExperimental,
	}
	stems := make(map[string]LifecycleStage, len(markers))
	for word, stage := range markers {
		stems[porter2.Stem(word)] = stage
	}
	return stems
}()

// classifyLifecycle infers a lifecycle stage from stemmed name tokens.
// Deprecation markers outrank legacy markers, which outrank experimental.
func classifyLifecycle(name string) LifecycleStage {
	stage := StageActive
	for _, token := range splitNameTokens(name) {
		candidate, ok := lifecycleStems[porter2.Stem(token)]
		if !ok {
			continue
		}
		if rankStage(candidate) > rankStage(stage) {
			stage = candidate
		}
	}
	return stage
}

func rankStage(s LifecycleStage) int {
	switch s {
	case StageDeprecated:
		return 3
	case StageLegacy:
		return 2
	case StageExperimental:
		return 1
	default:
		return 0
	}
}

// splitNameTokens breaks an identifier into lowercase words across camelCase
// humps, digits, and separator characters.
func splitNameTokens(name string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	var prev rune
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
		prev = r
	}
	flush()
	return tokens
}
