package resolve

import (
	"github.com/standardbeagle/sge/internal/types"
)

// Context carries the resolution site's surroundings. It is built per query
// and never persisted.
type Context struct {
	SourceFile     types.FileID   `json:"source_file,omitempty"`
	SourceSymbolID types.SymbolID `json:"source_symbol_id,omitempty"`

	// Import statements visible at the site, as written ("System.Database",
	// "Sales.*").
	Imports []string `json:"imports,omitempty"`

	// Namespace of the site's compilation unit.
	Namespace string `json:"namespace,omitempty"`

	// Enclosing scope names, innermost first.
	ScopeChain []string `json:"scope_chain,omitempty"`

	// Type expectations, best-effort from the compiler.
	ExpectedType   string   `json:"expected_type,omitempty"`
	ParameterTypes []string `json:"parameter_types,omitempty"`
	ReturnType     string   `json:"return_type,omitempty"`

	// Access context of the site.
	AccessModifier types.Visibility `json:"access_modifier,omitempty"`
	IsStatic       bool             `json:"is_static,omitempty"`

	// The kind of reference being resolved, when known.
	RelationshipType types.ReferenceType `json:"relationship_type,omitempty"`

	// Supertypes of the site's enclosing type, nearest first.
	InheritanceChain []string `json:"inheritance_chain,omitempty"`
}

// ScoredCandidate is one candidate with its total score and the per-signal
// contributions that produced it, for diagnostics.
type ScoredCandidate struct {
	Symbol    *types.Symbol      `json:"symbol"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// Resolution is the outcome of a disambiguation query. Ambiguity is a
// first-class result, not an error: callers decide whether to surface a
// pick-list or accept the best guess.
type Resolution struct {
	Symbol      *types.Symbol     `json:"symbol,omitempty"`
	Confidence  float64           `json:"confidence"`
	IsAmbiguous bool              `json:"is_ambiguous"`
	Candidates  []ScoredCandidate `json:"candidates,omitempty"`
	Explanation string            `json:"explanation"`
}
