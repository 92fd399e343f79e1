package types

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FileID identifies a source file by its normalized URI. The engine never
// interprets the URI beyond equality and case folding; path→URI mapping is
// the compiler collaborator's job.
type FileID string

// SymbolID is a stable 64-bit identifier for a declaration. It is derived
// from (owning-file URI, qualified scope path, name), all case-folded, so
// recompiling an unchanged file reproduces identical IDs.
type SymbolID uint64

// InvalidSymbolID is the zero value; no real symbol carries it.
const InvalidSymbolID SymbolID = 0

// ComputeSymbolID derives the deterministic ID for a declaration.
// The same triple always hashes to the same ID across processes and runs.
func ComputeSymbolID(fileID FileID, scopePath, name string) SymbolID {
	var b strings.Builder
	b.Grow(len(fileID) + len(scopePath) + len(name) + 2)
	b.WriteString(string(fileID))
	b.WriteByte('|')
	b.WriteString(scopePath)
	b.WriteByte('|')
	b.WriteString(name)
	return SymbolID(xxhash.Sum64String(strings.ToLower(b.String())))
}

// IsValid reports whether the ID refers to a real symbol.
func (id SymbolID) IsValid() bool {
	return id != InvalidSymbolID
}

// SymbolKind represents the kind of declaration
type SymbolKind int

const (
	KindUnknown SymbolKind = iota
	KindClass
	KindInterface
	KindEnum
	KindMethod
	KindField
	KindProperty
	KindVariable
	KindParameter
	KindTrigger
	KindBlock
)

// symbolKindStrings provides O(1) lookup for symbol kind names
var symbolKindStrings = map[SymbolKind]string{
	KindClass:     "class",
	KindInterface: "interface",
	KindEnum:      "enum",
	KindMethod:    "method",
	KindField:     "field",
	KindProperty:  "property",
	KindVariable:  "variable",
	KindParameter: "parameter",
	KindTrigger:   "trigger",
	KindBlock:     "block",
}

// String returns a string representation of the symbol kind
func (sk SymbolKind) String() string {
	if name, ok := symbolKindStrings[sk]; ok {
		return name
	}
	return "unknown"
}

// ParseSymbolKind parses a string into a SymbolKind
func ParseSymbolKind(s string) SymbolKind {
	for kind, name := range symbolKindStrings {
		if name == s {
			return kind
		}
	}
	return KindUnknown
}

// IsType reports whether the kind is a top-level type kind. Only these
// kinds are admitted to the global type registry.
func (sk SymbolKind) IsType() bool {
	return sk == KindClass || sk == KindInterface || sk == KindEnum
}

// Visibility represents declared access control levels
type Visibility int

const (
	VisibilityDefault Visibility = iota // language default (private)
	VisibilityPrivate
	VisibilityProtected
	VisibilityPublic
	VisibilityGlobal
)

// String returns a string representation of the visibility
func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityProtected:
		return "protected"
	case VisibilityPublic:
		return "public"
	case VisibilityGlobal:
		return "global"
	default:
		return "default"
	}
}

// ParseVisibility parses a string into a Visibility
func ParseVisibility(s string) Visibility {
	switch strings.ToLower(s) {
	case "private":
		return VisibilityPrivate
	case "protected":
		return VisibilityProtected
	case "public":
		return VisibilityPublic
	case "global":
		return VisibilityGlobal
	default:
		return VisibilityDefault
	}
}

// SymbolModifiers is the declared modifier set of a symbol
type SymbolModifiers struct {
	Visibility Visibility `json:"visibility"`
	IsStatic   bool       `json:"is_static,omitempty"`
	IsFinal    bool       `json:"is_final,omitempty"`
	IsAbstract bool       `json:"is_abstract,omitempty"`
	IsVirtual  bool       `json:"is_virtual,omitempty"`
	IsOverride bool       `json:"is_override,omitempty"`
	IsBuiltIn  bool       `json:"is_built_in,omitempty"`
}

// Position is a zero-based line/column location in a file
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a half-open declaration or reference range
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location pairs a file with a range inside it
type Location struct {
	FileID FileID `json:"file_id"`
	Range  Range  `json:"range"`
}

// Symbol represents a single named declaration produced by compiling one
// file. The owning SymbolTable is the authoritative store; everything else
// in the engine refers to symbols by ID only.
type Symbol struct {
	ID        SymbolID        `json:"id"`
	Name      string          `json:"name"`
	Kind      SymbolKind      `json:"kind"`
	Range     Range           `json:"range"`
	FileID    FileID          `json:"file_id"`
	Namespace string          `json:"namespace,omitempty"`
	FQN       string          `json:"fqn,omitempty"`
	Modifiers SymbolModifiers `json:"modifiers"`

	// Arena cross-references: IDs and indices, never pointers.
	ParentID SymbolID `json:"parent_id,omitempty"` // enclosing declaration, 0 = none
	ScopeID  uint32   `json:"scope_id"`            // index into the owning table's scope arena

	// Declared type information, best-effort from the compiler.
	TypeName       string   `json:"type_name,omitempty"`       // field/property/variable type, method return type
	ParameterTypes []string `json:"parameter_types,omitempty"` // methods and constructors only
}

// EffectiveFQN returns the symbol's fully qualified name, falling back to
// namespace + name when the compiler did not supply one.
func (s *Symbol) EffectiveFQN() string {
	if s.FQN != "" {
		return s.FQN
	}
	if s.Namespace != "" {
		return s.Namespace + "." + s.Name
	}
	return s.Name
}

// IsPublicOrGlobal reports whether the symbol is visible outside its type.
func (s *Symbol) IsPublicOrGlobal() bool {
	return s.Modifiers.Visibility == VisibilityPublic || s.Modifiers.Visibility == VisibilityGlobal
}
