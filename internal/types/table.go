package types

import (
	"strings"
)

// ScopeID indexes into a SymbolTable's scope arena. Scope 0 is always the
// file scope.
type ScopeID = uint32

// ScopeNode is one node of a file's scope tree. Nodes are arena-allocated
// inside the owning SymbolTable; Parent is an index, never a pointer, so a
// file removal is a clean arena-slice deletion with no cycles to break.
type ScopeNode struct {
	Name   string `json:"name"` // declaration name owning the scope, "" for the file scope
	Parent uint32 `json:"parent"`
	Depth  int    `json:"depth"`
}

// SymbolTable is the per-file arena of declarations and scopes produced by
// the compiler. It is the authoritative owner of Symbol data; the reference
// graph and registries hold only SymbolIDs into it.
type SymbolTable struct {
	FileID    FileID      `json:"file_id"`
	Namespace string      `json:"namespace,omitempty"`
	Symbols   []Symbol    `json:"symbols"`
	Scopes    []ScopeNode `json:"scopes"`

	// References discovered while compiling this file. Targets may live in
	// files that have not been compiled yet.
	References []RawReference `json:"references,omitempty"`

	// Import statements in source order, as written (e.g. "System.Database",
	// "MyApp.*").
	Imports []string `json:"imports,omitempty"`

	byName map[string][]int // lower(name) -> symbol arena indices, built lazily
}

// NewSymbolTable creates an empty symbol table for a file. The file scope
// is pre-allocated at index 0.
func NewSymbolTable(fileID FileID) *SymbolTable {
	return &SymbolTable{
		FileID: fileID,
		Scopes: []ScopeNode{{Name: "", Parent: 0, Depth: 0}},
	}
}

// AddScope appends a scope under parent and returns its index.
func (st *SymbolTable) AddScope(parent ScopeID, name string) ScopeID {
	depth := 0
	if int(parent) < len(st.Scopes) {
		depth = st.Scopes[parent].Depth + 1
	}
	st.Scopes = append(st.Scopes, ScopeNode{Name: name, Parent: parent, Depth: depth})
	return ScopeID(len(st.Scopes) - 1)
}

// ScopePath returns the dot-joined path of scope names from the file scope
// down to the given scope. The file scope contributes nothing, so a method
// `run` inside class `Foo` has scope path "Foo".
func (st *SymbolTable) ScopePath(scope ScopeID) string {
	if int(scope) >= len(st.Scopes) {
		return ""
	}
	var parts []string
	for scope != 0 {
		node := st.Scopes[scope]
		if node.Name != "" {
			parts = append(parts, node.Name)
		}
		if node.Parent == scope {
			break
		}
		scope = node.Parent
	}
	// Reverse into declaration order
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// AddSymbol appends a declaration, assigning its deterministic ID from the
// (file, scope path, name) triple. It returns a pointer into the arena that
// is only valid until the next append.
func (st *SymbolTable) AddSymbol(sym Symbol) *Symbol {
	sym.FileID = st.FileID
	if sym.Namespace == "" {
		sym.Namespace = st.Namespace
	}
	if sym.ID == InvalidSymbolID {
		sym.ID = ComputeSymbolID(st.FileID, st.ScopePath(sym.ScopeID), sym.Name)
	}
	if sym.FQN == "" {
		sym.FQN = st.buildFQN(&sym)
	}
	st.Symbols = append(st.Symbols, sym)
	st.byName = nil // invalidate lazy index
	return &st.Symbols[len(st.Symbols)-1]
}

// buildFQN composes namespace + enclosing scope path + name.
func (st *SymbolTable) buildFQN(sym *Symbol) string {
	parts := make([]string, 0, 3)
	if sym.Namespace != "" {
		parts = append(parts, sym.Namespace)
	}
	if path := st.ScopePath(sym.ScopeID); path != "" {
		parts = append(parts, path)
	}
	parts = append(parts, sym.Name)
	return strings.Join(parts, ".")
}

// SymbolByID finds a declaration by ID, nil when absent.
func (st *SymbolTable) SymbolByID(id SymbolID) *Symbol {
	for i := range st.Symbols {
		if st.Symbols[i].ID == id {
			return &st.Symbols[i]
		}
	}
	return nil
}

// LookupName returns all declarations matching name, case-insensitively.
func (st *SymbolTable) LookupName(name string) []*Symbol {
	if st.byName == nil {
		st.byName = make(map[string][]int, len(st.Symbols))
		for i := range st.Symbols {
			key := strings.ToLower(st.Symbols[i].Name)
			st.byName[key] = append(st.byName[key], i)
		}
	}
	indices := st.byName[strings.ToLower(name)]
	if len(indices) == 0 {
		return nil
	}
	out := make([]*Symbol, 0, len(indices))
	for _, i := range indices {
		out = append(out, &st.Symbols[i])
	}
	return out
}

// TopLevelTypes returns the class/interface/enum declarations at file scope.
func (st *SymbolTable) TopLevelTypes() []*Symbol {
	var out []*Symbol
	for i := range st.Symbols {
		sym := &st.Symbols[i]
		if sym.Kind.IsType() && sym.ScopeID == 0 {
			out = append(out, sym)
		}
	}
	return out
}
