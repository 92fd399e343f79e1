package registry

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/standardbeagle/sge/internal/types"
)

// TypeRegistryEntry describes one registered top-level type. Keys are
// lowercase-normalized; the entry keeps the declared casing for display.
type TypeRegistryEntry struct {
	FQN        string           `json:"fqn"`  // lowercase-normalized fully qualified name
	Name       string           `json:"name"` // simple name as declared
	Namespace  string           `json:"namespace,omitempty"`
	Kind       types.SymbolKind `json:"kind"`
	SymbolID   types.SymbolID   `json:"symbol_id"`
	FileID     types.FileID     `json:"file_id"`
	IsBuiltIn  bool             `json:"is_built_in,omitempty"`
	DisplayFQN string           `json:"display_fqn"` // FQN as declared
}

// ResolveOptions steer simple-name disambiguation
type ResolveOptions struct {
	CurrentNamespace    string   // namespace of the resolution site
	PreferredNamespaces []string // configured priority list, tried in order
}

// Stats reports registry counters
type Stats struct {
	Types     int     `json:"types"`
	Lookups   int64   `json:"lookups"`
	Hits      int64   `json:"hits"`
	HitRate   float64 `json:"hit_rate"`
	BuiltIns  int     `json:"built_ins"`
	UserTypes int     `json:"user_types"`
}

// GlobalTypeRegistry is the namespace-aware O(1) lookup table for top-level
// types. It exists so type-only resolution never scans the full symbol set.
// Only class/interface/enum kinds are admitted; everything else is the
// reference graph's business.
type GlobalTypeRegistry struct {
	mu sync.RWMutex

	byFQN       map[string]*TypeRegistryEntry // lower(FQN) -> entry
	byName      map[string][]string           // lower(simple name) -> sorted lower FQNs
	byNamespace map[string][]string           // lower(namespace) -> sorted lower FQNs
	byFile      map[types.FileID][]string     // owning file -> lower FQNs, for removal

	lookups int64
	hits    int64
}

// NewGlobalTypeRegistry creates an empty registry
func NewGlobalTypeRegistry() *GlobalTypeRegistry {
	return &GlobalTypeRegistry{
		byFQN:       make(map[string]*TypeRegistryEntry),
		byName:      make(map[string][]string),
		byNamespace: make(map[string][]string),
		byFile:      make(map[types.FileID][]string),
	}
}

// RegisterType admits a top-level type declaration. Non-type kinds are
// ignored. Registering an FQN that already exists replaces the entry
// (recompile of the owning file).
func (r *GlobalTypeRegistry) RegisterType(sym *types.Symbol) bool {
	if sym == nil || !sym.Kind.IsType() {
		return false
	}

	displayFQN := sym.EffectiveFQN()
	key := strings.ToLower(displayFQN)

	entry := &TypeRegistryEntry{
		FQN:        key,
		Name:       sym.Name,
		Namespace:  sym.Namespace,
		Kind:       sym.Kind,
		SymbolID:   sym.ID,
		FileID:     sym.FileID,
		IsBuiltIn:  sym.Modifiers.IsBuiltIn,
		DisplayFQN: displayFQN,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.byFQN[key]; exists {
		// Same FQN re-registered: replace in place, indexes already hold the key.
		if old.FileID != entry.FileID {
			r.byFile[old.FileID] = removeString(r.byFile[old.FileID], key)
			r.byFile[entry.FileID] = append(r.byFile[entry.FileID], key)
		}
		r.byFQN[key] = entry
		return true
	}

	r.byFQN[key] = entry
	insertSorted(&r.byName, strings.ToLower(sym.Name), key)
	insertSorted(&r.byNamespace, strings.ToLower(sym.Namespace), key)
	r.byFile[sym.FileID] = append(r.byFile[sym.FileID], key)
	return true
}

// insertSorted adds key to index[bucket] keeping the slice sorted, which
// makes candidate enumeration deterministic regardless of insertion order.
func insertSorted(index *map[string][]string, bucket, key string) {
	list := (*index)[bucket]
	pos := sort.SearchStrings(list, key)
	if pos < len(list) && list[pos] == key {
		return
	}
	list = append(list, "")
	copy(list[pos+1:], list[pos:])
	list[pos] = key
	(*index)[bucket] = list
}

func removeString(list []string, key string) []string {
	kept := list[:0]
	for _, s := range list {
		if s != key {
			kept = append(kept, s)
		}
	}
	return kept
}

// RemoveFile drops every type registered from the file.
func (r *GlobalTypeRegistry) RemoveFile(fileID types.FileID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.byFile[fileID]
	delete(r.byFile, fileID)
	for _, key := range keys {
		entry, exists := r.byFQN[key]
		if !exists {
			continue
		}
		delete(r.byFQN, key)
		nameKey := strings.ToLower(entry.Name)
		r.byName[nameKey] = removeString(r.byName[nameKey], key)
		if len(r.byName[nameKey]) == 0 {
			delete(r.byName, nameKey)
		}
		nsKey := strings.ToLower(entry.Namespace)
		r.byNamespace[nsKey] = removeString(r.byNamespace[nsKey], key)
		if len(r.byNamespace[nsKey]) == 0 {
			delete(r.byNamespace, nsKey)
		}
	}
}

// GetType looks up an exact FQN, case-insensitively.
func (r *GlobalTypeRegistry) GetType(fqn string) *TypeRegistryEntry {
	atomic.AddInt64(&r.lookups, 1)

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.byFQN[strings.ToLower(fqn)]
	if exists {
		atomic.AddInt64(&r.hits, 1)
		return entry
	}
	return nil
}

// HasType reports whether an exact FQN is registered.
func (r *GlobalTypeRegistry) HasType(fqn string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.byFQN[strings.ToLower(fqn)]
	return exists
}

// ResolveType resolves a type name to an entry:
//
//  1. A qualified name (contains '.') resolves by direct FQN lookup,
//     unambiguous by construction.
//  2. Otherwise all FQNs sharing the simple name are candidates.
//  3. Zero candidates → nil; one candidate resolves trivially.
//  4. Multiple candidates are tried against the current namespace, then the
//     preferred-namespace list, in order; the first FQN match wins.
//  5. Failing all priorities the first candidate in lexicographic FQN order
//     is returned — resolution always produces a value when any candidate
//     exists; whether it is the right one is the caller's concern.
func (r *GlobalTypeRegistry) ResolveType(name string, opts ResolveOptions) *TypeRegistryEntry {
	atomic.AddInt64(&r.lookups, 1)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if strings.Contains(name, ".") {
		if entry, exists := r.byFQN[strings.ToLower(name)]; exists {
			atomic.AddInt64(&r.hits, 1)
			return entry
		}
		return nil
	}

	candidates := r.byName[strings.ToLower(name)]
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		atomic.AddInt64(&r.hits, 1)
		return r.byFQN[candidates[0]]
	}

	lowerName := strings.ToLower(name)
	priorities := make([]string, 0, 1+len(opts.PreferredNamespaces))
	if opts.CurrentNamespace != "" {
		priorities = append(priorities, opts.CurrentNamespace)
	}
	priorities = append(priorities, opts.PreferredNamespaces...)

	for _, ns := range priorities {
		want := strings.ToLower(ns) + "." + lowerName
		for _, key := range candidates {
			if key == want {
				atomic.AddInt64(&r.hits, 1)
				return r.byFQN[key]
			}
		}
	}

	// Stable fallback: candidates are kept sorted, so candidates[0] is the
	// lexicographically first FQN.
	atomic.AddInt64(&r.hits, 1)
	return r.byFQN[candidates[0]]
}

// CandidateFQNs returns all display FQNs sharing a simple name, sorted.
func (r *GlobalTypeRegistry) CandidateFQNs(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := r.byName[strings.ToLower(name)]
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if entry, exists := r.byFQN[key]; exists {
			out = append(out, entry.DisplayFQN)
		}
	}
	return out
}

// GetTypesInNamespace returns every entry in the namespace, sorted by FQN.
func (r *GlobalTypeRegistry) GetTypesInNamespace(namespace string) []*TypeRegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := r.byNamespace[strings.ToLower(namespace)]
	out := make([]*TypeRegistryEntry, 0, len(keys))
	for _, key := range keys {
		if entry, exists := r.byFQN[key]; exists {
			out = append(out, entry)
		}
	}
	return out
}

// Stats returns a counter snapshot including the lookup hit rate.
func (r *GlobalTypeRegistry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	builtIns := 0
	for _, entry := range r.byFQN {
		if entry.IsBuiltIn {
			builtIns++
		}
	}

	lookups := atomic.LoadInt64(&r.lookups)
	hits := atomic.LoadInt64(&r.hits)
	rate := 0.0
	if lookups > 0 {
		rate = float64(hits) / float64(lookups)
	}

	return Stats{
		Types:     len(r.byFQN),
		Lookups:   lookups,
		Hits:      hits,
		HitRate:   rate,
		BuiltIns:  builtIns,
		UserTypes: len(r.byFQN) - builtIns,
	}
}
