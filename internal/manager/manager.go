// Package manager is the facade over the symbol graph engine. It owns the
// per-file symbol tables, wires the reference graph, type registry,
// resolution engine, and impact analyzer together, and memoizes the
// expensive queries. One Manager serves one workspace; embedders construct
// and dispose instances explicitly, there is no process-wide singleton.
package manager

import (
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/sge/internal/analysis"
	"github.com/standardbeagle/sge/internal/config"
	"github.com/standardbeagle/sge/internal/graph"
	"github.com/standardbeagle/sge/internal/impact"
	"github.com/standardbeagle/sge/internal/registry"
	"github.com/standardbeagle/sge/internal/resolve"
	"github.com/standardbeagle/sge/internal/sgerrors"
	"github.com/standardbeagle/sge/internal/types"
)

// relKey addresses one relationship-cache entry. RefType RefUnknown means
// "all types".
type relKey struct {
	ID       types.SymbolID
	Incoming bool
	RefType  types.ReferenceType
}

// Stats aggregates engine-wide counters
type Stats struct {
	Files    int            `json:"files"`
	Symbols  int            `json:"symbols"`
	Graph    graph.Stats    `json:"graph"`
	Registry registry.Stats `json:"registry"`

	RelationshipCacheEntries int `json:"relationship_cache_entries"`
	MetricsCacheEntries      int `json:"metrics_cache_entries"`
	DependencyCacheEntries   int `json:"dependency_cache_entries"`
}

// Manager composes the engine components behind the LSP-facing API. All
// caches here are strictly derived: clearing them changes latency, never
// results.
type Manager struct {
	graph    *graph.ReferenceGraph
	registry *registry.GlobalTypeRegistry
	engine   *resolve.Engine
	analyzer *impact.Analyzer
	metrics  *analysis.Calculator

	preferredNamespaces []string

	mu     sync.RWMutex
	tables map[types.FileID]*types.SymbolTable
	byName map[string][]types.SymbolID // lower(simple name) -> IDs, sorted
	byFQN  map[string]types.SymbolID   // lower(FQN) -> ID
	byID   map[types.SymbolID]types.FileID

	relCache     map[relKey][]graph.Reference
	metricsCache map[types.SymbolID]*analysis.SymbolMetrics
	depCache     map[types.SymbolID]graph.DependencyAnalysis
	cycles       []graph.Cycle
	cyclesValid  bool

	closed bool
}

// New creates a manager from configuration. A nil config means defaults.
func New(cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}

	g := graph.NewReferenceGraph(graph.WithDeferredCap(cfg.Graph.DeferredCap))
	m := &Manager{
		graph:               g,
		registry:            registry.NewGlobalTypeRegistry(),
		engine:              resolve.NewEngine(),
		preferredNamespaces: cfg.Resolver.PreferredNamespaces,
		tables:              make(map[types.FileID]*types.SymbolTable),
		byName:              make(map[string][]types.SymbolID),
		byFQN:               make(map[string]types.SymbolID),
		byID:                make(map[types.SymbolID]types.FileID),
		relCache:            make(map[relKey][]graph.Reference),
		metricsCache:        make(map[types.SymbolID]*analysis.SymbolMetrics),
		depCache:            make(map[types.SymbolID]graph.DependencyAnalysis),
	}
	m.analyzer = impact.NewAnalyzer(g, m, impact.Policy{
		MaxDepth:          cfg.Impact.MaxDepth,
		LowRiskThreshold:  cfg.Impact.LowRiskThreshold,
		MedRiskThreshold:  cfg.Impact.MedRiskThreshold,
		BreakingReferrers: cfg.Impact.BreakingReferrers,
	})
	m.metrics = analysis.NewCalculator(g, m)
	return m
}

// Close releases the manager. Queries after Close return empty results.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables = make(map[types.FileID]*types.SymbolTable)
	m.byName = make(map[string][]types.SymbolID)
	m.byFQN = make(map[string]types.SymbolID)
	m.byID = make(map[types.SymbolID]types.FileID)
	m.clearCachesLocked()
	m.closed = true
	return nil
}

// AddSymbolTable registers a compiled file: every symbol goes to the
// reference graph, top-level types additionally to the type registry, and
// the file's discovered references become edges (deferred when the target
// is not registered yet). Re-adding a file replaces its previous table.
func (m *Manager) AddSymbolTable(table *types.SymbolTable) error {
	if table == nil {
		return sgerrors.NewContractError("AddSymbolTable", "nil symbol table", nil)
	}
	if table.FileID == "" {
		return sgerrors.NewContractError("AddSymbolTable", "symbol table without a file ID", nil)
	}
	for i := range table.Symbols {
		sym := &table.Symbols[i]
		if int(sym.ScopeID) >= len(table.Scopes) {
			return sgerrors.NewContractError("AddSymbolTable",
				"symbol scope index exceeds the scope arena", nil).WithFile(table.FileID)
		}
		if sym.ID == types.InvalidSymbolID {
			return sgerrors.NewContractError("AddSymbolTable",
				"symbol without an identity: "+sym.Name, nil).WithFile(table.FileID)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return sgerrors.NewContractError("AddSymbolTable", "manager is closed", nil)
	}

	if _, exists := m.tables[table.FileID]; exists {
		m.removeFileLocked(table.FileID)
	}

	m.tables[table.FileID] = table
	var promoted []types.SymbolID
	for i := range table.Symbols {
		sym := &table.Symbols[i]
		promoted = append(promoted, m.graph.AddSymbol(sym, table.FileID)...)
		m.indexSymbolLocked(sym)
	}
	for _, sym := range table.TopLevelTypes() {
		m.registry.RegisterType(sym)
	}
	for _, ref := range table.References {
		m.graph.AddReference(ref.SourceID, ref.TargetID, ref.Type, ref.Location)
	}

	m.invalidateForTableLocked(table, promoted)
	return nil
}

// RemoveFile purges a file's symbols from every component. Files that were
// never added are tolerated.
func (m *Manager) RemoveFile(fileID types.FileID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeFileLocked(fileID)
}

func (m *Manager) removeFileLocked(fileID types.FileID) {
	if table, ok := m.tables[fileID]; ok {
		for i := range table.Symbols {
			m.unindexSymbolLocked(&table.Symbols[i])
		}
		delete(m.tables, fileID)
	}
	m.graph.RemoveFile(fileID)
	m.registry.RemoveFile(fileID)

	// File-level mutation: everything derived is suspect.
	m.clearCachesLocked()
}

func (m *Manager) indexSymbolLocked(sym *types.Symbol) {
	nameKey := strings.ToLower(sym.Name)
	ids := m.byName[nameKey]
	pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= sym.ID })
	if pos == len(ids) || ids[pos] != sym.ID {
		ids = append(ids, 0)
		copy(ids[pos+1:], ids[pos:])
		ids[pos] = sym.ID
		m.byName[nameKey] = ids
	}
	m.byFQN[strings.ToLower(sym.EffectiveFQN())] = sym.ID
	m.byID[sym.ID] = sym.FileID
}

func (m *Manager) unindexSymbolLocked(sym *types.Symbol) {
	nameKey := strings.ToLower(sym.Name)
	ids := m.byName[nameKey]
	for i, id := range ids {
		if id == sym.ID {
			m.byName[nameKey] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.byName[nameKey]) == 0 {
		delete(m.byName, nameKey)
	}
	fqnKey := strings.ToLower(sym.EffectiveFQN())
	if m.byFQN[fqnKey] == sym.ID {
		delete(m.byFQN, fqnKey)
	}
	delete(m.byID, sym.ID)
}

// invalidateForTableLocked drops cache entries touched by the table's
// symbols, by either endpoint of its references, or by the sources of
// edges promoted out of the deferred store (those sources live in files
// added earlier, so the table alone does not name them). Whole-graph
// results are always invalidated by a mutation.
func (m *Manager) invalidateForTableLocked(table *types.SymbolTable, promoted []types.SymbolID) {
	affected := make(map[types.SymbolID]bool, len(table.Symbols)+len(table.References)+len(promoted))
	for i := range table.Symbols {
		affected[table.Symbols[i].ID] = true
	}
	for _, ref := range table.References {
		affected[ref.SourceID] = true
		affected[ref.TargetID] = true
	}
	for _, id := range promoted {
		affected[id] = true
	}
	m.invalidateSymbolsLocked(affected)
}

func (m *Manager) invalidateSymbolsLocked(affected map[types.SymbolID]bool) {
	for key := range m.relCache {
		if affected[key.ID] {
			delete(m.relCache, key)
		}
	}
	for id := range m.metricsCache {
		if affected[id] {
			delete(m.metricsCache, id)
		}
	}
	for id := range m.depCache {
		if affected[id] {
			delete(m.depCache, id)
		}
	}
	m.cycles = nil
	m.cyclesValid = false
}

func (m *Manager) clearCachesLocked() {
	m.relCache = make(map[relKey][]graph.Reference)
	m.metricsCache = make(map[types.SymbolID]*analysis.SymbolMetrics)
	m.depCache = make(map[types.SymbolID]graph.DependencyAnalysis)
	m.cycles = nil
	m.cyclesValid = false
}

// SymbolByID returns the authoritative symbol data, nil when unknown.
func (m *Manager) SymbolByID(id types.SymbolID) *types.Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.symbolByIDLocked(id)
}

func (m *Manager) symbolByIDLocked(id types.SymbolID) *types.Symbol {
	fileID, ok := m.byID[id]
	if !ok {
		return nil
	}
	table, ok := m.tables[fileID]
	if !ok {
		return nil
	}
	return table.SymbolByID(id)
}

// FindSymbolByName returns every symbol matching the name, case-insensitive,
// in ascending ID order. Unknown names return an empty slice.
func (m *Manager) FindSymbolByName(name string) []*types.Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byName[strings.ToLower(name)]
	out := make([]*types.Symbol, 0, len(ids))
	for _, id := range ids {
		if sym := m.symbolByIDLocked(id); sym != nil {
			out = append(out, sym)
		}
	}
	return out
}

// SuggestNames offers "did you mean" candidates for a name that found
// nothing, ranked by Jaro-Winkler similarity.
func (m *Manager) SuggestNames(name string, max int) []string {
	const minSimilarity = 0.84

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		name  string
		score float32
	}
	var candidates []scored
	query := strings.ToLower(name)
	for key, ids := range m.byName {
		score, err := edlib.StringsSimilarity(query, key, edlib.JaroWinkler)
		if err != nil || score < minSimilarity {
			continue
		}
		display := key
		if sym := m.symbolByIDLocked(ids[0]); sym != nil {
			display = sym.Name
		}
		candidates = append(candidates, scored{name: display, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})

	out := make([]string, 0, max)
	for _, c := range candidates {
		if len(out) == max {
			break
		}
		out = append(out, c.name)
	}
	return out
}

// FindSymbolByFQN looks a symbol up by fully qualified name,
// case-insensitive. Nil when unknown.
func (m *Manager) FindSymbolByFQN(fqn string) *types.Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byFQN[strings.ToLower(fqn)]
	if !ok {
		return nil
	}
	return m.symbolByIDLocked(id)
}

// FindSymbolsInFile returns a file's declarations in table order. Files
// never added return an empty slice.
func (m *Manager) FindSymbolsInFile(fileID types.FileID) []*types.Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, ok := m.tables[fileID]
	if !ok {
		return []*types.Symbol{}
	}
	out := make([]*types.Symbol, 0, len(table.Symbols))
	for i := range table.Symbols {
		out = append(out, &table.Symbols[i])
	}
	return out
}

// ResolveSymbol disambiguates a name against the indexed workspace. A
// qualified name short-circuits to the FQN index; otherwise all symbols
// sharing the simple name become candidates for the scoring engine.
func (m *Manager) ResolveSymbol(name string, ctx *resolve.Context) resolve.Resolution {
	var candidates []*types.Symbol

	if strings.Contains(name, ".") {
		if sym := m.FindSymbolByFQN(name); sym != nil {
			candidates = []*types.Symbol{sym}
		}
	} else {
		candidates = m.FindSymbolByName(name)
	}

	return m.engine.Resolve(name, candidates, ctx)
}

// ResolveType answers type-only queries through the registry's O(1) path,
// applying the configured preferred-namespace list.
func (m *Manager) ResolveType(name, currentNamespace string) *registry.TypeRegistryEntry {
	return m.registry.ResolveType(name, registry.ResolveOptions{
		CurrentNamespace:    currentNamespace,
		PreferredNamespaces: m.preferredNamespaces,
	})
}

// FindReferencesTo returns incoming references, memoized.
func (m *Manager) FindReferencesTo(id types.SymbolID) []graph.Reference {
	return m.references(id, true, types.RefUnknown)
}

// FindReferencesFrom returns outgoing references, memoized.
func (m *Manager) FindReferencesFrom(id types.SymbolID) []graph.Reference {
	return m.references(id, false, types.RefUnknown)
}

// FindRelated returns references of one relationship type in the requested
// direction, memoized separately from the unfiltered queries.
func (m *Manager) FindRelated(id types.SymbolID, refType types.ReferenceType, incoming bool) []graph.Reference {
	return m.references(id, incoming, refType)
}

func (m *Manager) references(id types.SymbolID, incoming bool, refType types.ReferenceType) []graph.Reference {
	key := relKey{ID: id, Incoming: incoming, RefType: refType}

	m.mu.RLock()
	cached, ok := m.relCache[key]
	m.mu.RUnlock()
	if ok {
		return cached
	}

	var refs []graph.Reference
	if incoming {
		refs = m.graph.FindReferencesTo(id)
	} else {
		refs = m.graph.FindReferencesFrom(id)
	}
	if refType != types.RefUnknown {
		filtered := refs[:0:0]
		for _, ref := range refs {
			if ref.Type == refType {
				filtered = append(filtered, ref)
			}
		}
		refs = filtered
	}

	m.mu.Lock()
	m.relCache[key] = refs
	m.mu.Unlock()
	return refs
}

// AnalyzeDependencies reports a symbol's direct dependencies, direct
// dependents, and a local circularity flag, memoized.
func (m *Manager) AnalyzeDependencies(id types.SymbolID) graph.DependencyAnalysis {
	m.mu.RLock()
	cached, ok := m.depCache[id]
	m.mu.RUnlock()
	if ok {
		return cached
	}

	result := m.graph.AnalyzeDependencies(id)

	m.mu.Lock()
	m.depCache[id] = result
	m.mu.Unlock()
	return result
}

// DetectCircularDependencies finds every elementary cycle, memoized until
// the next mutation.
func (m *Manager) DetectCircularDependencies() []graph.Cycle {
	m.mu.RLock()
	if m.cyclesValid {
		cycles := m.cycles
		m.mu.RUnlock()
		return cycles
	}
	m.mu.RUnlock()

	cycles := m.graph.DetectCircularDependencies()

	m.mu.Lock()
	m.cycles = cycles
	m.cyclesValid = true
	m.mu.Unlock()
	return cycles
}

// GetImpactAnalysis reports the blast radius of changing a symbol.
func (m *Manager) GetImpactAnalysis(id types.SymbolID) impact.Analysis {
	return m.analyzer.Analyze(id)
}

// GetMetrics computes derived metrics for a symbol, memoized.
func (m *Manager) GetMetrics(id types.SymbolID) *analysis.SymbolMetrics {
	m.mu.RLock()
	cached, ok := m.metricsCache[id]
	m.mu.RUnlock()
	if ok {
		return cached
	}

	result := m.metrics.Calculate(id)

	m.mu.Lock()
	m.metricsCache[id] = result
	m.mu.Unlock()
	return result
}

// GetStats aggregates counters across all components.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	symbols := 0
	for _, table := range m.tables {
		symbols += len(table.Symbols)
	}

	return Stats{
		Files:    len(m.tables),
		Symbols:  symbols,
		Graph:    m.graph.Stats(),
		Registry: m.registry.Stats(),

		RelationshipCacheEntries: len(m.relCache),
		MetricsCacheEntries:      len(m.metricsCache),
		DependencyCacheEntries:   len(m.depCache),
	}
}
