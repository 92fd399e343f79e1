// Package stdlib loads the bundled standard-library symbol tables. Tables
// ship as gzip-compressed JSON, one file per built-in type, laid out as
// <Namespace>/<Type>.symbols.json.gz under the library root. Namespaces
// load lazily: nothing is decoded until a namespace is first requested.
package stdlib

import (
	"compress/gzip"
	"encoding/json"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/sge/internal/sgerrors"
	"github.com/standardbeagle/sge/internal/types"
)

// fileIDPrefix marks built-in tables so they can never collide with
// workspace files.
const fileIDPrefix = "sge://lib/"

// TableSink receives decoded tables; the symbol manager implements it.
type TableSink interface {
	AddSymbolTable(table *types.SymbolTable) error
}

// Loader reads library tables from an fs.FS. The FS root must be the
// library root itself: the first path segment of every table is taken as
// its namespace, so a bundle's container directory has to be stripped with
// fs.Sub before construction (see NewLoaderAt).
type Loader struct {
	fsys    fs.FS
	include []string
	sink    TableSink

	mu     sync.Mutex
	loaded map[string]bool // lowercased namespace -> already fed to the sink
}

// NewLoader creates a loader over a library root.
func NewLoader(fsys fs.FS, include []string, sink TableSink) *Loader {
	if len(include) == 0 {
		include = []string{"**/*.symbols.json.gz"}
	}
	return &Loader{
		fsys:    fsys,
		include: include,
		sink:    sink,
		loaded:  make(map[string]bool),
	}
}

// NewLoaderAt creates a loader rooted at dir inside fsys, for bundles that
// wrap the library in a container directory.
func NewLoaderAt(fsys fs.FS, dir string, include []string, sink TableSink) (*Loader, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, sgerrors.NewFileError("open", dir, err)
	}
	return NewLoader(sub, include, sink), nil
}

// Namespaces lists the namespaces available in the bundle, sorted.
func (l *Loader) Namespaces() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, sgerrors.NewFileError("readdir", ".", err)
	}

	var namespaces []string
	for _, entry := range entries {
		if entry.IsDir() {
			namespaces = append(namespaces, entry.Name())
		}
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

// LoadNamespace decodes every matching table under the namespace directory
// and feeds it to the sink. Repeated calls are no-ops; the count of newly
// loaded tables is returned.
func (l *Loader) LoadNamespace(namespace string) (int, error) {
	key := strings.ToLower(namespace)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded[key] {
		return 0, nil
	}

	count, err := l.loadDirLocked(namespace)
	if err != nil {
		return count, err
	}
	l.loaded[key] = true
	return count, nil
}

// LoadAll loads every namespace in the bundle.
func (l *Loader) LoadAll() (int, error) {
	namespaces, err := l.Namespaces()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, ns := range namespaces {
		n, err := l.LoadNamespace(ns)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (l *Loader) loadDirLocked(namespace string) (int, error) {
	count := 0
	err := fs.WalkDir(l.fsys, namespace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return sgerrors.NewFileError("walk", path, err)
		}
		if d.IsDir() || !l.matches(path) {
			return nil
		}

		table, err := l.decodeTable(path)
		if err != nil {
			return err
		}
		if err := l.sink.AddSymbolTable(table); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func (l *Loader) matches(path string) bool {
	for _, pattern := range l.include {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// decodeTable reads one gzip JSON table. The namespace and file identity
// are derived from the bundle path, overriding whatever the payload claims,
// and every symbol ID is recomputed so built-in identities stay stable
// across bundle versions.
func (l *Loader) decodeTable(path string) (*types.SymbolTable, error) {
	f, err := l.fsys.Open(path)
	if err != nil {
		return nil, sgerrors.NewFileError("open", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, sgerrors.NewDecodeError(path, err)
	}
	defer zr.Close()

	var raw types.SymbolTable
	if err := json.NewDecoder(zr).Decode(&raw); err != nil {
		return nil, sgerrors.NewDecodeError(path, err)
	}

	return rebuildTable(&raw, path)
}

// rebuildTable re-homes a decoded payload onto its bundle path. The first
// path segment becomes the namespace of every symbol in the table.
func rebuildTable(raw *types.SymbolTable, path string) (*types.SymbolTable, error) {
	namespace := namespaceFor(path)
	if namespace == "" {
		return nil, sgerrors.NewContractError("decodeTable",
			"table sits at the library root, outside any namespace directory", nil)
	}

	table := types.NewSymbolTable(types.FileID(fileIDPrefix + path))
	table.Namespace = namespace
	table.Imports = raw.Imports

	if len(raw.Scopes) > 0 {
		table.Scopes = raw.Scopes
	}
	for _, sym := range raw.Symbols {
		if int(sym.ScopeID) >= len(table.Scopes) {
			return nil, sgerrors.NewContractError("decodeTable",
				"symbol scope index exceeds the scope arena", nil).WithFile(table.FileID)
		}
		sym.ID = types.InvalidSymbolID // recompute from the bundle identity
		sym.FQN = ""
		sym.Namespace = namespace
		sym.Modifiers.IsBuiltIn = true
		table.AddSymbol(sym)
	}
	table.References = nil // built-in tables carry declarations only
	return table, nil
}

// namespaceFor returns the first path segment of a table path.
func namespaceFor(path string) string {
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return ""
}
