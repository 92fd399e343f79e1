// Package ingest feeds compiler-produced symbol table artifacts into the
// engine. The compiler drops one <name>.symbols.json per source file; this
// package finds them, decodes them, and keeps the engine current as they
// change on disk.
package ingest

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/sge/internal/sgerrors"
	"github.com/standardbeagle/sge/internal/types"
)

// TablePattern matches compiler symbol table artifacts.
const TablePattern = "**/*.symbols.json"

// Sink receives decoded tables; the symbol manager implements it.
type Sink interface {
	AddSymbolTable(table *types.SymbolTable) error
	RemoveFile(fileID types.FileID)
}

// LoadDir loads every symbol table artifact under dir, returning the count
// of tables fed to the sink.
func LoadDir(dir string, sink Sink) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return sgerrors.NewFileError("walk", path, err)
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if ok, _ := doublestar.Match(TablePattern, filepath.ToSlash(rel)); !ok {
			return nil
		}
		if _, err := LoadFile(path, sink); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// LoadFile decodes one artifact and feeds it to the sink, returning the
// table's file identity for bookkeeping.
func LoadFile(path string, sink Sink) (types.FileID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", sgerrors.NewFileError("read", path, err)
	}

	table := &types.SymbolTable{}
	if err := json.Unmarshal(data, table); err != nil {
		return "", sgerrors.NewDecodeError(path, err)
	}
	if table.FileID == "" {
		return "", sgerrors.NewContractError("LoadFile",
			"artifact does not declare the source file it was compiled from", nil)
	}

	if err := sink.AddSymbolTable(table); err != nil {
		return "", err
	}
	return table.FileID, nil
}
