package manager

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/sge/internal/graph"
	"github.com/standardbeagle/sge/internal/types"
)

// AnalyzeDependenciesBatch runs AnalyzeDependencies for each symbol,
// fanning the read-only graph queries out across a bounded worker group.
// Results come back in input order and are identical to N sequential
// single-symbol calls, for any N including zero. The only error source is
// context cancellation.
func (m *Manager) AnalyzeDependenciesBatch(ctx context.Context, ids []types.SymbolID) ([]graph.DependencyAnalysis, error) {
	results := make([]graph.DependencyAnalysis, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = m.AnalyzeDependencies(id)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
