package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/standardbeagle/sge/internal/types"
)

// Confidence assigned to a lone candidate. High but not absolute: an
// unindexed local shadow is always possible and is the caller's concern.
const singleCandidateConfidence = 0.9

// Engine disambiguates among same-named candidates by summing independent
// weighted context signals. Given identical inputs it always produces an
// identical result: no randomness, no time dependence, and ties broken by
// lexicographic FQN then symbol ID rather than map iteration order.
type Engine struct {
	signals []Signal
}

// NewEngine creates an engine with the default signal set.
func NewEngine() *Engine {
	return &Engine{signals: DefaultSignals()}
}

// NewEngineWithSignals creates an engine with a custom signal list, mostly
// for tests exercising one signal at a time.
func NewEngineWithSignals(signals []Signal) *Engine {
	return &Engine{signals: signals}
}

// Resolve scores candidates against the context. Zero candidates yields
// confidence 0 with no symbol; one candidate resolves at 0.9; multiple
// candidates are scored, sorted descending, and returned with
// IsAmbiguous=true and the full scored list attached for diagnostics.
func (e *Engine) Resolve(name string, candidates []*types.Symbol, ctx *Context) Resolution {
	if ctx == nil {
		ctx = &Context{}
	}

	switch len(candidates) {
	case 0:
		return Resolution{
			Confidence:  0,
			IsAmbiguous: false,
			Explanation: fmt.Sprintf("no declaration named %q is known", name),
		}
	case 1:
		return Resolution{
			Symbol:      candidates[0],
			Confidence:  singleCandidateConfidence,
			IsAmbiguous: false,
			Explanation: fmt.Sprintf("%q resolves uniquely to %s", name, candidates[0].EffectiveFQN()),
		}
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, e.score(candidate, ctx))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		// Documented deterministic tie-break: lexicographic FQN, then ID.
		fi := strings.ToLower(scored[i].Symbol.EffectiveFQN())
		fj := strings.ToLower(scored[j].Symbol.EffectiveFQN())
		if fi != fj {
			return fi < fj
		}
		return scored[i].Symbol.ID < scored[j].Symbol.ID
	})

	top := scored[0]
	return Resolution{
		Symbol:      top.Symbol,
		Confidence:  top.Score,
		IsAmbiguous: true,
		Candidates:  scored,
		Explanation: e.explain(name, scored),
	}
}

// score sums the weighted signal contributions for one candidate, clamped
// to [0,1], keeping the per-signal breakdown for diagnostics.
func (e *Engine) score(candidate *types.Symbol, ctx *Context) ScoredCandidate {
	breakdown := make(map[string]float64, len(e.signals))
	total := 0.0
	for _, signal := range e.signals {
		contribution := clamp01(signal.Score(candidate, ctx)) * signal.Weight()
		breakdown[signal.Name()] = contribution
		total += contribution
	}
	return ScoredCandidate{
		Symbol:    candidate,
		Score:     clamp01(total),
		Breakdown: breakdown,
	}
}

// explain renders a short ranking summary for diagnostics.
func (e *Engine) explain(name string, scored []ScoredCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q is ambiguous among %d candidates; chose %s (score %.3f)",
		name, len(scored), scored[0].Symbol.EffectiveFQN(), scored[0].Score)
	if len(scored) > 1 {
		fmt.Fprintf(&b, " over %s (score %.3f)",
			scored[1].Symbol.EffectiveFQN(), scored[1].Score)
	}
	return b.String()
}
