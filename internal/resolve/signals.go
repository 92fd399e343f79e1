package resolve

import (
	"strings"

	"github.com/standardbeagle/sge/internal/types"
)

// Signal is one independent disambiguation heuristic. Score must be a pure
// function of (candidate, context) returning a value in [0,1]; the engine
// multiplies it by Weight and sums across signals.
type Signal interface {
	Name() string
	Weight() float64
	Score(candidate *types.Symbol, ctx *Context) float64
}

// DefaultSignals returns the standard signal set with its weights.
func DefaultSignals() []Signal {
	return []Signal{
		importSignal{},
		namespaceSignal{},
		scopeChainSignal{},
		typeMatchSignal{},
		accessSignal{},
		relationshipSignal{},
	}
}

// importSignal scores how well the site's imports cover the candidate:
// an exact import of the candidate's FQN scores highest, an import naming
// its namespace nearly as high, a wildcard import of the namespace lower.
type importSignal struct{}

func (importSignal) Name() string    { return "import" }
func (importSignal) Weight() float64 { return 0.30 }

func (importSignal) Score(candidate *types.Symbol, ctx *Context) float64 {
	fqn := strings.ToLower(candidate.EffectiveFQN())
	ns := strings.ToLower(candidate.Namespace)

	best := 0.0
	for _, imp := range ctx.Imports {
		lower := strings.ToLower(strings.TrimSpace(imp))
		switch {
		case lower == fqn:
			return 0.9 // exact import, nothing can beat it
		case ns != "" && lower == ns:
			best = maxFloat(best, 0.8)
		case ns != "" && strings.TrimSuffix(lower, ".*") == ns && strings.HasSuffix(lower, ".*"):
			best = maxFloat(best, 0.6)
		}
	}
	return best
}

// namespaceSignal scores namespace agreement between site and candidate.
type namespaceSignal struct{}

func (namespaceSignal) Name() string    { return "namespace" }
func (namespaceSignal) Weight() float64 { return 0.20 }

func (namespaceSignal) Score(candidate *types.Symbol, ctx *Context) float64 {
	if ctx.Namespace == "" || candidate.Namespace == "" {
		return 0.1
	}
	if ctx.Namespace == candidate.Namespace {
		return 0.9
	}
	if strings.EqualFold(ctx.Namespace, candidate.Namespace) {
		return 0.7
	}
	return 0.1
}

// scopeChainSignal scores lexical proximity: the candidate's name appearing
// in the enclosing scope chain, plus a bonus per chain segment found in the
// candidate's FQN.
type scopeChainSignal struct{}

func (scopeChainSignal) Name() string    { return "scope_chain" }
func (scopeChainSignal) Weight() float64 { return 0.15 }

func (scopeChainSignal) Score(candidate *types.Symbol, ctx *Context) float64 {
	if len(ctx.ScopeChain) == 0 {
		return 0
	}
	score := 0.0
	fqn := strings.ToLower(candidate.EffectiveFQN())
	for _, segment := range ctx.ScopeChain {
		lower := strings.ToLower(segment)
		if lower == strings.ToLower(candidate.Name) {
			score += 0.5
		}
		if fqnContainsSegment(fqn, lower) {
			score += 0.3
		}
	}
	return clamp01(score)
}

// fqnContainsSegment checks for a whole dot-separated segment, not a bare
// substring, so scope "Order" does not match "Reorder.Thing".
func fqnContainsSegment(lowerFQN, lowerSegment string) bool {
	if lowerSegment == "" {
		return false
	}
	for _, part := range strings.Split(lowerFQN, ".") {
		if part == lowerSegment {
			return true
		}
	}
	return false
}

// typeMatchSignal scores agreement between expected/parameter/return types
// and the candidate's declared types. Exact matches score 0.8; partial
// (substring) matches scale between 0.3 and 0.5 by overlap.
type typeMatchSignal struct{}

func (typeMatchSignal) Name() string    { return "type_match" }
func (typeMatchSignal) Weight() float64 { return 0.15 }

func (typeMatchSignal) Score(candidate *types.Symbol, ctx *Context) float64 {
	best := 0.0
	if ctx.ExpectedType != "" {
		best = maxFloat(best, typeAffinity(ctx.ExpectedType, candidate.TypeName))
		// An expected type can also name the candidate itself (type position).
		best = maxFloat(best, typeAffinity(ctx.ExpectedType, candidate.Name))
	}
	if ctx.ReturnType != "" {
		best = maxFloat(best, typeAffinity(ctx.ReturnType, candidate.TypeName))
	}
	if len(ctx.ParameterTypes) > 0 && len(candidate.ParameterTypes) == len(ctx.ParameterTypes) {
		sum := 0.0
		for i, want := range ctx.ParameterTypes {
			sum += typeAffinity(want, candidate.ParameterTypes[i])
		}
		best = maxFloat(best, sum/float64(len(ctx.ParameterTypes)))
	}
	return best
}

// typeAffinity compares two type names: 0.8 exact (case-insensitive),
// 0.3–0.5 when one contains the other, scaled by length overlap.
func typeAffinity(want, got string) float64 {
	if want == "" || got == "" {
		return 0
	}
	w, g := strings.ToLower(want), strings.ToLower(got)
	if w == g {
		return 0.8
	}
	shorter, longer := w, g
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) {
		ratio := float64(len(shorter)) / float64(len(longer))
		return 0.3 + 0.2*ratio
	}
	return 0
}

// accessSignal scores access-modifier compatibility between the site and
// the candidate, plus a bonus when the static flags agree.
type accessSignal struct{}

func (accessSignal) Name() string    { return "access" }
func (accessSignal) Weight() float64 { return 0.10 }

func (accessSignal) Score(candidate *types.Symbol, ctx *Context) float64 {
	score := 0.0
	vis := candidate.Modifiers.Visibility
	switch {
	case vis == types.VisibilityPublic || vis == types.VisibilityGlobal:
		score += 0.5
	case vis == types.VisibilityPrivate && ctx.AccessModifier == types.VisibilityPrivate:
		score += 0.8
	case vis == types.VisibilityProtected && ctx.AccessModifier == types.VisibilityProtected:
		score += 0.7
	}
	if candidate.Modifiers.IsStatic == ctx.IsStatic {
		score += 0.3
	}
	return clamp01(score)
}

// relationshipSignal scores whether the candidate's kind is plausible for
// the kind of reference being resolved.
type relationshipSignal struct{}

func (relationshipSignal) Name() string    { return "relationship" }
func (relationshipSignal) Weight() float64 { return 0.10 }

func (relationshipSignal) Score(candidate *types.Symbol, ctx *Context) float64 {
	if ctx.RelationshipType == types.RefUnknown {
		return 0
	}
	if kindMatchesReference(candidate, ctx.RelationshipType) {
		return 1.0
	}
	return 0
}

// kindMatchesReference maps reference types to the symbol kinds that can
// legitimately sit at their target end.
func kindMatchesReference(candidate *types.Symbol, refType types.ReferenceType) bool {
	switch refType {
	case types.RefMethodCall:
		return candidate.Kind == types.KindMethod
	case types.RefFieldAccess:
		return candidate.Kind == types.KindField || candidate.Kind == types.KindProperty
	case types.RefTypeReference, types.RefInheritance, types.RefAnnotation:
		return candidate.Kind.IsType()
	case types.RefInterfaceImpl:
		return candidate.Kind == types.KindInterface
	case types.RefConstructorCall:
		return candidate.Kind == types.KindClass
	case types.RefStaticAccess:
		return candidate.Modifiers.IsStatic || candidate.Kind.IsType()
	case types.RefQueryDML:
		return candidate.Kind == types.KindClass || candidate.Kind == types.KindTrigger
	default:
		return false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
