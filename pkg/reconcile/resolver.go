package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v2"
)

// Resolver turns one conflict into one resolved field. Policy, first
// applicable rule wins:
//
//  1. A single authoritative claim wins outright.
//  2. A strict plurality of agreeing sources wins, unless an
//     authoritative source dissents.
//  3. Leaders within TieEpsilon of each other and no majority go to
//     manual review — ties are never broken silently.
//  4. Otherwise the highest-weight claim wins, with confidence
//     discounted by the strongest dissenting claim.
//
// Partial corroboration (MissingInSome) takes the present value with
// confidence capped, reflecting that nobody contradicted it but nobody
// confirmed it either.
type Resolver struct {
	cfg           Config
	authoritative *set.Set[string]
}

// NewResolver creates a resolver for the given config.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg, authoritative: set.From(cfg.AuthoritativeSources)}
}

// Resolve produces the resolved field for one conflict.
func (r *Resolver) Resolve(c Conflict) ResolvedField {
	switch c.Kind {
	case DateMismatch, RankMismatch, TextMismatch:
		return r.resolveMismatch(c)
	case MissingInSome:
		return r.resolvePartial(c)
	default:
		// Unreachable for the closed kind set; fail loudly in the
		// result rather than inventing a value.
		return ResolvedField{
			Field:      c.Field,
			Method:     ManualRequired,
			Confidence: 0,
			Rationale:  fmt.Sprintf("unknown conflict kind %q", c.Kind),
		}
	}
}

// candidate is one distinct value with its supporting claims.
type candidate struct {
	claims []Claim // ordered by weight desc, source ID
	total  float64 // sum of supporting weights
	best   float64 // strongest supporting weight
}

func (r *Resolver) resolveMismatch(c Conflict) ResolvedField {
	cands := r.candidates(c.Claims)

	// Rule 1: exactly one claim from an authoritative source takes the
	// field regardless of weights.
	if rf, ok := r.resolveAuthoritative(c); ok {
		return rf
	}

	// Rule 2: strict plurality of at least two agreeing sources, with
	// no authoritative dissenter.
	if rf, ok := r.resolveMajority(c, cands); ok {
		return rf
	}

	// Rule 3: a near-tie between the two strongest claims must surface
	// for manual review instead of an arbitrary pick. Candidates are
	// ordered by supporter count, so re-rank by weight here: the tie
	// that matters is between the two highest weights, whichever
	// candidates carry them.
	if len(cands) >= 2 {
		byBest := make([]candidate, len(cands))
		copy(byBest, cands)
		sort.SliceStable(byBest, func(i, j int) bool { return byBest[i].best > byBest[j].best })
		if byBest[0].best-byBest[1].best < r.cfg.TieEpsilon {
			return ResolvedField{
				Field:      c.Field,
				Method:     ManualRequired,
				Confidence: 0,
				Rationale: fmt.Sprintf("top claims %s (%.2f) and %s (%.2f) tie within epsilon %.2f",
					byBest[0].claims[0].SourceID, byBest[0].best,
					byBest[1].claims[0].SourceID, byBest[1].best, r.cfg.TieEpsilon),
			}
		}
	}

	// Rule 4: highest weight, discounted by the strongest dissent.
	return r.resolveHighestWeight(c, cands)
}

// candidates groups the claims by distinct value, ordered by
// (supporter count desc, best weight desc, source ID) so the leading
// candidate is always first.
func (r *Resolver) candidates(claims []Claim) []candidate {
	grouped := distinctValues(claims)
	cands := make([]candidate, 0, len(grouped))
	for _, g := range grouped {
		cand := candidate{claims: g}
		for _, cl := range g {
			cand.total += cl.Weight
			if cl.Weight > cand.best {
				cand.best = cl.Weight
			}
		}
		cands = append(cands, cand)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if len(a.claims) != len(b.claims) {
			return len(a.claims) > len(b.claims)
		}
		if a.best != b.best {
			return a.best > b.best
		}
		return a.claims[0].SourceID < b.claims[0].SourceID
	})
	return cands
}

func (r *Resolver) resolveAuthoritative(c Conflict) (ResolvedField, bool) {
	var authClaims []Claim
	for _, cl := range c.Claims {
		if r.authoritative.Contains(cl.SourceID) {
			authClaims = append(authClaims, cl)
		}
	}
	if len(authClaims) != 1 {
		return ResolvedField{}, false
	}
	chosen := authClaims[0]
	return ResolvedField{
		Field:      c.Field,
		Value:      chosen.Value,
		Method:     AuthoritativeSource,
		Confidence: clamp01(chosen.Weight),
		Rationale: fmt.Sprintf("authoritative source %s overrides %d other claim(s)",
			chosen.SourceID, len(c.Claims)-1),
	}, true
}

func (r *Resolver) resolveMajority(c Conflict, cands []candidate) (ResolvedField, bool) {
	if len(cands) == 0 || len(cands[0].claims) < 2 {
		return ResolvedField{}, false
	}
	// Strict plurality only: two values with equally many supporters
	// are no majority and fall through to the tie guard.
	if len(cands) > 1 && len(cands[1].claims) == len(cands[0].claims) {
		return ResolvedField{}, false
	}
	leader := cands[0]
	// An authoritative dissenter vetoes the vote.
	for _, cand := range cands[1:] {
		for _, cl := range cand.claims {
			if r.authoritative.Contains(cl.SourceID) {
				return ResolvedField{}, false
			}
		}
	}

	var totalWeight float64
	for _, cl := range c.Claims {
		totalWeight += cl.Weight
	}
	confidence := 0.0
	if totalWeight > 0 {
		confidence = leader.total / totalWeight
	}

	supporters := make([]string, 0, len(leader.claims))
	for _, cl := range leader.claims {
		supporters = append(supporters, cl.SourceID)
	}
	return ResolvedField{
		Field:      c.Field,
		Value:      leader.claims[0].Value,
		Method:     MajorityVote,
		Confidence: clamp01(confidence),
		Rationale: fmt.Sprintf("%d of %d sources agree (%s)",
			len(leader.claims), len(c.Claims), strings.Join(supporters, ", ")),
	}, true
}

func (r *Resolver) resolveHighestWeight(c Conflict, cands []candidate) ResolvedField {
	if len(cands) == 0 {
		return ResolvedField{
			Field:      c.Field,
			Method:     ManualRequired,
			Confidence: 0,
			Rationale:  "no claims to resolve",
		}
	}
	// Re-rank purely by weight here: rule 4 picks the strongest single
	// claim, not the best-supported value.
	top := cands[0]
	for _, cand := range cands[1:] {
		if cand.best > top.best {
			top = cand
		}
	}
	dissent := 0.0
	for _, cand := range cands {
		if cand.claims[0].Value.Equal(top.claims[0].Value) {
			continue
		}
		if cand.best > dissent {
			dissent = cand.best
		}
	}

	confidence := top.best - r.cfg.DissentPenalty*dissent
	if confidence < 0 {
		confidence = 0
	}
	chosen := top.claims[0]
	return ResolvedField{
		Field:      c.Field,
		Value:      chosen.Value,
		Method:     HighestWeight,
		Confidence: clamp01(confidence),
		Rationale: fmt.Sprintf("highest-weight claim from %s (%.2f) over dissent (%.2f)",
			chosen.SourceID, top.best, dissent),
	}
}

// resolvePartial handles fields only some sources provided: the present
// value carries forward as a provisional claim, never as a certainty.
func (r *Resolver) resolvePartial(c Conflict) ResolvedField {
	if len(c.Claims) == 0 {
		return ResolvedField{
			Field:      c.Field,
			Method:     ManualRequired,
			Confidence: 0,
			Rationale:  "no claims to resolve",
		}
	}
	chosen := c.Claims[0] // claims are ordered best weight first
	confidence := chosen.Weight
	if confidence > r.cfg.MissingCorroborationCap {
		confidence = r.cfg.MissingCorroborationCap
	}
	return ResolvedField{
		Field:      c.Field,
		Value:      chosen.Value,
		Method:     HighestWeight,
		Confidence: clamp01(confidence),
		Rationale: fmt.Sprintf("partial corroboration: only %d source(s) provide the field; capped at %.2f",
			len(c.Claims), r.cfg.MissingCorroborationCap),
	}
}
