package graph

import "github.com/Redish101/gn/schema"

// Pair is a (target, is_public) entry in an inherited_libraries result.
type Pair struct {
	Target   *Target
	IsPublic bool
}

// pairArena is the content-addressed store backing every
// inherited_libraries / rust_transitive_inherited_libs result. Two targets
// whose transitive (target, is_public) sequence hash identically — the
// common case is two targets with no linkable deps at all — share the
// same backing slice instead of each allocating their own, deduping by
// content digest rather than by identity.
//
// Entries are appended once and never mutated or evicted; a returned Pair
// slice is a borrowed view valid for as long as the Aggregator that owns
// this arena is alive.
type pairArena struct {
	byDigest map[schema.Digest][]Pair
}

func newPairArena() *pairArena {
	return &pairArena{byDigest: map[schema.Digest][]Pair{}}
}

// intern returns the arena's canonical slice for pairs, copying it in on
// first sight of this exact sequence (by content digest) and returning the
// existing slice on every subsequent call with an equal sequence.
func (a *pairArena) intern(pairs []Pair) []Pair {
	d := digestPairs(pairs)
	if existing, ok := a.byDigest[d]; ok && pairsEqual(existing, pairs) {
		return existing
	}

	stored := make([]Pair, len(pairs))
	copy(stored, pairs)
	a.byDigest[d] = stored
	return stored
}

func digestPairs(pairs []Pair) schema.Digest {
	vs := make([]uint64, 0, len(pairs)*2)
	for _, p := range pairs {
		vs = append(vs, p.Target.Label.Hash())
		if p.IsPublic {
			vs = append(vs, 1)
		} else {
			vs = append(vs, 0)
		}
	}
	return schema.DigestUint64s(vs...)
}

func pairsEqual(a, b []Pair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Target != b[i].Target || a[i].IsPublic != b[i].IsPublic {
			return false
		}
	}
	return true
}
