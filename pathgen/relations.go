// Copyright (c) 2025 BVK Chaitanya

package pathgen

import "github.com/bvk/triarb/gobs"

// side selects the base or quote asset of an instrument.
type side int

const (
	base side = iota
	quote
)

func (s side) of(v *gobs.Instrument) string {
	if s == base {
		return v.BaseAsset
	}
	return v.QuoteAsset
}

func (s side) other() side {
	return 1 - s
}

// completion describes one way an instrument C closes a triangle for a
// bridged pair (A, B).
type completion struct {
	operation string

	// C's base asset must match cBase of A (when cBaseFromA) or B and C's
	// quote asset must match the other instrument.
	cBaseFromA bool
}

// relation is one of the four ways two instruments can share an asset. The
// shared asset is A's aShared side and B's bShared side.
type relation struct {
	classification string

	aShared side
	bShared side

	completions [2]completion
}

// relations is ordered by match priority. Only the first relation matching a
// pair (A, B) is used.
//
//	relation        completion-1                      completion-2
//	A.base=B.base   C.base=A.quote C.quote=B.quote BSB  C.quote=A.quote C.base=B.quote BSS
//	A.base=B.quote  C.base=A.quote C.quote=B.base  BBB  C.quote=A.quote C.base=B.base  BBS
//	A.quote=B.base  C.base=A.base  C.quote=B.quote SSB  C.quote=A.base  C.base=B.quote SSS
//	A.quote=B.quote C.base=A.base  C.quote=B.base  SBB  C.quote=A.base  C.base=B.base  SBS
var relations = []relation{
	{
		classification: "baba",
		aShared:        base,
		bShared:        base,
		completions:    [2]completion{{"BSB", true}, {"BSS", false}},
	},
	{
		classification: "baquo",
		aShared:        base,
		bShared:        quote,
		completions:    [2]completion{{"BBB", true}, {"BBS", false}},
	},
	{
		classification: "quoba",
		aShared:        quote,
		bShared:        base,
		completions:    [2]completion{{"SSB", true}, {"SSS", false}},
	},
	{
		classification: "quoquo",
		aShared:        quote,
		bShared:        quote,
		completions:    [2]completion{{"SBB", true}, {"SBS", false}},
	},
}

// bridge returns the first relation that connects a and b.
func bridge(a, b *gobs.Instrument) (*relation, bool) {
	for i := range relations {
		r := &relations[i]
		if r.aShared.of(a) == r.bShared.of(b) {
			return r, true
		}
	}
	return nil, false
}

// aFree and bFree return the non-shared assets of A and B.
func (r *relation) aFree(a *gobs.Instrument) string {
	return r.aShared.other().of(a)
}

func (r *relation) bFree(b *gobs.Instrument) string {
	return r.bShared.other().of(b)
}

// matches returns true if c closes the triangle through completion k.
func (r *relation) matches(k int, a, b, c *gobs.Instrument) bool {
	if r.completions[k].cBaseFromA {
		return c.BaseAsset == r.aFree(a) && c.QuoteAsset == r.bFree(b)
	}
	return c.QuoteAsset == r.aFree(a) && c.BaseAsset == r.bFree(b)
}

// path builds the triangular path for a completion match. The initial asset is
// A's free asset, which is also where C returns, the intermediary is B's free
// asset and the final asset is the one received from leg C.
func (r *relation) path(k int, a, b, c *gobs.Instrument) *gobs.TriangularPath {
	final := c.QuoteAsset
	if r.completions[k].cBaseFromA {
		final = c.BaseAsset
	}
	return &gobs.TriangularPath{
		Classification:    r.classification,
		Operation:         r.completions[k].operation,
		InitialAsset:      r.aFree(a),
		IntermediaryAsset: r.bFree(b),
		FinalAsset:        final,
		LegA:              gobs.LegOf(a),
		LegB:              gobs.LegOf(b),
		LegC:              gobs.LegOf(c),
	}
}
