// Copyright (c) 2025 BVK Chaitanya

// Package pathgen enumerates triangular trading paths from a list of
// instruments.
//
// Every ordered pair of distinct enabled instruments (A, B) that share an
// asset is bridged by the first matching relation from the relations table.
// Every instrument C that connects the non-shared assets of A and B then
// closes a triangle in one of two directions. Paths are numbered in discovery
// order, starting at one. Paths found through both (A, B) and (B, A) are both
// reported.
//
// Enumeration is cubic in the number of instruments and is meant to run
// offline.
package pathgen

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/bvk/triarb/gobs"
)

var ErrNoInstruments = errors.New("pathgen: no enabled instruments")

// Enumerate returns all triangular paths formed by the enabled instruments.
func Enumerate(instruments []*gobs.Instrument) ([]*gobs.TriangularPath, error) {
	var enabled []*gobs.Instrument
	for _, v := range instruments {
		if v != nil && v.IsEnabled() {
			enabled = append(enabled, v)
		}
	}
	if len(enabled) == 0 {
		return nil, ErrNoInstruments
	}

	var paths []*gobs.TriangularPath
	for i, a := range enabled {
		for j, b := range enabled {
			if i == j {
				continue
			}
			r, ok := bridge(a, b)
			if !ok {
				continue
			}
			for _, c := range enabled {
				for k := range r.completions {
					if !r.matches(k, a, b, c) {
						continue
					}
					p := r.path(k, a, b, c)
					p.SequenceNumber = len(paths) + 1
					paths = append(paths, p)
				}
			}
		}
	}
	return paths, nil
}

// FilterByInitial returns the paths that start with the given asset.
func FilterByInitial(paths []*gobs.TriangularPath, asset string) []*gobs.TriangularPath {
	var vs []*gobs.TriangularPath
	for _, p := range paths {
		if p.InitialAsset == asset {
			vs = append(vs, p)
		}
	}
	return vs
}

// Symbols returns the unique leg symbols of all paths in the first-seen order.
func Symbols(paths []*gobs.TriangularPath) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, p := range paths {
		for _, s := range p.Symbols() {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// InitialAssets returns the unique initial assets of all paths in sorted
// order.
func InitialAssets(paths []*gobs.TriangularPath) []string {
	var assets []string
	for _, p := range paths {
		if !slices.Contains(assets, p.InitialAsset) {
			assets = append(assets, p.InitialAsset)
		}
	}
	slices.Sort(assets)
	return assets
}

// CheckClosure verifies that a path is one the enumerator could produce: legs
// A and B share an asset through the declared classification, leg C connects
// their free assets as the operation says and the asset roles are consistent.
func CheckClosure(p *gobs.TriangularPath) error {
	idx := slices.IndexFunc(relations, func(r relation) bool {
		return r.classification == p.Classification
	})
	if idx < 0 {
		return fmt.Errorf("unknown classification %q: %w", p.Classification, os.ErrInvalid)
	}
	r := &relations[idx]

	k := slices.IndexFunc(r.completions[:], func(c completion) bool {
		return c.operation == p.Operation
	})
	if k < 0 {
		return fmt.Errorf("operation %q is invalid for classification %q: %w", p.Operation, p.Classification, os.ErrInvalid)
	}

	a := &gobs.Instrument{Symbol: p.LegA.Symbol, BaseAsset: p.LegA.BaseAsset, QuoteAsset: p.LegA.QuoteAsset}
	b := &gobs.Instrument{Symbol: p.LegB.Symbol, BaseAsset: p.LegB.BaseAsset, QuoteAsset: p.LegB.QuoteAsset}
	c := &gobs.Instrument{Symbol: p.LegC.Symbol, BaseAsset: p.LegC.BaseAsset, QuoteAsset: p.LegC.QuoteAsset}

	if r.aShared.of(a) != r.bShared.of(b) {
		return fmt.Errorf("legs %s and %s do not share an asset as %q: %w", a.Symbol, b.Symbol, r.classification, os.ErrInvalid)
	}
	if !r.matches(k, a, b, c) {
		return fmt.Errorf("leg %s does not close the triangle for %s: %w", c.Symbol, p.Operation, os.ErrInvalid)
	}
	want := r.path(k, a, b, c)
	if want.InitialAsset != p.InitialAsset || want.IntermediaryAsset != p.IntermediaryAsset || want.FinalAsset != p.FinalAsset {
		return fmt.Errorf("asset roles %s/%s/%s do not match %s/%s/%s: %w",
			p.InitialAsset, p.IntermediaryAsset, p.FinalAsset,
			want.InitialAsset, want.IntermediaryAsset, want.FinalAsset, os.ErrInvalid)
	}
	return nil
}
