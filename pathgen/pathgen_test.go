// Copyright (c) 2025 BVK Chaitanya

package pathgen

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/bvk/triarb/gobs"
)

func instrument(base, quote string) *gobs.Instrument {
	return &gobs.Instrument{
		Symbol:     base + quote,
		BaseAsset:  base,
		QuoteAsset: quote,
		Status:     gobs.StatusEnabled,
	}
}

func TestEnumerate(t *testing.T) {
	instruments := []*gobs.Instrument{
		instrument("ETH", "BTC"),
		instrument("ETH", "USDT"),
		instrument("BTC", "USDT"),
	}
	paths, err := Enumerate(instruments)
	if err != nil {
		t.Fatal(err)
	}

	type want struct {
		op, class, initial, intermediary string
		symbols                          [3]string
	}
	wants := []want{
		{"BSB", "baba", "BTC", "USDT", [3]string{"ETHBTC", "ETHUSDT", "BTCUSDT"}},
		{"SSB", "quoba", "ETH", "USDT", [3]string{"ETHBTC", "BTCUSDT", "ETHUSDT"}},
		{"BSS", "baba", "USDT", "BTC", [3]string{"ETHUSDT", "ETHBTC", "BTCUSDT"}},
		{"SBB", "quoquo", "ETH", "BTC", [3]string{"ETHUSDT", "BTCUSDT", "ETHBTC"}},
		{"BBS", "baquo", "USDT", "ETH", [3]string{"BTCUSDT", "ETHBTC", "ETHUSDT"}},
		{"SBS", "quoquo", "BTC", "ETH", [3]string{"BTCUSDT", "ETHUSDT", "ETHBTC"}},
	}
	if len(paths) != len(wants) {
		t.Fatalf("want %d paths, got %d", len(wants), len(paths))
	}
	for i, w := range wants {
		p := paths[i]
		if p.SequenceNumber != i+1 {
			t.Fatalf("path %d: want sequence number %d, got %d", i, i+1, p.SequenceNumber)
		}
		if p.Operation != w.op || p.Classification != w.class {
			t.Fatalf("path %d: want %s/%s, got %s/%s", i, w.op, w.class, p.Operation, p.Classification)
		}
		if p.InitialAsset != w.initial || p.IntermediaryAsset != w.intermediary || p.FinalAsset != w.initial {
			t.Fatalf("path %d: want assets %s/%s/%s, got %s/%s/%s", i, w.initial, w.intermediary, w.initial,
				p.InitialAsset, p.IntermediaryAsset, p.FinalAsset)
		}
		if p.Symbols() != w.symbols {
			t.Fatalf("path %d: want symbols %v, got %v", i, w.symbols, p.Symbols())
		}
	}
}

func TestEnumerateAllOperations(t *testing.T) {
	// One bridging pair per relation with both completions available.
	cases := []struct {
		a, b *gobs.Instrument
		ops  []string
	}{
		{instrument("X", "Y"), instrument("X", "Z"), []string{"BSB", "BSS"}},
		{instrument("X", "Y"), instrument("Z", "X"), []string{"BBB", "BBS"}},
		{instrument("X", "Y"), instrument("Y", "Z"), []string{"SSB", "SSS"}},
		{instrument("X", "Y"), instrument("Z", "Y"), []string{"SBB", "SBS"}},
	}
	for _, c := range cases {
		a, b := c.a, c.b
		// Completions for the relation: C connects the free assets in both
		// directions.
		r, ok := bridge(a, b)
		if !ok {
			t.Fatalf("%s and %s: want a bridge", a.Symbol, b.Symbol)
		}
		af, bf := r.aFree(a), r.bFree(b)
		c1, c2 := instrument(af, bf), instrument(bf, af)

		paths, err := Enumerate([]*gobs.Instrument{a, b, c1, c2})
		if err != nil {
			t.Fatal(err)
		}
		var ops []string
		for _, p := range paths {
			if p.LegA.Symbol == a.Symbol && p.LegB.Symbol == b.Symbol {
				ops = append(ops, p.Operation)
			}
		}
		if !slices.Equal(ops, c.ops) {
			t.Fatalf("%s/%s: want operations %v, got %v", a.Symbol, b.Symbol, c.ops, ops)
		}
	}
}

func TestEnumerateInputErrors(t *testing.T) {
	if _, err := Enumerate(nil); !errors.Is(err, ErrNoInstruments) {
		t.Fatalf("want ErrNoInstruments, got %v", err)
	}

	disabled := instrument("ETH", "BTC")
	disabled.Status = "DISABLED"
	if _, err := Enumerate([]*gobs.Instrument{disabled}); !errors.Is(err, ErrNoInstruments) {
		t.Fatalf("want ErrNoInstruments, got %v", err)
	}
}

func TestEnumerateSkipsDisabled(t *testing.T) {
	btcusdt := instrument("BTC", "USDT")
	btcusdt.Status = "PAUSED"
	instruments := []*gobs.Instrument{
		instrument("ETH", "BTC"),
		instrument("ETH", "USDT"),
		btcusdt,
	}
	paths, err := Enumerate(instruments)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Fatalf("want zero paths, got %d", len(paths))
	}
}

func TestEnumerateDistinctRecords(t *testing.T) {
	// Two records with equal values are still distinct instruments.
	instruments := []*gobs.Instrument{
		instrument("ETH", "BTC"),
		instrument("ETH", "BTC"),
		instrument("ETH", "USDT"),
		instrument("BTC", "USDT"),
	}
	paths, err := Enumerate(instruments)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		if p.LegA.Symbol == p.LegB.Symbol && p.Classification == "baba" && p.InitialAsset == p.IntermediaryAsset {
			t.Fatalf("unexpected self bridged path %s", p)
		}
	}
	if len(paths) <= 6 {
		t.Fatalf("want more paths than the de-duplicated input, got %d", len(paths))
	}
}

func TestClosureInvariant(t *testing.T) {
	assets := []string{"BTC", "ETH", "USDT", "USDC", "SOL", "MX"}

	var instruments []*gobs.Instrument
	for i, x := range assets {
		for j, y := range assets {
			// Keep a deterministic, irregular subset of directed pairs.
			if i == j || (i*7+j*3)%4 == 0 {
				continue
			}
			instruments = append(instruments, instrument(x, y))
		}
	}

	paths, err := Enumerate(instruments)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatalf("want non-zero paths")
	}

	seen := make(map[string]bool)
	for i, p := range paths {
		if p.SequenceNumber != i+1 {
			t.Fatalf("want sequence number %d, got %d", i+1, p.SequenceNumber)
		}
		if err := CheckClosure(p); err != nil {
			t.Fatalf("path %s: %v", p, err)
		}
		if p.FinalAsset != p.InitialAsset {
			t.Fatalf("path %s: final asset %s is not the initial asset", p, p.FinalAsset)
		}
		roles := map[string]bool{p.InitialAsset: true, p.IntermediaryAsset: true}
		for _, leg := range p.Legs() {
			roles[leg.BaseAsset] = true
			roles[leg.QuoteAsset] = true
		}
		if len(roles) != 3 {
			t.Fatalf("path %s: want three distinct assets, got %v", p, roles)
		}
		key := fmt.Sprintf("%s/%v", p.Operation, p.Symbols())
		if seen[key] {
			t.Fatalf("path %s is a structural duplicate", p)
		}
		seen[key] = true
	}
}

func TestCheckClosureRejects(t *testing.T) {
	p := &gobs.TriangularPath{
		Classification:    "baba",
		Operation:         "BSB",
		InitialAsset:      "BTC",
		IntermediaryAsset: "USDT",
		FinalAsset:        "BTC",
		LegA:              gobs.Leg{BaseAsset: "ETH", QuoteAsset: "BTC", Symbol: "ETHBTC"},
		LegB:              gobs.Leg{BaseAsset: "ETH", QuoteAsset: "USDT", Symbol: "ETHUSDT"},
		LegC:              gobs.Leg{BaseAsset: "BTC", QuoteAsset: "USDT", Symbol: "BTCUSDT"},
	}
	if err := CheckClosure(p); err != nil {
		t.Fatal(err)
	}

	bad := *p
	bad.Operation = "SSS"
	if err := CheckClosure(&bad); err == nil {
		t.Fatalf("want error for mismatched operation")
	}

	bad = *p
	bad.LegC = gobs.Leg{BaseAsset: "USDT", QuoteAsset: "BTC", Symbol: "USDTBTC"}
	if err := CheckClosure(&bad); err == nil {
		t.Fatalf("want error for leg C in the wrong direction")
	}

	bad = *p
	bad.IntermediaryAsset = "ETH"
	if err := CheckClosure(&bad); err == nil {
		t.Fatalf("want error for wrong asset roles")
	}
}

func TestFilterAndSymbols(t *testing.T) {
	instruments := []*gobs.Instrument{
		instrument("ETH", "BTC"),
		instrument("ETH", "USDT"),
		instrument("BTC", "USDT"),
	}
	paths, err := Enumerate(instruments)
	if err != nil {
		t.Fatal(err)
	}

	eth := FilterByInitial(paths, "ETH")
	if len(eth) != 2 {
		t.Fatalf("want 2 ETH paths, got %d", len(eth))
	}
	if got := Symbols(eth); !slices.Equal(got, []string{"ETHBTC", "BTCUSDT", "ETHUSDT"}) {
		t.Fatalf("unexpected symbols %v", got)
	}
	if got := InitialAssets(paths); !slices.Equal(got, []string{"BTC", "ETH", "USDT"}) {
		t.Fatalf("unexpected initial assets %v", got)
	}
}
