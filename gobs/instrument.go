// Copyright (c) 2025 BVK Chaitanya

package gobs

// StatusEnabled is the instrument status for tradable symbols. Instruments in
// any other state are ignored.
const StatusEnabled = "ENABLED"

type Instrument struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string
	Status     string
}

func (v *Instrument) IsEnabled() bool {
	return v.Status == StatusEnabled
}

// Leg is one trading pair of a triangular path.
type Leg struct {
	BaseAsset  string
	QuoteAsset string
	Symbol     string
}

func LegOf(v *Instrument) Leg {
	return Leg{
		BaseAsset:  v.BaseAsset,
		QuoteAsset: v.QuoteAsset,
		Symbol:     v.Symbol,
	}
}
