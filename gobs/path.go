// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"encoding/json"
	"fmt"
)

// TriangularPath is a three leg trading cycle that starts and ends with the
// InitialAsset.
//
// Operation holds one 'B' (buy the leg's base asset with its quote asset) or
// 'S' (sell the leg's base asset for its quote asset) character per leg.
// Classification names the relation between LegA and LegB that produced the
// path.
type TriangularPath struct {
	SequenceNumber int

	Classification string
	Operation      string

	InitialAsset      string
	IntermediaryAsset string
	FinalAsset        string

	LegA Leg
	LegB Leg
	LegC Leg
}

// Symbols returns leg symbols in the trade order.
func (v *TriangularPath) Symbols() [3]string {
	return [3]string{v.LegA.Symbol, v.LegB.Symbol, v.LegC.Symbol}
}

// Legs returns the legs in the trade order.
func (v *TriangularPath) Legs() [3]Leg {
	return [3]Leg{v.LegA, v.LegB, v.LegC}
}

func (v *TriangularPath) String() string {
	return fmt.Sprintf("#%d:%s:%s[%s %s %s]", v.SequenceNumber, v.Operation, v.InitialAsset, v.LegA.Symbol, v.LegB.Symbol, v.LegC.Symbol)
}

// pathJSON is the flat "combinations.json" file format.
type pathJSON struct {
	N            int       `json:"n"`
	Type         string    `json:"type"`
	Operation    string    `json:"operation"`
	Initial      string    `json:"initial"`
	Final        string    `json:"final"`
	Intermediary string    `json:"intermediary"`
	ABase        string    `json:"a_base"`
	AQuote       string    `json:"a_quote"`
	ASymbol      string    `json:"a_symbol"`
	BBase        string    `json:"b_base"`
	BQuote       string    `json:"b_quote"`
	BSymbol      string    `json:"b_symbol"`
	CBase        string    `json:"c_base"`
	CQuote       string    `json:"c_quote"`
	CSymbol      string    `json:"c_symbol"`
	Combined     [3]string `json:"combined"`
}

func (v *TriangularPath) MarshalJSON() ([]byte, error) {
	p := &pathJSON{
		N:            v.SequenceNumber,
		Type:         v.Classification,
		Operation:    v.Operation,
		Initial:      v.InitialAsset,
		Final:        v.FinalAsset,
		Intermediary: v.IntermediaryAsset,
		ABase:        v.LegA.BaseAsset,
		AQuote:       v.LegA.QuoteAsset,
		ASymbol:      v.LegA.Symbol,
		BBase:        v.LegB.BaseAsset,
		BQuote:       v.LegB.QuoteAsset,
		BSymbol:      v.LegB.Symbol,
		CBase:        v.LegC.BaseAsset,
		CQuote:       v.LegC.QuoteAsset,
		CSymbol:      v.LegC.Symbol,
		Combined:     v.Symbols(),
	}
	return json.Marshal(p)
}

func (v *TriangularPath) UnmarshalJSON(data []byte) error {
	p := new(pathJSON)
	if err := json.Unmarshal(data, p); err != nil {
		return err
	}
	*v = TriangularPath{
		SequenceNumber:    p.N,
		Classification:    p.Type,
		Operation:         p.Operation,
		InitialAsset:      p.Initial,
		IntermediaryAsset: p.Intermediary,
		FinalAsset:        p.Final,
		LegA:              Leg{BaseAsset: p.ABase, QuoteAsset: p.AQuote, Symbol: p.ASymbol},
		LegB:              Leg{BaseAsset: p.BBase, QuoteAsset: p.BQuote, Symbol: p.BSymbol},
		LegC:              Leg{BaseAsset: p.CBase, QuoteAsset: p.CQuote, Symbol: p.CSymbol},
	}
	return nil
}

// PathsMeta is saved next to the enumerated paths in the database.
type PathsMeta struct {
	GeneratedAt int64

	NumInstruments int
	NumPaths       int

	Exchange string
}
