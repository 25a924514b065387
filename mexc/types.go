// Copyright (c) 2025 BVK Chaitanya

package mexc

import (
	"fmt"

	"github.com/bvk/triarb/depth"
	"github.com/bvk/triarb/gobs"
)

// SymbolInfo is one entry of the exchangeInfo response.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`

	IsSpotTradingAllowed bool `json:"isSpotTradingAllowed"`
}

type ExchangeInfo struct {
	Timezone   string        `json:"timezone"`
	ServerTime int64         `json:"serverTime"`
	Symbols    []*SymbolInfo `json:"symbols"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

// Instrument converts the symbol info into an instrument. Newer api versions
// report status as a number, where "1" means the symbol is online.
func (v *SymbolInfo) Instrument() *gobs.Instrument {
	status := v.Status
	if status == "1" {
		status = gobs.StatusEnabled
	}
	return &gobs.Instrument{
		Symbol:     v.Symbol,
		BaseAsset:  v.BaseAsset,
		QuoteAsset: v.QuoteAsset,
		Status:     status,
	}
}

// Request is an outbound websocket message.
type Request struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

type DepthLevel struct {
	Price    string `json:"p"`
	Quantity string `json:"v"`
}

type DepthData struct {
	Asks    []DepthLevel `json:"asks"`
	Bids    []DepthLevel `json:"bids"`
	Event   string       `json:"e"`
	Version string       `json:"r"`
}

// Message is an inbound websocket message. Responses to SUBSCRIPTION and
// PING requests carry an id and a msg field instead of a channel.
type Message struct {
	Channel   string     `json:"c"`
	Symbol    string     `json:"s"`
	Timestamp int64      `json:"t"`
	Data      *DepthData `json:"d"`

	ID      int64  `json:"id"`
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func parseLadder(levels []DepthLevel) (depth.Ladder, error) {
	ladder := make(depth.Ladder, 0, len(levels))
	for i, l := range levels {
		v, err := depth.ParseLevel(l.Price, l.Quantity)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		ladder = append(ladder, v)
	}
	return ladder, nil
}

// Ladders decodes the ask and bid ladders of a depth message.
func (v *DepthData) Ladders() (asks, bids depth.Ladder, err error) {
	if asks, err = parseLadder(v.Asks); err != nil {
		return nil, nil, fmt.Errorf("could not parse asks: %w", err)
	}
	if bids, err = parseLadder(v.Bids); err != nil {
		return nil, nil, fmt.Errorf("could not parse bids: %w", err)
	}
	return asks, bids, nil
}
