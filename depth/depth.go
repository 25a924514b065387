// Copyright (c) 2025 BVK Chaitanya

// Package depth implements depth-weighted execution prices over order-book
// ladders.
//
// A ladder is walked from the best price outward and every level is consumed
// greedily until the requested amount is satisfied or the ladder is
// exhausted. All arithmetic uses arbitrary precision decimals; divisions keep
// Precision digits after the decimal point.
package depth

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits kept by divisions.
const Precision = 28

// ErrEmptyFill is returned when nothing could be filled, so an average price
// is undefined.
var ErrEmptyFill = errors.New("depth: empty fill")

// Level is one price level of a ladder. Quantity is in base asset units and
// Price is in quote asset units per base asset.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

func (v Level) String() string {
	return fmt.Sprintf("%s@%s", v.Quantity, v.Price)
}

// Ladder is one side of an order book ordered from the best price. Asks are
// ascending by price and bids are descending by price.
type Ladder []Level

// ParseLevel parses wire format price and quantity strings.
func ParseLevel(price, quantity string) (Level, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Level{}, fmt.Errorf("could not parse price %q: %w", price, err)
	}
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return Level{}, fmt.Errorf("could not parse quantity %q: %w", quantity, err)
	}
	return Level{Price: p, Quantity: q}, nil
}

func (v Ladder) Clone() Ladder {
	if v == nil {
		return nil
	}
	c := make(Ladder, len(v))
	copy(c, v)
	return c
}

func (v Ladder) Equal(other Ladder) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if !v[i].Price.Equal(other[i].Price) || !v[i].Quantity.Equal(other[i].Quantity) {
			return false
		}
	}
	return true
}

// Truncate returns the first n levels of the ladder.
func (v Ladder) Truncate(n int) Ladder {
	if n <= 0 || len(v) <= n {
		return v
	}
	return v[:n]
}

// Execution is the result of walking a ladder.
type Execution struct {
	// Price is the average execution price.
	Price decimal.Decimal

	// Quantity is the filled base asset quantity.
	Quantity decimal.Decimal

	// Notional is the total quote asset value of the fill.
	Notional decimal.Decimal
}

// Fill walks the ladder to fill want base asset quantity. It returns the
// average execution price and the filled quantity, which is less than want
// when the ladder doesn't have enough depth.
func Fill(ladder Ladder, want decimal.Decimal) (price, filled decimal.Decimal, err error) {
	x, err := Walk(ladder, want)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return x.Price, x.Quantity, nil
}

// Walk is like Fill, but also reports the exact notional value of the fill.
func Walk(ladder Ladder, want decimal.Decimal) (*Execution, error) {
	var cost, filled decimal.Decimal
	remaining := want
	for _, level := range ladder {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, level.Quantity)
		if !take.IsPositive() {
			continue
		}
		cost = cost.Add(level.Price.Mul(take))
		filled = filled.Add(take)
		remaining = remaining.Sub(take)
	}
	if filled.IsZero() {
		return nil, ErrEmptyFill
	}
	x := &Execution{
		Price:    cost.DivRound(filled, Precision),
		Quantity: filled,
		Notional: cost,
	}
	return x, nil
}

// Spend walks the ladder to spend up to budget quote asset units buying the
// base asset.
func Spend(ladder Ladder, budget decimal.Decimal) (*Execution, error) {
	var spent, bought decimal.Decimal
	remaining := budget
	for _, level := range ladder {
		if !remaining.IsPositive() {
			break
		}
		if !level.Price.IsPositive() || !level.Quantity.IsPositive() {
			continue
		}
		levelCost := level.Price.Mul(level.Quantity)
		if remaining.GreaterThanOrEqual(levelCost) {
			spent = spent.Add(levelCost)
			bought = bought.Add(level.Quantity)
			remaining = remaining.Sub(levelCost)
			continue
		}
		bought = bought.Add(remaining.DivRound(level.Price, Precision))
		spent = spent.Add(remaining)
		remaining = decimal.Zero
	}
	if bought.IsZero() {
		return nil, ErrEmptyFill
	}
	x := &Execution{
		Price:    spent.DivRound(bought, Precision),
		Quantity: bought,
		Notional: spent,
	}
	return x, nil
}
