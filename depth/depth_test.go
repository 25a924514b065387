// Copyright (c) 2025 BVK Chaitanya

package depth

import (
	"errors"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ladder(vs ...string) Ladder {
	var l Ladder
	for i := 0; i+1 < len(vs); i += 2 {
		l = append(l, Level{Price: d(vs[i]), Quantity: d(vs[i+1])})
	}
	return l
}

func TestFill(t *testing.T) {
	asks := ladder("100", "2", "101", "3")

	price, filled, err := Fill(asks, d("4"))
	if err != nil {
		t.Fatal(err)
	}
	if !filled.Equal(d("4")) {
		t.Fatalf("want filled 4, got %s", filled)
	}
	if !price.Equal(d("100.5")) {
		t.Fatalf("want price 100.5, got %s", price)
	}

	// Ladder is exhausted before want is satisfied.
	price, filled, err = Fill(asks, d("10"))
	if err != nil {
		t.Fatal(err)
	}
	if !filled.Equal(d("5")) {
		t.Fatalf("want filled 5, got %s", filled)
	}
	if !price.Equal(d("100.6")) {
		t.Fatalf("want price 100.6, got %s", price)
	}
}

func TestFillEmpty(t *testing.T) {
	asks := ladder("100", "2", "101", "3")
	if _, _, err := Fill(asks, decimal.Zero); !errors.Is(err, ErrEmptyFill) {
		t.Fatalf("want ErrEmptyFill, got %v", err)
	}
	if _, _, err := Fill(nil, d("1")); !errors.Is(err, ErrEmptyFill) {
		t.Fatalf("want ErrEmptyFill, got %v", err)
	}
	if _, _, err := Fill(ladder("100", "0"), d("1")); !errors.Is(err, ErrEmptyFill) {
		t.Fatalf("want ErrEmptyFill, got %v", err)
	}
}

func TestFillOrderSensitive(t *testing.T) {
	asks := ladder("100", "2", "101", "3")
	reversed := slices.Clone(asks)
	slices.Reverse(reversed)

	p1, _, err := Fill(asks, d("1"))
	if err != nil {
		t.Fatal(err)
	}
	p2, _, err := Fill(reversed, d("1"))
	if err != nil {
		t.Fatal(err)
	}
	if p1.Equal(p2) {
		t.Fatalf("want different prices for reversed ladder, got %s and %s", p1, p2)
	}
}

func TestFillMonotonic(t *testing.T) {
	asks := ladder("1.5", "0.3", "1.51", "1.7", "1.55", "0.01", "1.6", "4", "2", "100")

	last := decimal.Zero
	for want := d("0.05"); want.LessThan(d("120")); want = want.Add(d("0.35")) {
		price, _, err := Fill(asks, want)
		if err != nil {
			t.Fatal(err)
		}
		if price.LessThan(last) {
			t.Fatalf("want non-decreasing price at %s, got %s after %s", want, price, last)
		}
		last = price
	}
}

func TestFillPrecision(t *testing.T) {
	asks := ladder("1", "1", "2", "2")

	price, filled, err := Fill(asks, d("3"))
	if err != nil {
		t.Fatal(err)
	}
	if !filled.Equal(d("3")) {
		t.Fatalf("want filled 3, got %s", filled)
	}
	// 5/3 with 28 fractional digits.
	if want := d("1.6666666666666666666666666667"); !price.Equal(want) {
		t.Fatalf("want %s, got %s", want, price)
	}
}

func TestWalkNotional(t *testing.T) {
	bids := ladder("1", "9.8", "0.5", "0.1")

	x, err := Walk(bids, d("9.9"))
	if err != nil {
		t.Fatal(err)
	}
	if !x.Notional.Equal(d("9.85")) {
		t.Fatalf("want notional 9.85, got %s", x.Notional)
	}
	if !x.Quantity.Equal(d("9.9")) {
		t.Fatalf("want quantity 9.9, got %s", x.Quantity)
	}
}

func TestSpend(t *testing.T) {
	asks := ladder("1", "9.8", "2", "5")

	x, err := Spend(asks, d("10"))
	if err != nil {
		t.Fatal(err)
	}
	if !x.Quantity.Equal(d("9.9")) {
		t.Fatalf("want bought 9.9, got %s", x.Quantity)
	}
	if !x.Notional.Equal(d("10")) {
		t.Fatalf("want spent 10, got %s", x.Notional)
	}
	if want := d("10").DivRound(d("9.9"), Precision); !x.Price.Equal(want) {
		t.Fatalf("want price %s, got %s", want, x.Price)
	}

	// Budget larger than the whole ladder.
	x, err = Spend(asks, d("100"))
	if err != nil {
		t.Fatal(err)
	}
	if !x.Quantity.Equal(d("14.8")) || !x.Notional.Equal(d("19.8")) {
		t.Fatalf("want 14.8 bought for 19.8, got %s for %s", x.Quantity, x.Notional)
	}

	if _, err := Spend(asks, decimal.Zero); !errors.Is(err, ErrEmptyFill) {
		t.Fatalf("want ErrEmptyFill, got %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	v, err := ParseLevel("0.000123", "1500.5")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Price.Equal(d("0.000123")) || !v.Quantity.Equal(d("1500.5")) {
		t.Fatalf("unexpected level %s", v)
	}
	if _, err := ParseLevel("x", "1"); err == nil {
		t.Fatalf("want non-nil error for bad price")
	}
}
