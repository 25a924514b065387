// Copyright (c) 2025 BVK Chaitanya

package orderbook

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bvk/triarb/depth"
	"github.com/shopspring/decimal"
)

func level(price, quantity int64) depth.Level {
	return depth.Level{Price: decimal.NewFromInt(price), Quantity: decimal.NewFromInt(quantity)}
}

func TestStoreSnapshot(t *testing.T) {
	s := New(20)

	if _, _, ok := s.Snapshot("ETHUSDT"); ok {
		t.Fatalf("want not-found for unknown symbol")
	}

	asks := depth.Ladder{level(101, 1), level(102, 2)}
	bids := depth.Ladder{level(100, 3)}
	s.Update("ETHUSDT", asks, bids)

	gotAsks, gotBids, ok := s.Snapshot("ETHUSDT")
	if !ok {
		t.Fatalf("want snapshot after update")
	}
	if !gotAsks.Equal(asks) || !gotBids.Equal(bids) {
		t.Fatalf("want %v/%v, got %v/%v", asks, bids, gotAsks, gotBids)
	}

	// Store keeps its own copy.
	asks[0] = level(1, 1)
	if gotAsks, _, _ := s.Snapshot("ETHUSDT"); gotAsks[0].Price.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("store ladder was modified through the input slice")
	}
}

func TestStoreUpdateIdempotent(t *testing.T) {
	s := New(20)
	asks := depth.Ladder{level(101, 1), level(102, 2)}
	bids := depth.Ladder{level(100, 3), level(99, 1)}

	s.Update("BTCUSDT", asks, bids)
	a1, b1, _ := s.Snapshot("BTCUSDT")
	s.Update("BTCUSDT", asks, bids)
	a2, b2, _ := s.Snapshot("BTCUSDT")

	if !a1.Equal(a2) || !b1.Equal(b2) {
		t.Fatalf("want unchanged snapshot after identical update")
	}
	if n := s.NumUpdates("BTCUSDT"); n != 2 {
		t.Fatalf("want 2 updates, got %d", n)
	}
	if s.Len() != 1 {
		t.Fatalf("want one symbol, got %d", s.Len())
	}
}

func TestStoreTruncate(t *testing.T) {
	s := New(5)
	var asks depth.Ladder
	for i := 0; i < 20; i++ {
		asks = append(asks, level(int64(100+i), 1))
	}
	s.Update("X", asks, nil)
	got, _, _ := s.Snapshot("X")
	if len(got) != 5 {
		t.Fatalf("want 5 levels, got %d", len(got))
	}
}

func TestStoreConcurrent(t *testing.T) {
	s := New(20)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		symbol := fmt.Sprintf("SYM%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 1; j <= 500; j++ {
				// Both sides carry the same quantity so readers can detect torn
				// updates.
				v := int64(j)
				s.Update(symbol, depth.Ladder{level(v+1, v)}, depth.Ladder{level(v, v)})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				asks, bids, ok := s.Snapshot(symbol)
				if !ok {
					continue
				}
				if !asks[0].Quantity.Equal(bids[0].Quantity) {
					t.Errorf("torn update for %s: %v/%v", symbol, asks, bids)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := s.Symbols(); len(got) != 8 || got[0] != "SYM0" {
		t.Fatalf("unexpected symbols %v", got)
	}
}
