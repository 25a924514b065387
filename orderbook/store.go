// Copyright (c) 2025 BVK Chaitanya

// Package orderbook keeps the latest order-book ladders for every symbol.
//
// Each symbol has its own entry holding an immutable book value. Update
// builds a new value and publishes it with an atomic pointer swap, so readers
// always observe both sides of a book from the same update and never block
// writers. There is no consistency across symbols: two snapshots may reflect
// updates that arrived at different times.
//
// Every symbol is expected to be written by a single stream session, but
// concurrent writers to the same symbol are still safe; the last swap wins.
package orderbook

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/bvk/triarb/depth"
	"github.com/bvk/triarb/syncmap"
)

type book struct {
	asks depth.Ladder
	bids depth.Ladder

	updatedAt time.Time
}

type entry struct {
	current atomic.Pointer[book]

	updates atomic.Int64
}

type Store struct {
	depth int

	entryMap syncmap.Map[string, *entry]
}

// New creates an empty store. Ladders longer than maxDepth levels are
// truncated; zero or negative maxDepth keeps all levels.
func New(maxDepth int) *Store {
	return &Store{depth: maxDepth}
}

// Update replaces both ladders of the symbol. Input ladders are copied.
func (s *Store) Update(symbol string, asks, bids depth.Ladder) {
	b := &book{
		asks:      asks.Truncate(s.depth).Clone(),
		bids:      bids.Truncate(s.depth).Clone(),
		updatedAt: time.Now(),
	}
	e, _ := s.entryMap.LoadOrCreate(symbol, func() *entry { return new(entry) })
	e.current.Store(b)
	e.updates.Add(1)
}

// Snapshot returns the current ladders for the symbol. Returns false if the
// symbol was never updated. Returned ladders must not be modified.
func (s *Store) Snapshot(symbol string) (asks, bids depth.Ladder, ok bool) {
	e, ok := s.entryMap.Load(symbol)
	if !ok {
		return nil, nil, false
	}
	b := e.current.Load()
	if b == nil {
		return nil, nil, false
	}
	return b.asks, b.bids, true
}

// UpdatedAt returns the time of the last update for the symbol.
func (s *Store) UpdatedAt(symbol string) (time.Time, bool) {
	e, ok := s.entryMap.Load(symbol)
	if !ok {
		return time.Time{}, false
	}
	if b := e.current.Load(); b != nil {
		return b.updatedAt, true
	}
	return time.Time{}, false
}

// NumUpdates returns the number of updates received for the symbol.
func (s *Store) NumUpdates(symbol string) int64 {
	if e, ok := s.entryMap.Load(symbol); ok {
		return e.updates.Load()
	}
	return 0
}

// Symbols returns all symbols with a book, in sorted order.
func (s *Store) Symbols() []string {
	symbols := s.entryMap.Keys()
	slices.Sort(symbols)
	return symbols
}

func (s *Store) Len() int {
	return s.entryMap.Len()
}
