// Copyright (c) 2025 BVK Chaitanya

// Package evaluator computes depth-aware outcomes of triangular paths
// against the current order books and reports profitable ones.
//
// Every leg converts the amount held before the leg into the next asset. A
// 'B' leg spends quote asset units on the ask ladder and yields the bought
// base asset quantity; an 'S' leg sells base asset units into the bid ladder
// and yields the quote asset notional. The final amount is in the path's
// initial asset, so profit is the final amount minus the initial amount.
package evaluator

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bvk/triarb/depth"
	"github.com/bvk/triarb/gobs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
)

// Snapshotter provides read access to the latest order-book ladders.
type Snapshotter interface {
	Snapshot(symbol string) (asks, bids depth.Ladder, ok bool)
}

type Options struct {
	// FeeRate is the fraction of the amount charged as a fee on every leg. Zero
	// disables fees.
	FeeRate decimal.Decimal

	// FeeExempt lists symbols or assets on which no fee is charged.
	FeeExempt []string

	// LegCFromFeedB evaluates the third leg against the second leg's order
	// book instead of its own. This reproduces the behavior of older detector
	// releases and is meant only for comparing outputs.
	LegCFromFeedB bool
}

func (v *Options) setDefaults() {
	if v.FeeRate.IsNegative() {
		v.FeeRate = decimal.Zero
	}
}

// Result holds per-leg amounts of one path evaluation.
type Result struct {
	Path *gobs.TriangularPath

	// Amounts holds the initial amount followed by the amount held after
	// each leg.
	Amounts [4]decimal.Decimal

	// Prices holds the average execution price of each leg.
	Prices [3]decimal.Decimal
}

func (r *Result) Initial() decimal.Decimal { return r.Amounts[0] }

func (r *Result) Final() decimal.Decimal { return r.Amounts[3] }

func (r *Result) Profit() decimal.Decimal {
	return r.Amounts[3].Sub(r.Amounts[0])
}

// ErrNoBook is returned when a leg's symbol has no order book yet.
var ErrNoBook = errors.New("evaluator: no order book")

// EvaluatePath walks the three legs of the path with the initial amount.
func EvaluatePath(p *gobs.TriangularPath, books Snapshotter, initial decimal.Decimal, opts *Options) (*Result, error) {
	if opts == nil {
		opts = new(Options)
	}

	legs := p.Legs()
	feeds := p.Symbols()
	if opts.LegCFromFeedB {
		feeds[2] = feeds[1]
	}

	r := &Result{Path: p}
	r.Amounts[0] = initial
	amount := initial
	for i := range legs {
		asks, bids, ok := books.Snapshot(feeds[i])
		if !ok {
			return nil, fmt.Errorf("leg %d symbol %q: %w", i, feeds[i], ErrNoBook)
		}

		amount = opts.applyFee(legs[i], amount)

		var x *depth.Execution
		var err error
		switch p.Operation[i] {
		case 'B':
			x, err = depth.Spend(asks, amount)
			if err == nil {
				amount = x.Quantity
			}
		case 'S':
			x, err = depth.Walk(bids, amount)
			if err == nil {
				amount = x.Notional
			}
		default:
			return nil, fmt.Errorf("path %s has invalid operation %q: %w", p, p.Operation, errors.ErrUnsupported)
		}
		if err != nil {
			return nil, fmt.Errorf("leg %d symbol %q: %w", i, feeds[i], err)
		}
		r.Prices[i] = x.Price
		r.Amounts[i+1] = amount
	}
	return r, nil
}

func (v *Options) applyFee(leg gobs.Leg, amount decimal.Decimal) decimal.Decimal {
	if !v.FeeRate.IsPositive() {
		return amount
	}
	if slices.Contains(v.FeeExempt, leg.Symbol) || slices.Contains(v.FeeExempt, leg.BaseAsset) || slices.Contains(v.FeeExempt, leg.QuoteAsset) {
		return amount
	}
	return amount.Sub(amount.Mul(v.FeeRate))
}

// Evaluate computes the outcome of every path with the initial quantity and
// returns one event per profitable path, in the input order. Paths with a
// missing book or an empty fill on any leg are skipped.
func Evaluate(paths []*gobs.TriangularPath, books Snapshotter, initial decimal.Decimal) []*gobs.OpportunityEvent {
	return evaluate(paths, books, initial, new(Options), "")
}

func evaluate(paths []*gobs.TriangularPath, books Snapshotter, initial decimal.Decimal, opts *Options, trigger string) []*gobs.OpportunityEvent {
	var events []*gobs.OpportunityEvent
	for _, p := range paths {
		r, err := EvaluatePath(p, books, initial, opts)
		if err != nil {
			if !errors.Is(err, ErrNoBook) {
				slog.Debug("skipping path", "path", p, "err", err)
			}
			continue
		}
		if !r.Profit().IsPositive() {
			continue
		}
		events = append(events, newEvent(r, trigger))
	}
	return events
}

func newEvent(r *Result, trigger string) *gobs.OpportunityEvent {
	return &gobs.OpportunityEvent{
		ID:              uuid.New(),
		Path:            r.Path,
		Trigger:         trigger,
		InitialQuantity: r.Initial(),
		FinalQuantity:   r.Final(),
		Profit:          r.Profit(),
		ProfitAsset:     r.Path.InitialAsset,
		DetectedAt:      time.Now(),
	}
}

// Evaluator re-evaluates the paths that depend on a symbol whenever the
// symbol's book changes and publishes profitable outcomes to a topic.
type Evaluator struct {
	opts Options

	books Snapshotter

	initial decimal.Decimal

	paths []*gobs.TriangularPath

	symbolPathsMap map[string][]*gobs.TriangularPath

	eventsTopic *topic.Topic[*gobs.OpportunityEvent]

	numEvaluations   atomic.Int64
	numOpportunities atomic.Int64
}

// New creates an evaluator for the paths. Paths must not be modified after
// this call.
func New(paths []*gobs.TriangularPath, books Snapshotter, initial decimal.Decimal, opts *Options) (*Evaluator, error) {
	if !initial.IsPositive() {
		return nil, fmt.Errorf("initial quantity %s must be positive: %w", initial, errors.ErrUnsupported)
	}
	if opts == nil {
		opts = new(Options)
	}
	e := &Evaluator{
		opts:           *opts,
		books:          books,
		initial:        initial,
		paths:          paths,
		symbolPathsMap: make(map[string][]*gobs.TriangularPath),
		eventsTopic:    topic.New[*gobs.OpportunityEvent](),
	}
	e.opts.setDefaults()

	for _, p := range paths {
		feeds := p.Symbols()
		if e.opts.LegCFromFeedB {
			feeds[2] = feeds[1]
		}
		for i, s := range feeds {
			// Same symbol may appear on more than one leg.
			if slices.Contains(feeds[:i], s) {
				continue
			}
			e.symbolPathsMap[s] = append(e.symbolPathsMap[s], p)
		}
	}
	return e, nil
}

// Close closes the events topic, which closes all subscribers.
func (e *Evaluator) Close() {
	e.eventsTopic.Close()
}

// Subscribe returns a receiver for opportunity events. Receiver keeps up to
// limit undelivered events when limit is positive.
func (e *Evaluator) Subscribe(limit int) (*topic.Receiver[*gobs.OpportunityEvent], error) {
	return topic.Subscribe(e.eventsTopic, limit, false)
}

// EvaluateSymbol evaluates all paths that trade the symbol and publishes an
// event for every profitable path. Safe for concurrent use.
func (e *Evaluator) EvaluateSymbol(symbol string) []*gobs.OpportunityEvent {
	paths := e.symbolPathsMap[symbol]
	if len(paths) == 0 {
		return nil
	}
	return e.publish(paths, symbol)
}

// EvaluateAll evaluates every path and publishes profitable outcomes.
func (e *Evaluator) EvaluateAll() []*gobs.OpportunityEvent {
	return e.publish(e.paths, "")
}

func (e *Evaluator) publish(paths []*gobs.TriangularPath, trigger string) []*gobs.OpportunityEvent {
	events := evaluate(paths, e.books, e.initial, &e.opts, trigger)
	e.numEvaluations.Add(int64(len(paths)))
	e.numOpportunities.Add(int64(len(events)))
	for _, ev := range events {
		e.eventsTopic.Send(ev)
	}
	return events
}

// Symbols returns the symbols with at least one dependent path, sorted.
func (e *Evaluator) Symbols() []string {
	var symbols []string
	for s := range e.symbolPathsMap {
		symbols = append(symbols, s)
	}
	slices.Sort(symbols)
	return symbols
}

func (e *Evaluator) NumEvaluations() int64 {
	return e.numEvaluations.Load()
}

func (e *Evaluator) NumOpportunities() int64 {
	return e.numOpportunities.Load()
}
