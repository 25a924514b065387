// Copyright (c) 2025 BVK Chaitanya

package sink

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/triarb/gobs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
)

type recordSink struct {
	mu     sync.Mutex
	err    error
	events []*gobs.OpportunityEvent
	closed bool
}

func (r *recordSink) Name() string { return "record" }

func (r *recordSink) Close() error {
	r.closed = true
	return r.err
}

func (r *recordSink) Publish(ctx context.Context, ev *gobs.OpportunityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func testEvent(seq int, at time.Time) *gobs.OpportunityEvent {
	return &gobs.OpportunityEvent{
		ID: uuid.New(),
		Path: &gobs.TriangularPath{
			SequenceNumber: seq,
			Operation:      "BSB",
			InitialAsset:   "BTC",
			LegA:           gobs.Leg{BaseAsset: "ETH", QuoteAsset: "BTC", Symbol: "ETHBTC"},
			LegB:           gobs.Leg{BaseAsset: "ETH", QuoteAsset: "USDT", Symbol: "ETHUSDT"},
			LegC:           gobs.Leg{BaseAsset: "BTC", QuoteAsset: "USDT", Symbol: "BTCUSDT"},
		},
		InitialQuantity: decimal.NewFromInt(10),
		FinalQuantity:   decimal.RequireFromString("10.02"),
		Profit:          decimal.RequireFromString("0.02"),
		ProfitAsset:     "BTC",
		DetectedAt:      at,
	}
}

func TestRun(t *testing.T) {
	tp := topic.New[*gobs.OpportunityEvent]()
	receiver, err := topic.Subscribe(tp, 0, false)
	if err != nil {
		t.Fatal(err)
	}

	failing := &recordSink{err: errors.New("unavailable")}
	good := new(recordSink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, receiver, failing, Log(), good)
	}()

	now := time.Now()
	tp.Send(testEvent(1, now))
	tp.Send(testEvent(2, now))

	deadline := time.Now().Add(5 * time.Second)
	for good.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("want 2 events after a failing sink, got %d", good.count())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if failing.count() != 2 {
		t.Fatalf("want failing sink to see 2 events, got %d", failing.count())
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	receiver.Close()
	tp.Close()
}

func TestCloseAll(t *testing.T) {
	a, b := new(recordSink), &recordSink{err: errors.New("close failed")}
	if err := CloseAll(a, b); err == nil {
		t.Fatalf("want non-nil error")
	}
	if !a.closed || !b.closed {
		t.Fatalf("want all sinks closed")
	}
}

type recordMessenger struct {
	texts []string
}

func (r *recordMessenger) SendMessage(ctx context.Context, at time.Time, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	m := new(recordMessenger)
	n := NewNotifier("test", m, time.Minute)

	now := time.Now()
	events := []*gobs.OpportunityEvent{
		testEvent(1, now),
		testEvent(1, now.Add(30*time.Second)),
		testEvent(2, now.Add(30*time.Second)),
		testEvent(1, now.Add(61*time.Second)),
	}
	for _, ev := range events {
		if err := n.Publish(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	if len(m.texts) != 3 {
		t.Fatalf("want 3 messages with one throttled, got %d", len(m.texts))
	}
	if !strings.HasPrefix(m.texts[1], "Path #2 BSB ETHBTC -> ETHUSDT -> BTCUSDT") {
		t.Fatalf("unexpected message %q", m.texts[1])
	}

	unlimited := NewNotifier("test", m, 0)
	for i := 0; i < 3; i++ {
		unlimited.Publish(ctx, testEvent(1, now))
	}
	if len(m.texts) != 6 {
		t.Fatalf("want no throttling with zero interval, got %d messages", len(m.texts))
	}
}

func TestFormatText(t *testing.T) {
	got := FormatText(testEvent(3, time.Now()))
	want := "Path #3 BSB ETHBTC -> ETHUSDT -> BTCUSDT: 10 BTC returns 10.02 (profit 0.02000000 BTC)"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestRecent(t *testing.T) {
	ctx := context.Background()
	r := NewRecent(3)
	if got := r.Events(0); len(got) != 0 {
		t.Fatalf("want no events, got %d", len(got))
	}

	now := time.Now()
	for i := 1; i <= 5; i++ {
		r.Publish(ctx, testEvent(i, now))
	}

	got := r.Events(0)
	if len(got) != 3 {
		t.Fatalf("want 3 retained events, got %d", len(got))
	}
	for i, want := range []int{5, 4, 3} {
		if seq := got[i].Path.SequenceNumber; seq != want {
			t.Fatalf("want path %d at %d, got %d", want, i, seq)
		}
	}
	if got := r.Events(2); len(got) != 2 || got[0].Path.SequenceNumber != 5 {
		t.Fatalf("want 2 newest events, got %d", len(got))
	}
}
