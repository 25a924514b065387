// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/triarb/api"
	"github.com/bvk/triarb/config"
	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/mexc"
	"github.com/bvk/triarb/sink"
	"github.com/bvk/triarb/supervisor"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// books holds asks and bids json per symbol for a profitable BSB path.
var books = map[string][2]string{
	"ETHBTC":  {`[{"p":"1","v":"9.8"},{"p":"2","v":"5"}]`, `[{"p":"0.9","v":"100"}]`},
	"ETHUSDT": {`[{"p":"1.1","v":"100"}]`, `[{"p":"1","v":"9.8"},{"p":"0.5","v":"0.1"}]`},
	"BTCUSDT": {`[{"p":"0.98","v":"10"},{"p":"2.5","v":"1"}]`, `[{"p":"0.9","v":"100"}]`},
}

// streamConn sends one depth message for the subscribed symbol and then
// blocks till closed.
type streamConn struct {
	inCh chan []byte

	closeCh   chan struct{}
	closeOnce sync.Once
}

func (c *streamConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.inCh:
		return websocket.TextMessage, data, nil
	case <-c.closeCh:
		return 0, nil, net.ErrClosed
	}
}

func (c *streamConn) WriteJSON(v any) error {
	req, ok := v.(*mexc.Request)
	if !ok || req.Method != "SUBSCRIPTION" {
		return nil
	}
	channel := req.Params[0]
	parts := strings.Split(channel, "@")
	symbol := parts[len(parts)-2]
	book, ok := books[symbol]
	if !ok {
		return io.ErrUnexpectedEOF
	}
	msg := fmt.Sprintf(`{"c":%q,"s":%q,"t":1,"d":{"asks":%s,"bids":%s,"e":"spot@public.limit.depth.v3.api","r":"1"}}`, channel, symbol, book[0], book[1])
	c.inCh <- []byte(msg)
	return nil
}

func (c *streamConn) SetReadDeadline(t time.Time) error {
	if !t.IsZero() {
		c.Close()
	}
	return nil
}

func (c *streamConn) Close() error {
	c.closeOnce.Do(func() { close(c.closeCh) })
	return nil
}

type streamDialer struct{}

func (streamDialer) Dial(ctx context.Context, addr string) (mexc.Conn, error) {
	return &streamConn{inCh: make(chan []byte, 1), closeCh: make(chan struct{})}, nil
}

type recordSink struct {
	mu     sync.Mutex
	events []*gobs.OpportunityEvent
}

func (r *recordSink) Name() string { return "record" }

func (r *recordSink) Close() error { return nil }

func (r *recordSink) Publish(ctx context.Context, ev *gobs.OpportunityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func leg(base, quote string) gobs.Leg {
	return gobs.Leg{BaseAsset: base, QuoteAsset: quote, Symbol: base + quote}
}

func testPaths() []*gobs.TriangularPath {
	return []*gobs.TriangularPath{{
		SequenceNumber:    1,
		Classification:    "baba",
		Operation:         "BSB",
		InitialAsset:      "BTC",
		IntermediaryAsset: "USDT",
		FinalAsset:        "BTC",
		LegA:              leg("ETH", "BTC"),
		LegB:              leg("ETH", "USDT"),
		LegC:              leg("BTC", "USDT"),
	}}
}

func testOptions(initial string) *Options {
	return &Options{
		InitialAsset:    initial,
		InitialQuantity: decimal.NewFromInt(10),
		Dialer:          streamDialer{},
		Supervisor: supervisor.Options{
			StartRate: 1000,
		},
	}
}

func TestServerRun(t *testing.T) {
	rec := new(recordSink)
	s, err := New(testPaths(), []sink.Sink{rec}, nil, testOptions("BTC"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for rec.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("want an opportunity event")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := s.Opportunities(ctx, &api.OpportunitiesRequest{})
	if err != nil {
		t.Fatal(err)
	}
	// Concurrent updates may evaluate the path more than once.
	if len(resp.Opportunities) == 0 {
		t.Fatalf("want at least 1 opportunity")
	}
	op := resp.Opportunities[0]
	if !op.Profit.Equal(decimal.RequireFromString("0.02")) || op.ProfitAsset != "BTC" || op.PathID != 1 {
		t.Fatalf("unexpected opportunity %+v", op)
	}

	st, err := s.Status(ctx, &api.StatusRequest{IncludeSessions: true})
	if err != nil {
		t.Fatal(err)
	}
	if st.NumPaths != 1 || st.NumSymbols != 3 || st.NumBooks != 3 || len(st.Sessions) != 3 {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.NumOpportunities < 1 {
		t.Fatalf("want opportunities in status, got %d", st.NumOpportunities)
	}
	if st.Sinks[0] != "recent" || st.Sinks[1] != "record" {
		t.Fatalf("unexpected sinks %v", st.Sinks)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestNewNoPaths(t *testing.T) {
	if _, err := New(testPaths(), nil, nil, testOptions("ETH")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}
	opts := testOptions("BTC")
	opts.InitialQuantity = decimal.Zero
	if _, err := New(testPaths(), nil, nil, opts); err == nil {
		t.Fatalf("want non-nil error for zero initial quantity")
	}
}

func TestOpportunitiesLimit(t *testing.T) {
	s, err := New(testPaths(), nil, nil, testOptions(""))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Opportunities(context.Background(), &api.OpportunitiesRequest{Limit: -1}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid, got %v", err)
	}
}

func TestOpenSinks(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.SQLite.Enabled = true

	sinks, tclient, err := OpenSinks(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.CloseAll(sinks...)

	if tclient != nil {
		t.Fatalf("want no telegram client")
	}
	if len(sinks) != 2 || sinks[0].Name() != "log" || sinks[1].Name() != "sqlite" {
		t.Fatalf("unexpected sinks")
	}

	opts := NewOptions(cfg)
	if opts.InitialAsset != "ETH" || opts.MaxDepth != 20 || !opts.InitialQuantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected options %+v", opts)
	}
}
