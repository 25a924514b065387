// Copyright (c) 2025 BVK Chaitanya

package redis

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/triarb/gobs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeServer is a minimal RESP2 server that records the commands it receives.
type fakeServer struct {
	ln net.Listener

	mu       sync.Mutex
	commands [][]string
}

func newFakeServer(t *testing.T) *fakeServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &fakeServer{ln: ln}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("unexpected line %q", line)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}
	var args []string
	for i := 0; i < n; i++ {
		hdr, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(hdr)[1:])
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.commands = append(s.commands, args)
		s.mu.Unlock()

		var reply string
		switch strings.ToUpper(args[0]) {
		case "HELLO":
			reply = "-ERR unknown command 'HELLO'\r\n"
		case "PING":
			reply = "+PONG\r\n"
		case "PUBLISH":
			reply = ":1\r\n"
		case "XADD":
			id := "1700000000000-0"
			reply = fmt.Sprintf("$%d\r\n%s\r\n", len(id), id)
		default:
			reply = "+OK\r\n"
		}
		if _, err := io.WriteString(conn, reply); err != nil {
			return
		}
	}
}

func (s *fakeServer) find(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cmd := range s.commands {
		if strings.EqualFold(cmd[0], name) {
			return cmd
		}
	}
	return nil
}

func testEvent() *gobs.OpportunityEvent {
	return &gobs.OpportunityEvent{
		ID: uuid.New(),
		Path: &gobs.TriangularPath{
			SequenceNumber: 7,
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
		DetectedAt:      time.Now(),
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t)

	opts := &Options{
		Addr:    srv.ln.Addr().String(),
		Channel: "triarb:opportunities",
		Stream:  "triarb:opportunities:stream",
		MaxLen:  100,
	}
	s, err := New(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ev := testEvent()
	if err := s.Publish(ctx, ev); err != nil {
		t.Fatal(err)
	}

	pub := srv.find("PUBLISH")
	if len(pub) != 3 || pub[1] != "triarb:opportunities" {
		t.Fatalf("unexpected publish command %q", pub)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(pub[2]), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["id"] != ev.ID.String() || payload["profit"] != "0.02" {
		t.Fatalf("unexpected payload %v", payload)
	}

	xadd := strings.Join(srv.find("XADD"), " ")
	if !strings.HasPrefix(xadd, "XADD triarb:opportunities:stream MAXLEN ~ 100 ") && !strings.HasPrefix(xadd, "xadd triarb:opportunities:stream maxlen ~ 100 ") {
		t.Fatalf("unexpected xadd command %q", xadd)
	}
}

func TestPublishChannelOnly(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t)

	s, err := New(ctx, &Options{Addr: srv.ln.Addr().String(), Channel: "ch"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Publish(ctx, testEvent()); err != nil {
		t.Fatal(err)
	}
	if srv.find("XADD") != nil {
		t.Fatalf("want no stream appends without a stream name")
	}
}
