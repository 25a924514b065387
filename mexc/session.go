// Copyright (c) 2025 BVK Chaitanya

package mexc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvk/triarb/ctxutil"
	"github.com/bvk/triarb/depth"
	"github.com/sugawarayuuta/sonnet"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	SubscriptionSent
	Streaming
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case SubscriptionSent:
		return "SUBSCRIPTION_SENT"
	case Streaming:
		return "STREAMING"
	case Closing:
		return "CLOSING"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Updater receives decoded order-book ladders.
type Updater interface {
	Update(symbol string, asks, bids depth.Ladder)
}

// UpdateHandler is called after every order-book update, from the session's
// goroutine.
type UpdateHandler func(symbol string)

// Session maintains a partial depth stream for one symbol. It reconnects and
// resubscribes after every transport failure till its context is canceled.
type Session struct {
	opts SessionOptions

	symbol  string
	channel string

	dialer  Dialer
	books   Updater
	handler UpdateHandler

	state atomic.Int32

	// lastID holds the last request id. Ids are never reused, even across
	// reconnects.
	lastID atomic.Int64

	numConnects atomic.Int64
	numUpdates  atomic.Int64
}

// NewSession creates a session for the symbol. Handler can be nil.
func NewSession(symbol string, books Updater, handler UpdateHandler, dialer Dialer, opts *SessionOptions) (*Session, error) {
	if opts == nil {
		opts = new(SessionOptions)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if len(symbol) == 0 {
		return nil, fmt.Errorf("symbol cannot be empty: %w", os.ErrInvalid)
	}
	if dialer == nil {
		dialer = DefaultDialer()
	}
	s := &Session{
		opts:    *opts,
		symbol:  symbol,
		channel: DepthChannel(symbol, opts.Depth),
		dialer:  dialer,
		books:   books,
		handler: handler,
	}
	return s, nil
}

func (s *Session) Symbol() string {
	return s.symbol
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// NumConnects returns the number of successful dials.
func (s *Session) NumConnects() int64 {
	return s.numConnects.Load()
}

// NumUpdates returns the number of order-book updates received.
func (s *Session) NumUpdates() int64 {
	return s.numUpdates.Load()
}

func (s *Session) setState(state State) {
	if old := State(s.state.Swap(int32(state))); old != state {
		slog.Debug("session state changed", "symbol", s.symbol, "from", old, "to", state)
	}
}

func (s *Session) nextID() int64 {
	return s.lastID.Add(1)
}

// Run streams till the context is canceled. Always returns the context's
// cancellation cause.
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("CAUGHT PANIC", "panic", r)
			slog.Error(string(debug.Stack()))
			panic(r)
		}
	}()

	for n := 1; ctx.Err() == nil; n++ {
		streamed, err := s.connect(ctx)
		s.setState(Disconnected)
		if ctx.Err() != nil {
			break
		}
		if streamed {
			n = 1
		}
		if err != nil && !errors.Is(err, os.ErrClosed) {
			slog.Warn("depth stream failed (will reconnect)", "symbol", s.symbol, "err", err)
		} else {
			slog.Info("depth stream closed (will reconnect)", "symbol", s.symbol)
		}
		if err := ctxutil.Sleep(ctx, s.opts.Backoff(n)); err != nil {
			break
		}
	}
	return context.Cause(ctx)
}

// connect runs a single connection till it fails. Returns true if the
// connection reached the streaming state.
func (s *Session) connect(ctx context.Context) (streamed bool, status error) {
	s.setState(Connecting)
	conn, err := s.dialer.Dial(ctx, s.opts.WebsocketURL)
	if err != nil {
		return false, fmt.Errorf("could not dial websocket: %w", err)
	}
	s.numConnects.Add(1)

	ctx, cancel := context.WithCancelCause(ctx)
	var wg sync.WaitGroup
	defer func() {
		s.setState(Closing)
		cancel(os.ErrClosed)
		conn.Close()
		wg.Wait()
	}()

	sub := &Request{
		Method: "SUBSCRIPTION",
		Params: []string{s.channel},
		ID:     s.nextID(),
	}
	if err := conn.WriteJSON(sub); err != nil {
		return false, fmt.Errorf("could not send subscription request: %w", err)
	}
	s.setState(SubscriptionSent)

	for ctx.Err() == nil {
		data, err := s.readMessage(ctx, conn)
		if err != nil {
			return streamed, err
		}
		if !streamed {
			streamed = true
			s.setState(Streaming)
			slog.Info("depth stream is active", "symbol", s.symbol, "channel", s.channel)

			wg.Add(1)
			go func() {
				defer wg.Done()
				s.keepalive(ctx, conn, cancel)
			}()
		}
		s.handleMessage(data)
	}
	return streamed, context.Cause(ctx)
}

func (s *Session) readMessage(ctx context.Context, conn Conn) ([]byte, error) {
	stopc := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
		close(stopc)
	})

	_, data, err := conn.ReadMessage()
	if !stop() {
		// The AfterFunc was started. Wait for it to complete, and reset the Conn's
		// deadline.
		<-stopc
		conn.SetReadDeadline(time.Time{})
		return nil, context.Cause(ctx)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Session) keepalive(ctx context.Context, conn Conn, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(s.opts.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping := &Request{Method: "PING", ID: s.nextID()}
			if err := conn.WriteJSON(ping); err != nil {
				slog.Warn("could not send websocket ping; closing the connection", "symbol", s.symbol, "err", err)
				cancel(err)
				return
			}
		}
	}
}

func (s *Session) handleMessage(data []byte) {
	msg := new(Message)
	if err := sonnet.Unmarshal(data, msg); err != nil {
		slog.Warn("could not unmarshal websocket message (ignored)", "symbol", s.symbol, "err", err)
		return
	}
	if !strings.HasPrefix(msg.Channel, DepthChannelPrefix) {
		if msg.Code != 0 {
			slog.Warn("websocket request failed", "symbol", s.symbol, "id", msg.ID, "code", msg.Code, "msg", msg.Message)
		}
		return
	}
	if msg.Data == nil || len(msg.Symbol) == 0 {
		return
	}
	asks, bids, err := msg.Data.Ladders()
	if err != nil {
		slog.Warn("could not decode depth message (ignored)", "symbol", msg.Symbol, "err", err)
		return
	}
	s.books.Update(msg.Symbol, asks, bids)
	s.numUpdates.Add(1)
	if s.handler != nil {
		s.handler(msg.Symbol)
	}
}
