// Copyright (c) 2025 BVK Chaitanya

// Package supervisor runs one depth stream session per symbol.
package supervisor

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/bvk/triarb/ctxutil"
	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/mexc"
	"github.com/bvk/triarb/pathgen"
	"github.com/bvk/triarb/syncmap"
	"golang.org/x/time/rate"
)

type Options struct {
	// StartRate is the max number of sessions started per second.
	StartRate float64

	// Session holds the options for every session.
	Session mexc.SessionOptions
}

func (v *Options) setDefaults() {
	if v.StartRate <= 0 {
		v.StartRate = 5
	}
}

type Supervisor struct {
	cg ctxutil.CloseGroup

	opts Options

	books   mexc.Updater
	handler mexc.UpdateHandler
	dialer  mexc.Dialer

	limiter *rate.Limiter

	sessionMap syncmap.Map[string, *mexc.Session]
}

// New creates a supervisor. Every session writes into books and calls the
// handler after each update.
func New(books mexc.Updater, handler mexc.UpdateHandler, dialer mexc.Dialer, opts *Options) *Supervisor {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Supervisor{
		opts:    *opts,
		books:   books,
		handler: handler,
		dialer:  dialer,
		limiter: rate.NewLimiter(rate.Limit(opts.StartRate), 1),
	}
}

// Close stops all sessions and waits for them to return.
func (s *Supervisor) Close() {
	s.cg.Close()
}

// Start starts a session for every symbol that doesn't have one already.
// Session start-ups are spread over time by the start rate, so Start may
// block. Sessions run till the context is canceled or the supervisor is
// closed.
func (s *Supervisor) Start(ctx context.Context, symbols []string) error {
	for _, symbol := range symbols {
		if _, ok := s.sessionMap.Load(symbol); ok {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		opts := s.opts.Session
		session, err := mexc.NewSession(symbol, s.books, s.handler, s.dialer, &opts)
		if err != nil {
			slog.Error("could not create depth stream session", "symbol", symbol, "err", err)
			return err
		}
		if _, loaded := s.sessionMap.LoadOrStore(symbol, session); loaded {
			continue
		}
		s.cg.Go(ctx, func(ctx context.Context) {
			session.Run(ctx)
		})
		slog.Debug("started depth stream session", "symbol", symbol)
	}
	return nil
}

// Symbols returns the symbols with a session, sorted.
func (s *Supervisor) Symbols() []string {
	symbols := s.sessionMap.Keys()
	slices.Sort(symbols)
	return symbols
}

// Sessions returns all sessions ordered by symbol.
func (s *Supervisor) Sessions() []*mexc.Session {
	var sessions []*mexc.Session
	for _, session := range s.sessionMap.Range {
		sessions = append(sessions, session)
	}
	slices.SortFunc(sessions, func(a, b *mexc.Session) int {
		return strings.Compare(a.Symbol(), b.Symbol())
	})
	return sessions
}

// States returns the current state of every session.
func (s *Supervisor) States() map[string]mexc.State {
	states := make(map[string]mexc.State)
	for symbol, session := range s.sessionMap.Range {
		states[symbol] = session.State()
	}
	return states
}

// NumStreaming returns the number of sessions in the streaming state.
func (s *Supervisor) NumStreaming() int {
	n := 0
	for _, session := range s.sessionMap.Range {
		if session.State() == mexc.Streaming {
			n++
		}
	}
	return n
}

// RequiredSymbols returns the unique leg symbols of all paths that start with
// the initial asset, in first-seen order. Empty initial asset selects all
// paths.
func RequiredSymbols(paths []*gobs.TriangularPath, initialAsset string) []string {
	if len(initialAsset) != 0 {
		paths = pathgen.FilterByInitial(paths, initialAsset)
	}
	return pathgen.Symbols(paths)
}
