// Copyright (c) 2023 BVK Chaitanya

// Package server runs the live detector: depth stream sessions for the
// watched symbols, the evaluator fed by them and the opportunity sinks.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/bvk/triarb/api"
	"github.com/bvk/triarb/evaluator"
	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/httputil"
	"github.com/bvk/triarb/orderbook"
	"github.com/bvk/triarb/pathgen"
	"github.com/bvk/triarb/sink"
	"github.com/bvk/triarb/supervisor"
	"github.com/bvk/triarb/telegram"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	opts Options

	startedAt time.Time

	paths   []*gobs.TriangularPath
	symbols []string

	books      *orderbook.Store
	evaluator  *evaluator.Evaluator
	supervisor *supervisor.Supervisor

	recent *sink.Recent
	sinks  []sink.Sink

	telegramClient *telegram.Client

	proc *process.Process
}

// New creates a detector for the paths that start with the initial asset.
// Server takes ownership of the sinks. Telegram client is optional and is
// used to serve bot commands.
func New(paths []*gobs.TriangularPath, sinks []sink.Sink, tclient *telegram.Client, opts *Options) (_ *Server, status error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	if len(opts.InitialAsset) != 0 {
		paths = pathgen.FilterByInitial(paths, opts.InitialAsset)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths start with initial asset %q: %w", opts.InitialAsset, os.ErrNotExist)
	}

	s := &Server{
		opts:           *opts,
		startedAt:      time.Now(),
		paths:          paths,
		symbols:        supervisor.RequiredSymbols(paths, ""),
		books:          orderbook.New(opts.MaxDepth),
		recent:         sink.NewRecent(opts.RecentSize),
		telegramClient: tclient,
	}
	s.sinks = append([]sink.Sink{s.recent}, sinks...)

	e, err := evaluator.New(paths, s.books, opts.InitialQuantity, &s.opts.Evaluator)
	if err != nil {
		return nil, err
	}
	s.evaluator = e

	handler := func(symbol string) {
		s.evaluator.EvaluateSymbol(symbol)
	}
	s.supervisor = supervisor.New(s.books, handler, opts.Dialer, &s.opts.Supervisor)

	if p, err := process.NewProcess(int32(os.Getpid())); err != nil {
		slog.Warn("could not open process stats (ignored)", "err", err)
	} else {
		s.proc = p
	}
	return s, nil
}

// Close stops the sessions and closes the sinks.
func (s *Server) Close() error {
	s.supervisor.Close()
	s.evaluator.Close()
	return sink.CloseAll(s.sinks...)
}

// Run streams the books and reports opportunities till the context is
// canceled. Returns the context's cancellation cause.
func (s *Server) Run(ctx context.Context) error {
	receiver, err := s.evaluator.Subscribe(s.opts.ReceiveLimit)
	if err != nil {
		return fmt.Errorf("could not subscribe to opportunity events: %w", err)
	}
	defer receiver.Close()

	if err := s.addTelegramCommands(ctx); err != nil {
		return err
	}

	slog.Info("starting detector", "initial-asset", s.opts.InitialAsset, "initial-quantity", s.opts.InitialQuantity, "paths", len(s.paths), "symbols", len(s.symbols), "sinks", s.sinkNames())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sink.Run(gctx, receiver, s.sinks...)
	})
	g.Go(func() error {
		if err := s.supervisor.Start(gctx, s.symbols); err != nil {
			return fmt.Errorf("could not start all depth stream sessions: %w", err)
		}
		slog.Info("started all depth stream sessions", "symbols", len(s.symbols))
		return nil
	})
	if s.opts.StatusInterval > 0 {
		g.Go(func() error {
			return s.logStatus(gctx)
		})
	}

	err = g.Wait()
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	if err == nil {
		err = errors.New("detector stopped unexpectedly")
	}
	return err
}

func (s *Server) sinkNames() []string {
	var names []string
	for _, v := range s.sinks {
		names = append(names, v.Name())
	}
	return names
}

func (s *Server) logStatus(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-ticker.C:
			st := s.status(false)
			slog.Info("detector status", "streaming", st.NumStreaming, "symbols", st.NumSymbols, "books", st.NumBooks, "evaluations", st.NumEvaluations, "opportunities", st.NumOpportunities, "rss", st.RSS, "cpu", st.CPUPercent)
		}
	}
}

func (s *Server) status(sessions bool) *api.StatusResponse {
	resp := &api.StatusResponse{
		Pid:              os.Getpid(),
		StartedAt:        s.startedAt,
		InitialAsset:     s.opts.InitialAsset,
		InitialQuantity:  s.opts.InitialQuantity,
		NumPaths:         len(s.paths),
		NumSymbols:       len(s.symbols),
		NumStreaming:     s.supervisor.NumStreaming(),
		NumBooks:         s.books.Len(),
		NumEvaluations:   s.evaluator.NumEvaluations(),
		NumOpportunities: s.evaluator.NumOpportunities(),
		Sinks:            s.sinkNames(),
		NumGoroutines:    runtime.NumGoroutine(),
	}
	if s.proc != nil {
		if m, err := s.proc.MemoryInfo(); err == nil {
			resp.RSS = m.RSS
		}
		if v, err := s.proc.CPUPercent(); err == nil {
			resp.CPUPercent = v
		}
	}
	if sessions {
		for _, v := range s.supervisor.Sessions() {
			ss := &api.SessionStatus{
				Symbol:      v.Symbol(),
				State:       v.State().String(),
				NumConnects: v.NumConnects(),
				NumUpdates:  v.NumUpdates(),
			}
			if at, ok := s.books.UpdatedAt(v.Symbol()); ok {
				ss.LastUpdate = at
			}
			resp.Sessions = append(resp.Sessions, ss)
		}
	}
	return resp
}

func (s *Server) Status(ctx context.Context, req *api.StatusRequest) (*api.StatusResponse, error) {
	return s.status(req.IncludeSessions), nil
}

func (s *Server) Opportunities(ctx context.Context, req *api.OpportunitiesRequest) (*api.OpportunitiesResponse, error) {
	if req.Limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %w", os.ErrInvalid)
	}
	resp := new(api.OpportunitiesResponse)
	for _, ev := range s.recent.Events(req.Limit) {
		symbols := ev.Path.Symbols()
		resp.Opportunities = append(resp.Opportunities, &api.Opportunity{
			ID:              ev.ID,
			PathID:          ev.Path.SequenceNumber,
			Operation:       ev.Path.Operation,
			Symbols:         symbols[:],
			Trigger:         ev.Trigger,
			InitialQuantity: ev.InitialQuantity,
			FinalQuantity:   ev.FinalQuantity,
			Profit:          ev.Profit,
			ProfitAsset:     ev.ProfitAsset,
			DetectedAt:      ev.DetectedAt,
		})
	}
	return resp, nil
}

// HandlerMap returns the api handlers keyed by their http paths.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		api.StatusPath:        httputil.PostJSONHandler(s.Status),
		api.OpportunitiesPath: httputil.PostJSONHandler(s.Opportunities),
	}
}
