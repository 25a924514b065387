// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bvk/triarb/sink"
	"github.com/dustin/go-humanize"
	"github.com/visvasity/cli"
)

func (s *Server) addTelegramCommands(ctx context.Context) error {
	if s.telegramClient == nil {
		return nil
	}
	if err := s.telegramClient.AddCommand(ctx, "status", "Prints the detector status", s.statusTelegramCmd); err != nil {
		return fmt.Errorf("could not add telegram status command: %w", err)
	}
	if err := s.telegramClient.AddCommand(ctx, "recent", "Prints recent opportunities", s.recentTelegramCmd); err != nil {
		return fmt.Errorf("could not add telegram recent command: %w", err)
	}
	return nil
}

func (s *Server) statusTelegramCmd(ctx context.Context, _ []string) error {
	stdout := cli.Stdout(ctx)
	st := s.status(false)
	fmt.Fprintf(stdout, "Watching %d paths from %s %s over %d symbols\n", st.NumPaths, st.InitialQuantity, st.InitialAsset, st.NumSymbols)
	fmt.Fprintf(stdout, "Streaming: %d/%d\n", st.NumStreaming, st.NumSymbols)
	fmt.Fprintf(stdout, "Evaluations: %d\n", st.NumEvaluations)
	fmt.Fprintf(stdout, "Opportunities: %d\n", st.NumOpportunities)
	fmt.Fprintf(stdout, "Uptime: %s\n", time.Since(st.StartedAt).Truncate(time.Second))
	if st.RSS != 0 {
		fmt.Fprintf(stdout, "Memory: %s\n", humanize.IBytes(st.RSS))
	}
	return nil
}

func (s *Server) recentTelegramCmd(ctx context.Context, args []string) error {
	limit := 5
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("argument must be a positive number")
		}
		limit = v
	}
	stdout := cli.Stdout(ctx)
	events := s.recent.Events(limit)
	if len(events) == 0 {
		fmt.Fprintln(stdout, "No opportunities yet")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(stdout, "%s %s\n", ev.DetectedAt.Format(time.TimeOnly), sink.FormatText(ev))
	}
	return nil
}
