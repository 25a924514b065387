// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bvk/triarb/api"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/dustin/go-humanize"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.ClientFlags

	sessions bool
}

func (c *Status) Purpose() string {
	return "Prints the running detector status"
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.sessions, "sessions", false, "when true, prints the depth stream state of every symbol")
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	req := &api.StatusRequest{IncludeSessions: c.sessions}
	resp, err := cmdutil.Post[api.StatusResponse](ctx, &c.ClientFlags, api.StatusPath, req)
	if err != nil {
		return err
	}

	stdout := cli.Stdout(ctx)
	tw := tabwriter.NewWriter(stdout, 8, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Pid\t%d\n", resp.Pid)
	fmt.Fprintf(tw, "Uptime\t%s\n", time.Since(resp.StartedAt).Truncate(time.Second))
	fmt.Fprintf(tw, "Initial\t%s %s\n", resp.InitialQuantity, resp.InitialAsset)
	fmt.Fprintf(tw, "Paths\t%d\n", resp.NumPaths)
	fmt.Fprintf(tw, "Symbols\t%d\n", resp.NumSymbols)
	fmt.Fprintf(tw, "Streaming\t%d\n", resp.NumStreaming)
	fmt.Fprintf(tw, "Books\t%d\n", resp.NumBooks)
	fmt.Fprintf(tw, "Evaluations\t%d\n", resp.NumEvaluations)
	fmt.Fprintf(tw, "Opportunities\t%d\n", resp.NumOpportunities)
	fmt.Fprintf(tw, "Sinks\t%s\n", strings.Join(resp.Sinks, ","))
	if resp.RSS != 0 {
		fmt.Fprintf(tw, "Memory\t%s\n", humanize.IBytes(resp.RSS))
		fmt.Fprintf(tw, "CPU\t%.1f%%\n", resp.CPUPercent)
	}
	fmt.Fprintf(tw, "Goroutines\t%d\n", resp.NumGoroutines)
	tw.Flush()

	if len(resp.Sessions) == 0 {
		return nil
	}

	fmt.Fprintln(stdout)
	tw = tabwriter.NewWriter(stdout, 8, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Symbol\tState\tConnects\tUpdates\tLast Update\t\n")
	for _, s := range resp.Sessions {
		last := "-"
		if !s.LastUpdate.IsZero() {
			last = humanize.Time(s.LastUpdate)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t\n", s.Symbol, s.State, s.NumConnects, s.NumUpdates, last)
	}
	tw.Flush()
	return nil
}
