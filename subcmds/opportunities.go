// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bvk/triarb/api"
	"github.com/bvk/triarb/sink/sqlite"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/bvk/triarb/timerange"
	"github.com/visvasity/cli"
)

type Opportunities struct {
	cmdutil.ClientFlags
	cmdutil.ConfigFlags

	limit int

	period string

	fromSQLite bool
}

func (c *Opportunities) Purpose() string {
	return "Prints recently detected arbitrage opportunities"
}

func (c *Opportunities) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("opportunities", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	c.ConfigFlags.SetFlags(fset)
	fset.IntVar(&c.limit, "limit", 20, "max number of opportunities to print")
	fset.StringVar(&c.period, "period", "", "selects opportunities from today, yesterday, this-week, last-week or a duration till now")
	fset.BoolVar(&c.fromSQLite, "sqlite", false, "when true, reads the opportunities from the sqlite database file")
	return "opportunities", fset, cli.CmdFunc(c.run)
}

func (c *Opportunities) Description() string {
	return `

Command "opportunities" prints the most recent opportunities, newest first.

By default, opportunities are fetched from the running detector which only
keeps a limited number of them in memory. With the -sqlite flag, opportunities
are read from the sqlite database file configured for the sqlite sink, which
works even when the detector is not running.

Opportunities can be limited to a period with the -period flag, for example,
"-period=today" or "-period=30m".

`
}

func (c *Opportunities) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if c.limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	period, err := timerange.Parse(c.period, time.Now())
	if err != nil {
		return err
	}

	var rows [][]string
	if c.fromSQLite {
		cfg, err := c.ConfigFlags.LoadConfig()
		if err != nil {
			return err
		}
		s, err := sqlite.New(ctx, cfg.SQLiteFile())
		if err != nil {
			return err
		}
		defer s.Close()

		records, err := s.RecentIn(ctx, period, c.limit)
		if err != nil {
			return err
		}
		for _, r := range records {
			rows = append(rows, []string{
				r.DetectedAt.Format(time.DateTime), fmt.Sprintf("%d", r.PathSeq), r.Operation,
				strings.Join(r.Symbols, ","), r.Trigger, r.Profit + " " + r.ProfitAsset,
			})
		}
	} else {
		// Detector keeps a bounded number of events, so filter all of them.
		req := &api.OpportunitiesRequest{}
		resp, err := cmdutil.Post[api.OpportunitiesResponse](ctx, &c.ClientFlags, api.OpportunitiesPath, req)
		if err != nil {
			return err
		}
		for _, op := range resp.Opportunities {
			if !period.InRange(op.DetectedAt) {
				continue
			}
			if len(rows) == c.limit {
				break
			}
			rows = append(rows, []string{
				op.DetectedAt.Format(time.DateTime), fmt.Sprintf("%d", op.PathID), op.Operation,
				strings.Join(op.Symbols, ","), op.Trigger, op.Profit.String() + " " + op.ProfitAsset,
			})
		}
	}

	stdout := cli.Stdout(ctx)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No opportunities")
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 8, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Detected At\tPath\tOperation\tSymbols\tTrigger\tProfit\t\n")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t\n", strings.Join(row, "\t"))
	}
	tw.Flush()
	return nil
}
