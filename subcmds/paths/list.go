// Copyright (c) 2025 BVK Chaitanya

package paths

import (
	"context"
	"flag"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/pathdb"
	"github.com/bvk/triarb/pathgen"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type List struct {
	cmdutil.DBFlags

	initial string
	symbol  string

	summary bool
}

func (c *List) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.initial, "initial", "", "lists only the paths starting with this asset")
	fset.StringVar(&c.symbol, "symbol", "", "lists only the paths trading this symbol")
	fset.BoolVar(&c.summary, "summary", false, "prints path counts per initial asset")
	return "list", fset, cli.CmdFunc(c.run)
}

func (c *List) Purpose() string {
	return "Prints the triangular paths saved in the database"
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	paths, meta, err := pathdb.Load(ctx, db)
	if err != nil {
		return fmt.Errorf("could not load paths (run \"paths generate\" first?): %w", err)
	}
	paths = filterPaths(paths, strings.ToUpper(c.initial), strings.ToUpper(c.symbol))

	stdout := cli.Stdout(ctx)
	fmt.Fprintf(stdout, "# %d of %d paths from %s generated at %s\n", len(paths), meta.NumPaths, meta.Exchange, time.Unix(meta.GeneratedAt, 0).Format(time.RFC3339))

	tw := tabwriter.NewWriter(stdout, 8, 4, 2, ' ', 0)
	defer tw.Flush()

	if c.summary {
		fmt.Fprintf(tw, "Initial\tPaths\n")
		for _, asset := range pathgen.InitialAssets(paths) {
			fmt.Fprintf(tw, "%s\t%d\n", asset, len(pathgen.FilterByInitial(paths, asset)))
		}
		return nil
	}

	fmt.Fprintf(tw, "N\tOperation\tInitial\tIntermediary\tA\tB\tC\n")
	for _, p := range paths {
		s := p.Symbols()
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", p.SequenceNumber, p.Operation, p.InitialAsset, p.IntermediaryAsset, s[0], s[1], s[2])
	}
	return nil
}

func filterPaths(paths []*gobs.TriangularPath, initial, symbol string) []*gobs.TriangularPath {
	if len(initial) != 0 {
		paths = pathgen.FilterByInitial(paths, initial)
	}
	if len(symbol) != 0 {
		paths = slices.DeleteFunc(slices.Clone(paths), func(p *gobs.TriangularPath) bool {
			s := p.Symbols()
			return !slices.Contains(s[:], symbol)
		})
	}
	return paths
}
