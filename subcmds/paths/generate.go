// Copyright (c) 2025 BVK Chaitanya

package paths

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/mexc"
	"github.com/bvk/triarb/pathdb"
	"github.com/bvk/triarb/pathgen"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Generate struct {
	cmdutil.DBFlags

	output string

	noSave bool
}

func (c *Generate) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("generate", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.output, "output", "", "also writes the paths as json to this file")
	fset.BoolVar(&c.noSave, "no-save", false, "when true, paths are not saved in the database")
	return "generate", fset, cli.CmdFunc(c.run)
}

func (c *Generate) Purpose() string {
	return "Enumerates triangular paths from the exchange instruments"
}

func (c *Generate) Description() string {
	return `

Command "generate" fetches the list of instruments from the MEXC exchange and
enumerates every triangular path over the enabled instruments. Paths are saved
in the database, replacing any old paths, where the "run" command picks them
up.

Paths can also be written to a json file with the -output flag, which can be
used with "run -paths-file" or "paths import".

`
}

func (c *Generate) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if c.noSave && len(c.output) == 0 {
		return fmt.Errorf("-no-save requires -output flag")
	}

	cfg, err := c.DBFlags.ConfigFlags.LoadConfig()
	if err != nil {
		return err
	}

	client, err := mexc.New(cfg.ClientOptions())
	if err != nil {
		return fmt.Errorf("could not create exchange client: %w", err)
	}
	instruments, err := client.GetInstruments(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch instruments: %w", err)
	}

	start := time.Now()
	paths, err := pathgen.Enumerate(instruments)
	if err != nil {
		return err
	}
	slog.Info("enumerated triangular paths", "instruments", len(instruments), "paths", len(paths), "took", time.Since(start))

	if len(c.output) != 0 {
		if err := pathdb.WriteFile(c.output, paths); err != nil {
			return fmt.Errorf("could not write paths file %q: %w", c.output, err)
		}
	}

	if !c.noSave {
		db, closer, err := c.DBFlags.GetDatabase(ctx)
		if err != nil {
			return err
		}
		defer closer()

		meta := &gobs.PathsMeta{
			Exchange:       "mexc",
			NumInstruments: len(instruments),
		}
		if err := pathdb.Save(ctx, db, paths, meta); err != nil {
			return fmt.Errorf("could not save paths: %w", err)
		}
	}

	stdout := cli.Stdout(ctx)
	fmt.Fprintf(stdout, "instruments: %d\n", len(instruments))
	fmt.Fprintf(stdout, "paths: %d\n", len(paths))
	fmt.Fprintf(stdout, "initial assets: %d\n", len(pathgen.InitialAssets(paths)))
	fmt.Fprintf(stdout, "symbols: %d\n", len(pathgen.Symbols(paths)))
	return nil
}
