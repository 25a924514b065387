// Copyright (c) 2025 BVK Chaitanya

package paths

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"

	"github.com/bvk/triarb/pathdb"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Show struct {
	cmdutil.DBFlags
}

func (c *Show) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("show", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	return "show", fset, cli.CmdFunc(c.run)
}

func (c *Show) Purpose() string {
	return "Prints a triangular path in json format"
}

func (c *Show) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("command takes one or more path number arguments")
	}
	var seqs []int
	for _, arg := range args {
		seq, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("could not parse path number %q: %w", arg, err)
		}
		seqs = append(seqs, seq)
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	stdout := cli.Stdout(ctx)
	for _, seq := range seqs {
		p, err := pathdb.Get(ctx, db, seq)
		if err != nil {
			return fmt.Errorf("could not load path %d: %w", seq, err)
		}
		js, err := json.Marshal(p)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, js, "", "  "); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", buf.Bytes())
	}
	return nil
}
