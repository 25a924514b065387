// Copyright (c) 2025 BVK Chaitanya

package paths

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/pathdb"
	"github.com/bvk/triarb/pathgen"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Import struct {
	cmdutil.DBFlags

	s3Key string
}

func (c *Import) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("import", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.s3Key, "s3-key", "", "reads the paths from this object key in the configured bucket")
	return "import", fset, cli.CmdFunc(c.run)
}

func (c *Import) Purpose() string {
	return "Replaces the saved paths with paths from a json file or an S3 object"
}

func (c *Import) run(ctx context.Context, args []string) error {
	var paths []*gobs.TriangularPath
	if len(c.s3Key) != 0 {
		if len(args) != 0 {
			return fmt.Errorf("command takes no arguments with -s3-key")
		}
		client, err := newObjstore(ctx, &c.DBFlags.ConfigFlags)
		if err != nil {
			return err
		}
		if paths, err = downloadPaths(ctx, client, c.s3Key); err != nil {
			return err
		}
	} else {
		if len(args) != 1 {
			return fmt.Errorf("command takes one (input file) argument")
		}
		var err error
		if paths, err = pathdb.ReadFile(args[0]); err != nil {
			return err
		}
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	meta := &gobs.PathsMeta{Exchange: "mexc"}
	if err := pathdb.Save(ctx, db, paths, meta); err != nil {
		return fmt.Errorf("could not save paths: %w", err)
	}
	fmt.Fprintf(cli.Stdout(ctx), "imported %d paths over %d symbols\n", len(paths), len(pathgen.Symbols(paths)))
	return nil
}
