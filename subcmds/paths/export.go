// Copyright (c) 2025 BVK Chaitanya

package paths

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/bvk/triarb/pathdb"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Export struct {
	cmdutil.DBFlags

	initial string
	s3Key   string
}

func (c *Export) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("export", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.initial, "initial", "", "exports only the paths starting with this asset")
	fset.StringVar(&c.s3Key, "s3-key", "", "uploads the paths to this object key in the configured bucket")
	return "export", fset, cli.CmdFunc(c.run)
}

func (c *Export) Purpose() string {
	return "Writes the saved paths to a json file or an S3 object"
}

func (c *Export) run(ctx context.Context, args []string) error {
	if len(c.s3Key) == 0 && len(args) != 1 {
		return fmt.Errorf("command takes one (output file) argument")
	}
	if len(c.s3Key) != 0 && len(args) != 0 {
		return fmt.Errorf("command takes no arguments with -s3-key")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	paths, _, err := pathdb.Load(ctx, db)
	if err != nil {
		return fmt.Errorf("could not load paths: %w", err)
	}
	paths = filterPaths(paths, strings.ToUpper(c.initial), "")

	if len(c.s3Key) == 0 {
		return pathdb.WriteFile(args[0], paths)
	}

	client, err := newObjstore(ctx, &c.DBFlags.ConfigFlags)
	if err != nil {
		return err
	}
	if err := uploadPaths(ctx, client, c.s3Key, paths); err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "uploaded %d paths to s3://%s/%s\n", len(paths), client.Bucket(), c.s3Key)
	return nil
}
