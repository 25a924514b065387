// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bvk/triarb/kvutil"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Restore struct {
	cmdutil.DBFlags

	numOpsPerTx int

	s3Key string
}

func (c *Restore) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("restore", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.IntVar(&c.numOpsPerTx, "num-ops-per-tx", 100, "max number of ops per restore transaction")
	fset.StringVar(&c.s3Key, "s3-key", "", "restores from this object key in the configured bucket")
	return "restore", fset, cli.CmdFunc(c.run)
}

func (c *Restore) Purpose() string {
	return "Restores the database from a backup file or an S3 object"
}

func (c *Restore) run(ctx context.Context, args []string) error {
	var r io.Reader
	if len(c.s3Key) != 0 {
		if len(args) != 0 {
			return fmt.Errorf("command takes no arguments with -s3-key")
		}
		client, err := newObjstore(ctx, &c.DBFlags.ConfigFlags)
		if err != nil {
			return err
		}
		obj, err := client.Open(ctx, c.s3Key)
		if err != nil {
			return fmt.Errorf("could not open s3://%s/%s: %w", client.Bucket(), c.s3Key, err)
		}
		defer obj.Close()
		r = bufio.NewReader(obj)
	} else {
		if len(args) != 1 {
			return fmt.Errorf("command takes one (input backup file) argument")
		}
		fp, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("could not open file %q: %w", args[0], err)
		}
		defer fp.Close()
		r = bufio.NewReader(fp)
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return fmt.Errorf("could not get database instance: %w", err)
	}
	defer closer()

	// Empty range selects all keys.
	if err := kvutil.DeleteRangeDB(ctx, db, "", "", c.numOpsPerTx); err != nil {
		return fmt.Errorf("could not clear the database: %w", err)
	}
	if err := kvutil.Import(ctx, r, db, c.numOpsPerTx); err != nil {
		return fmt.Errorf("could not run restore from backup: %w", err)
	}
	return nil
}
