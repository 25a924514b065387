// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/bvk/triarb/kvutil"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"
)

type Backup struct {
	cmdutil.DBFlags

	s3Key string
}

func (c *Backup) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("backup", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.s3Key, "s3-key", "", "uploads the backup to this object key in the configured bucket")
	return "backup", fset, cli.CmdFunc(c.run)
}

func (c *Backup) Purpose() string {
	return "Takes a backup of the database into a file or an S3 object"
}

func (c *Backup) run(ctx context.Context, args []string) error {
	if len(c.s3Key) == 0 && len(args) != 1 {
		return fmt.Errorf("command takes one (output backup file) argument")
	}
	if len(c.s3Key) != 0 && len(args) != 0 {
		return fmt.Errorf("command takes no arguments with -s3-key")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return fmt.Errorf("could not get database instance: %w", err)
	}
	defer closer()

	if len(c.s3Key) == 0 {
		if err := kvutil.BackupDB(ctx, db, args[0]); err != nil {
			return fmt.Errorf("could not backup database: %w", err)
		}
		return nil
	}

	client, err := newObjstore(ctx, &c.DBFlags.ConfigFlags)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	go func() {
		export := func(ctx context.Context, r kv.Reader) error {
			return kvutil.Export(ctx, r, pw)
		}
		pw.CloseWithError(kv.WithReader(ctx, db, export))
	}()
	if err := client.Upload(ctx, c.s3Key, pr); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("could not upload backup to s3://%s/%s: %w", client.Bucket(), c.s3Key, err)
	}
	fmt.Fprintf(cli.Stdout(ctx), "uploaded backup to s3://%s/%s\n", client.Bucket(), c.s3Key)
	return nil
}
