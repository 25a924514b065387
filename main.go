// Copyright (c) 2023 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/triarb/subcmds"
	"github.com/bvk/triarb/subcmds/db"
	"github.com/bvk/triarb/subcmds/paths"
	"github.com/bvk/triarb/subcmds/setup"
	"github.com/visvasity/cli"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.Delete),
		new(db.List),
		new(db.Backup),
		new(db.Restore),
	}

	pathsCmds := []cli.Command{
		new(paths.Generate),
		new(paths.List),
		new(paths.Show),
		new(paths.Export),
		new(paths.Import),
	}

	setupCmds := []cli.Command{
		new(setup.Telegram),
		new(setup.PushOver),
		new(setup.S3),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		new(subcmds.Opportunities),
		cli.CommandGroup("db", "View/update database directly", dbCmds...),
		cli.CommandGroup("paths", "Generate and inspect triangular paths", pathsCmds...),
		cli.CommandGroup("setup", "Configure notification and storage services", setupCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
