// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bvk/triarb/config"
	"github.com/bvk/triarb/pushover"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type PushOver struct {
	cmdutil.ConfigFlags

	skipTesting bool

	appID  string
	userID string
}

func (c *PushOver) Purpose() string {
	return "Configures notifications through the Pushover service"
}

func (c *PushOver) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("pushover", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	fset.StringVar(&c.userID, "user-id", "", "PushOver service user identifier")
	fset.StringVar(&c.appID, "app-id", "", "PushOver service Application identifier")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "pushover", fset, cli.CmdFunc(c.run)
}

func (c *PushOver) Description() string {
	return `

Command "pushover" helps users configure opportunity notifications through the
Pushover service. Keys are saved in the secrets.env file under the data
directory and the pushover sink is enabled. They can be configured as follows:

  $ triarb setup pushover -app-id=awja5ue...ito7svf -user-id=uscjs2...tvp4kv

`
}

func (c *PushOver) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	dataDir, err := c.ConfigFlags.DataDir()
	if err != nil {
		return err
	}

	keys := &pushover.Keys{
		ApplicationKey: c.appID,
		UserKey:        c.userID,
	}
	if err := keys.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		// Attempt to send a message with pushover to validate the keys.
		client, err := pushover.New(keys, &pushover.Options{Title: "triarb"})
		if err != nil {
			return err
		}
		if err := client.SendMessage(ctx, time.Now(), "Test message from Pushover config setup; please ignore."); err != nil {
			return err
		}
	}

	vars := map[string]string{
		"PUSHOVER_ENABLED":         "true",
		"PUSHOVER_APPLICATION_KEY": keys.ApplicationKey,
		"PUSHOVER_USER_KEY":        keys.UserKey,
	}
	return config.UpdateSecrets(filepath.Join(dataDir, config.SecretsFileName), vars)
}
