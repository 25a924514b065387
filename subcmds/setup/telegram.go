// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bvk/triarb/config"
	"github.com/bvk/triarb/ctxutil"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/bvk/triarb/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Telegram struct {
	cmdutil.ConfigFlags

	skipTesting bool

	ownerID  string
	otherIDs string
	chatIDs  string
	botToken string
}

func (c *Telegram) Purpose() string {
	return "Configures notifications through a Telegram bot"
}

func (c *Telegram) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("telegram", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	fset.StringVar(&c.ownerID, "owner-id", "", "Owner's telegram user name")
	fset.StringVar(&c.otherIDs, "other-ids", "", "Comma separated telegram user names that also receive notifications")
	fset.StringVar(&c.chatIDs, "chat-ids", "", "Comma separated telegram chat ids that receive notifications")
	fset.StringVar(&c.botToken, "bot-token", "", "Telegram bot's authentication token")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "telegram", fset, cli.CmdFunc(c.run)
}

func (c *Telegram) Description() string {
	return `

Command "telegram" helps users configure opportunity notifications to their
Telegram account through a Telegram bot. Parameters are saved in the
secrets.env file under the data directory and the telegram sink is enabled.

Owner can also query the running detector with bot commands. They can be
configured as follows:

  $ triarb setup telegram -owner-id=username -bot-token=USCJS2...TVP4KV

`
}

func (c *Telegram) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	dataDir, err := c.ConfigFlags.DataDir()
	if err != nil {
		return err
	}

	secrets := &telegram.Secrets{
		BotToken: c.botToken,
		OwnerID:  c.ownerID,
		OtherIDs: splitList(c.otherIDs),
	}
	for _, s := range splitList(c.chatIDs) {
		cid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("could not parse chat id %q: %w", s, err)
		}
		secrets.ChatIDs = append(secrets.ChatIDs, cid)
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		if len(secrets.OwnerID) != 0 {
			fmt.Fprintln(cli.Stdout(ctx), "Start a chat with the telegram bot and then press any key")
			if err := waitForKey(); err != nil {
				return err
			}
		}

		client, err := telegram.New(ctx, kvmemdb.New(), secrets, nil /* opts */)
		if err != nil {
			return err
		}
		defer client.Close()

		// Give the bot some time to learn the owner's chat id.
		ctxutil.Sleep(ctx, 3*time.Second)
		if err := client.SendMessage(ctx, time.Now(), "Test message from Telegram config setup; please ignore."); err != nil {
			return err
		}
	}

	vars := map[string]string{
		"TELEGRAM_ENABLED":   "true",
		"TELEGRAM_TOKEN":     secrets.BotToken,
		"TELEGRAM_OWNER_ID":  secrets.OwnerID,
		"TELEGRAM_OTHER_IDS": strings.Join(secrets.OtherIDs, ","),
		"TELEGRAM_CHAT_IDS":  joinInt64s(secrets.ChatIDs),
	}
	return config.UpdateSecrets(filepath.Join(dataDir, config.SecretsFileName), vars)
}

func waitForKey() error {
	// switch stdin into 'raw' mode
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("could not switch terminal to raw mode: %w", err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	b := make([]byte, 1)
	if _, err := os.Stdin.Read(b); err != nil {
		return err
	}
	return nil
}

func splitList(s string) []string {
	var vs []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); len(v) != 0 {
			vs = append(vs, v)
		}
	}
	return vs
}

func joinInt64s(vs []int64) string {
	ss := make([]string, 0, len(vs))
	for _, v := range vs {
		ss = append(ss, strconv.FormatInt(v, 10))
	}
	return strings.Join(ss, ",")
}
