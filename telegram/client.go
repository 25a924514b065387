// Copyright (c) 2025 BVK Chaitanya

// Package telegram sends opportunity notifications through a Telegram bot and
// answers a few operator commands.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bvk/triarb/ctxutil"
	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/kvutil"
	"github.com/bvk/triarb/syncmap"
	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type CmdFunc = cli.CmdFunc

type Command struct {
	Purpose string
	Handler CmdFunc
}

type Options struct {
	// ServerURL overrides the Telegram Bot API server.
	ServerURL string

	// DisablePolling skips receiving updates, so bot commands are not served
	// and chat ids are not learned.
	DisablePolling bool
}

type Client struct {
	cg ctxutil.CloseGroup

	opts Options

	db kv.Database

	mu sync.Mutex

	bot *bot.Bot

	self *models.User

	secrets *Secrets

	state *gobs.TelegramState

	commandMap syncmap.Map[string, *Command]
}

var start = time.Now()

// New creates a bot client. Chat ids learned from the authorized users are
// saved in the database, which may be nil to keep them in memory only.
func New(ctx context.Context, db kv.Database, secrets *Secrets, opts *Options) (_ *Client, status error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = new(Options)
	}

	c := &Client{
		opts:    *opts,
		db:      db,
		secrets: secrets.Clone(),
	}

	bopts := []bot.Option{
		bot.WithDefaultHandler(c.handler),
	}
	if len(opts.ServerURL) != 0 {
		bopts = append(bopts, bot.WithServerURL(opts.ServerURL))
	}
	b, err := bot.New(secrets.BotToken, bopts...)
	if err != nil {
		return nil, err
	}
	c.bot = b

	self, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get bot user: %w", err)
	}
	c.self = self

	state, err := c.loadState(ctx)
	if err != nil {
		return nil, err
	}
	c.state = state

	c.commandMap.Store("uptime", &Command{
		Purpose: "Prints detector uptime",
		Handler: c.uptime,
	})
	c.commandMap.Store("version", &Command{
		Purpose: "Prints version information",
		Handler: c.version,
	})

	if !c.polling() {
		return c, nil
	}

	if ok, err := c.bot.SetMyCommands(ctx, c.commands()); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("could not set bot commands")
	}

	c.cg.Go(context.Background(), func(ctx context.Context) {
		c.bot.Start(ctx)
	})
	return c, nil
}

func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

func (c *Client) polling() bool {
	return !c.opts.DisablePolling && len(c.secrets.OwnerID) != 0
}

func (c *Client) BotUserName() string {
	return c.self.Username
}

func (c *Client) OwnerUserName() string {
	return c.secrets.OwnerID
}

func (c *Client) stateKey() string {
	return path.Join("/telegram", c.self.Username, "state")
}

func (c *Client) loadState(ctx context.Context) (*gobs.TelegramState, error) {
	if c.db != nil {
		state, err := kvutil.GetDB[gobs.TelegramState](ctx, c.db, c.stateKey())
		if err == nil {
			if state.UserChatIDMap == nil {
				state.UserChatIDMap = make(map[string]int64)
			}
			return state, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return &gobs.TelegramState{UserChatIDMap: make(map[string]int64)}, nil
}

// AddCommand registers a bot command. Commands are only served when the
// owner id is configured.
func (c *Client) AddCommand(ctx context.Context, name, purpose string, handler CmdFunc) error {
	if len(name) == 0 || len(purpose) == 0 || handler == nil {
		return os.ErrInvalid
	}
	cdata := &Command{
		Purpose: purpose,
		Handler: handler,
	}
	if _, loaded := c.commandMap.LoadOrStore(name, cdata); loaded {
		return os.ErrExist
	}
	if !c.polling() {
		return nil
	}
	if ok, err := c.bot.SetMyCommands(ctx, c.commands()); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("could not set bot commands")
	}
	return nil
}

func (c *Client) commands() *bot.SetMyCommandsParams {
	var cmds []models.BotCommand
	for cmd, cdata := range c.commandMap.Range {
		cmds = append(cmds, models.BotCommand{
			Command:     cmd,
			Description: cdata.Purpose,
		})
	}
	slices.SortFunc(cmds, func(a, b models.BotCommand) int {
		return strings.Compare(a.Command, b.Command)
	})
	return &bot.SetMyCommandsParams{
		Commands: cmds,
	}
}

// parseCommand splits a "/name arg..." message into the command name and
// its arguments. Bot mentions in the form "/name@bot" are stripped.
func parseCommand(text string) (string, []string, bool) {
	if len(text) < 2 || text[0] != '/' {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return name, fields[1:], true
}

func (c *Client) getCommand(update *models.Update) (string, []string, CmdFunc, error) {
	if update.Message == nil || len(update.Message.Entities) == 0 {
		return "", nil, nil, os.ErrInvalid
	}
	entity := update.Message.Entities[0]
	if entity.Type != models.MessageEntityTypeBotCommand || entity.Offset != 0 {
		return "", nil, nil, os.ErrInvalid
	}
	cmd, args, ok := parseCommand(update.Message.Text)
	if !ok {
		return "", nil, nil, os.ErrInvalid
	}
	cdata, ok := c.commandMap.Load(cmd)
	if !ok {
		return cmd, nil, nil, os.ErrNotExist
	}
	return cmd, args, cdata.Handler, nil
}

func (c *Client) isValidUser(user string) bool {
	if len(user) == 0 {
		return false
	}
	return user == c.secrets.OwnerID || slices.Contains(c.secrets.OtherIDs, user)
}

// receivers returns the fixed chat ids followed by the learned chat ids.
func (c *Client) receivers() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	cids := slices.Clone(c.secrets.ChatIDs)
	users := append([]string{c.secrets.OwnerID}, c.secrets.OtherIDs...)
	for _, user := range users {
		if cid, ok := c.state.UserChatIDMap[user]; ok && !slices.Contains(cids, cid) {
			cids = append(cids, cid)
		}
	}
	return cids
}

// SendMessage sends the text to all receivers. Failures for individual
// receivers are logged; an error is returned only when no receiver got the
// message.
func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	msg := at.Format("2006-01-02 15:04:05 MST") + " " + text

	cids := c.receivers()
	if len(cids) == 0 {
		slog.Warn("could not notify without any receiver chat ids", "message", text)
		return nil
	}

	var errs []error
	for _, cid := range cids {
		m := &bot.SendMessageParams{
			ChatID: cid,
			Text:   msg,
		}
		if _, err := c.bot.SendMessage(ctx, m); err != nil {
			slog.Error("could not notify receiver (ignored)", "chat-id", cid, "err", err)
			errs = append(errs, err)
			continue
		}
	}
	if len(errs) == len(cids) {
		return fmt.Errorf("could not send message to any receiver: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Client) handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	sender := update.Message.From.Username
	if !c.isValidUser(sender) {
		slog.Warn("received message from unauthorized user (ignored)", "sender", sender, "message", update.Message.Text)
		return
	}

	if err := c.updateChatIDs(ctx, update); err != nil {
		slog.Warn("could not update chat id values (ignored)", "err", err)
	}

	if err := c.respond(ctx, update); err != nil {
		slog.Error("could not respond to user command (ignored)", "user", sender, "err", err)
		return
	}
}

func (c *Client) respond(ctx context.Context, update *models.Update) (status error) {
	True := true

	var reply string
	defer func() {
		if len(reply) != 0 {
			p := &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   reply,
				ReplyParameters: &models.ReplyParameters{
					MessageID: update.Message.ID,
				},
				LinkPreviewOptions: &models.LinkPreviewOptions{
					IsDisabled: &True,
				},
			}
			if _, err := c.bot.SendMessage(ctx, p); err != nil {
				status = err
			}
		}
	}()

	defer func() {
		if status != nil {
			reply = status.Error()
			status = nil
		}
	}()

	cmd, args, handler, err := c.getCommand(update)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unknown command %q", cmd)
		}
		return nil
	}

	var sb strings.Builder
	if err := handler(cli.WithStdout(ctx, &sb), args); err != nil {
		sender := update.Message.From.Username
		slog.Error("could not handle user command (ignored)", "cmd", cmd, "user", sender, "err", err)
		return err
	}

	reply = sb.String()
	return nil
}

func (c *Client) updateChatIDs(ctx context.Context, update *models.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sender := update.Message.From.Username
	if id, ok := c.state.UserChatIDMap[sender]; ok && id == update.Message.Chat.ID {
		return nil
	}
	c.state.UserChatIDMap[sender] = update.Message.Chat.ID
	slog.Info("updating chat id from authorized user message", "user", sender, "chat-id", update.Message.Chat.ID)

	if c.db == nil {
		return nil
	}
	if err := kvutil.SetDB(ctx, c.db, c.stateKey(), c.state); err != nil {
		slog.Error("could not save telegram state to the db", "err", err)
		return err
	}
	return nil
}

func (c *Client) uptime(ctx context.Context, args []string) error {
	stdout := cli.Stdout(ctx)
	const day = 24 * time.Hour
	d := time.Since(start).Truncate(time.Second)
	if d < day {
		fmt.Fprintf(stdout, "%v", d)
		return nil
	}
	days := d / day
	fmt.Fprintf(stdout, "%dd%v", days, d%day)
	return nil
}

func (c *Client) version(ctx context.Context, _ []string) error {
	stdout := cli.Stdout(ctx)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Errorf("could not read build information")
	}
	// Do not print version information for the dependencies. It can overflow the
	// Telegram size limits.
	fmt.Fprintln(stdout, "Go: ", info.GoVersion)
	fmt.Fprintln(stdout, "Binary Path: ", info.Path)
	fmt.Fprintln(stdout, "Main Module Path: ", info.Main.Path)
	fmt.Fprintln(stdout, "Main Module Version: ", info.Main.Version)
	for _, s := range info.Settings {
		fmt.Fprintln(stdout, s.Key, ": ", s.Value)
	}
	return nil
}
