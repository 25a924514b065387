// Copyright (c) 2025 BVK Chaitanya

// Package config holds the detector configuration. Values come from built-in
// defaults, an optional TOML file and TRIARB_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bvk/triarb/ctxutil"
	"github.com/bvk/triarb/evaluator"
	"github.com/bvk/triarb/mexc"
	"github.com/bvk/triarb/objstore"
	"github.com/bvk/triarb/supervisor"
	"github.com/shopspring/decimal"
)

type Config struct {
	DataDir string `toml:"data_dir"`

	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Stream    StreamConfig    `toml:"stream"`
	Exchange  ExchangeConfig  `toml:"exchange"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	SQLite    SQLiteConfig    `toml:"sqlite"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Pushover  PushoverConfig  `toml:"pushover"`
	S3        S3Config        `toml:"s3"`
}

type ArbitrageConfig struct {
	// InitialAsset selects the paths to watch. Empty selects all paths.
	InitialAsset string `toml:"initial_asset"`

	InitialQuantity decimal.Decimal `toml:"initial_quantity"`

	// Depth is the number of ladder levels per book; one of 5, 10 or 20.
	Depth int `toml:"depth"`

	FeeRate   decimal.Decimal `toml:"fee_rate"`
	FeeExempt []string        `toml:"fee_exempt"`

	LegCFromFeedB bool `toml:"leg_c_from_feed_b"`
}

type StreamConfig struct {
	WebsocketURL string `toml:"websocket_url"`

	// Backoff is the wait before reconnecting. When MaxBackoff is larger, the
	// wait doubles on every consecutive failure up to MaxBackoff.
	Backoff    time.Duration `toml:"backoff"`
	MaxBackoff time.Duration `toml:"max_backoff"`

	Keepalive time.Duration `toml:"keepalive"`

	// StartRate is the number of sessions started per second.
	StartRate float64 `toml:"start_rate"`

	// StatusInterval is the time between status log lines. Zero disables them.
	StatusInterval time.Duration `toml:"status_interval"`
}

type ExchangeConfig struct {
	RestURL           string        `toml:"rest_url"`
	HttpTimeout       time.Duration `toml:"http_timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
}

type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	Channel string `toml:"channel"`
	Stream  string `toml:"stream"`
	MaxLen  int64  `toml:"max_len"`
}

type PostgresConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
	Table   string `toml:"table"`
}

// SQLiteConfig records opportunities in a local database file. Relative
// file names are resolved under the data directory.
type SQLiteConfig struct {
	Enabled bool   `toml:"enabled"`
	File    string `toml:"file"`
}

type TelegramConfig struct {
	Enabled bool    `toml:"enabled"`
	Token   string  `toml:"token"`
	ChatIDs []int64 `toml:"chat_ids"`

	// OwnerID and OtherIDs are telegram user names allowed to run bot
	// commands. Their chat ids also receive notifications.
	OwnerID  string   `toml:"owner_id"`
	OtherIDs []string `toml:"other_ids"`

	// MinInterval limits the message rate per path.
	MinInterval time.Duration `toml:"min_interval"`
}

type PushoverConfig struct {
	Enabled        bool   `toml:"enabled"`
	ApplicationKey string `toml:"application_key"`
	UserKey        string `toml:"user_key"`

	MinInterval time.Duration `toml:"min_interval"`
}

// S3Config locates the object store used by the backup and export commands.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Defaults returns the configuration used when nothing else is specified.
func Defaults() *Config {
	return &Config{
		Arbitrage: ArbitrageConfig{
			InitialAsset:    "ETH",
			InitialQuantity: decimal.NewFromInt(5),
			Depth:           20,
		},
		Stream: StreamConfig{
			WebsocketURL:   mexc.WebsocketURL.String(),
			Backoff:        time.Second,
			Keepalive:      19 * time.Second,
			StartRate:      5,
			StatusInterval: time.Minute,
		},
		Exchange: ExchangeConfig{
			RestURL:           mexc.RestURL.String(),
			HttpTimeout:       10 * time.Second,
			RequestsPerSecond: 10,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "triarb:opportunities",
			Stream:  "triarb:opportunities:stream",
			MaxLen:  10000,
		},
		Postgres: PostgresConfig{
			Table: "triarb_opportunities",
		},
		SQLite: SQLiteConfig{
			File: "opportunities.db",
		},
		Telegram: TelegramConfig{
			MinInterval: time.Minute,
		},
		Pushover: PushoverConfig{
			MinInterval: time.Minute,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Validate checks the configuration and reports all problems together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !c.Arbitrage.InitialQuantity.IsPositive() {
		add("arbitrage: initial_quantity %s must be positive", c.Arbitrage.InitialQuantity)
	}
	if !mexc.IsValidDepth(c.Arbitrage.Depth) {
		add("arbitrage: depth %d must be one of 5, 10 or 20", c.Arbitrage.Depth)
	}
	if c.Arbitrage.FeeRate.IsNegative() || c.Arbitrage.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		add("arbitrage: fee_rate %s must be in [0, 1)", c.Arbitrage.FeeRate)
	}

	if c.Stream.WebsocketURL == "" {
		add("stream: websocket_url must not be empty")
	}
	if c.Stream.Backoff <= 0 {
		add("stream: backoff must be positive")
	}
	if c.Stream.MaxBackoff < 0 {
		add("stream: max_backoff must not be negative")
	}
	if c.Stream.Keepalive <= 0 {
		add("stream: keepalive must be positive")
	}
	if c.Stream.StartRate <= 0 {
		add("stream: start_rate must be positive")
	}
	if c.Stream.StatusInterval < 0 {
		add("stream: status_interval must not be negative")
	}

	if c.Exchange.RestURL == "" {
		add("exchange: rest_url must not be empty")
	}
	if c.Exchange.HttpTimeout <= 0 {
		add("exchange: http_timeout must be positive")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			add("redis: addr must not be empty")
		}
		if c.Redis.Channel == "" && c.Redis.Stream == "" {
			add("redis: one of channel or stream must be set")
		}
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		add("postgres: dsn must not be empty")
	}
	if c.SQLite.Enabled && c.SQLite.File == "" {
		add("sqlite: file must not be empty")
	}
	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			add("telegram: token must not be empty")
		}
		if len(c.Telegram.ChatIDs) == 0 && c.Telegram.OwnerID == "" {
			add("telegram: one of chat_ids or owner_id must be set")
		}
	}
	if c.Pushover.Enabled && (c.Pushover.ApplicationKey == "" || c.Pushover.UserKey == "") {
		add("pushover: application_key and user_key must not be empty")
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", os.ErrInvalid, err)
	}
	return nil
}

func (c *Config) backoff() ctxutil.Backoff {
	if c.Stream.MaxBackoff > c.Stream.Backoff {
		return ctxutil.Exponential(c.Stream.Backoff, c.Stream.MaxBackoff)
	}
	return ctxutil.Fixed(c.Stream.Backoff)
}

func (c *Config) SessionOptions() *mexc.SessionOptions {
	return &mexc.SessionOptions{
		WebsocketURL:      c.Stream.WebsocketURL,
		Depth:             c.Arbitrage.Depth,
		KeepaliveInterval: c.Stream.Keepalive,
		Backoff:           c.backoff(),
	}
}

func (c *Config) SupervisorOptions() *supervisor.Options {
	return &supervisor.Options{
		StartRate: c.Stream.StartRate,
		Session:   *c.SessionOptions(),
	}
}

func (c *Config) ClientOptions() *mexc.Options {
	return &mexc.Options{
		RestURL:           c.Exchange.RestURL,
		HttpClientTimeout: c.Exchange.HttpTimeout,
		RequestsPerSecond: c.Exchange.RequestsPerSecond,
	}
}

func (c *Config) ObjstoreOptions() *objstore.Options {
	return &objstore.Options{
		Endpoint:       c.S3.Endpoint,
		Region:         c.S3.Region,
		Bucket:         c.S3.Bucket,
		AccessKey:      c.S3.AccessKey,
		SecretKey:      c.S3.SecretKey,
		ForcePathStyle: c.S3.ForcePathStyle,
	}
}

// SQLiteFile returns the sqlite database file path.
func (c *Config) SQLiteFile() string {
	if filepath.IsAbs(c.SQLite.File) || c.DataDir == "" {
		return c.SQLite.File
	}
	return filepath.Join(c.DataDir, c.SQLite.File)
}

func (c *Config) EvaluatorOptions() *evaluator.Options {
	return &evaluator.Options{
		FeeRate:       c.Arbitrage.FeeRate,
		FeeExempt:     c.Arbitrage.FeeExempt,
		LegCFromFeedB: c.Arbitrage.LegCFromFeedB,
	}
}
