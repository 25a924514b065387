// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"

	"github.com/bvk/triarb/config"
	"github.com/bvk/triarb/pushover"
	"github.com/bvk/triarb/sink"
	"github.com/bvk/triarb/sink/postgres"
	"github.com/bvk/triarb/sink/redis"
	"github.com/bvk/triarb/sink/sqlite"
	"github.com/bvk/triarb/telegram"
	"github.com/bvkgo/kv"
)

// OpenSinks creates the log sink and every sink enabled in the
// configuration. Telegram client is returned separately, when enabled, so
// that it can also serve bot commands; it is closed with its sink. Database
// keeps the telegram chat ids and may be nil.
func OpenSinks(ctx context.Context, cfg *config.Config, db kv.Database) (_ []sink.Sink, _ *telegram.Client, status error) {
	sinks := []sink.Sink{sink.Log()}
	defer func() {
		if status != nil {
			sink.CloseAll(sinks...)
		}
	}()

	if cfg.Redis.Enabled {
		opts := &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
			Stream:   cfg.Redis.Stream,
			MaxLen:   cfg.Redis.MaxLen,
		}
		s, err := redis.New(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Postgres.Enabled {
		s, err := postgres.New(ctx, &postgres.Options{DSN: cfg.Postgres.DSN, Table: cfg.Postgres.Table})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.SQLite.Enabled {
		s, err := sqlite.New(ctx, cfg.SQLiteFile())
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, s)
	}

	var tclient *telegram.Client
	if cfg.Telegram.Enabled {
		secrets := &telegram.Secrets{
			BotToken: cfg.Telegram.Token,
			OwnerID:  cfg.Telegram.OwnerID,
			OtherIDs: cfg.Telegram.OtherIDs,
			ChatIDs:  cfg.Telegram.ChatIDs,
		}
		client, err := telegram.New(ctx, db, secrets, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("could not create telegram client: %w", err)
		}
		tclient = client
		sinks = append(sinks, sink.NewNotifier("telegram", client, cfg.Telegram.MinInterval))
	}

	if cfg.Pushover.Enabled {
		keys := &pushover.Keys{
			ApplicationKey: cfg.Pushover.ApplicationKey,
			UserKey:        cfg.Pushover.UserKey,
		}
		client, err := pushover.New(keys, &pushover.Options{Title: "triarb"})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create pushover client: %w", err)
		}
		sinks = append(sinks, sink.NewNotifier("pushover", client, cfg.Pushover.MinInterval))
	}

	return sinks, tclient, nil
}

// NewOptions returns the detector options from the configuration.
func NewOptions(cfg *config.Config) *Options {
	return &Options{
		InitialAsset:    cfg.Arbitrage.InitialAsset,
		InitialQuantity: cfg.Arbitrage.InitialQuantity,
		MaxDepth:        cfg.Arbitrage.Depth,
		StatusInterval:  cfg.Stream.StatusInterval,
		Evaluator:       *cfg.EvaluatorOptions(),
		Supervisor:      *cfg.SupervisorOptions(),
	}
}
