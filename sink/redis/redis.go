// Copyright (c) 2025 BVK Chaitanya

// Package redis publishes opportunity events to a Redis pub/sub channel and
// appends them to a capped Redis stream.
package redis

import (
	"context"
	"fmt"

	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/sink"
	"github.com/redis/go-redis/v9"
	"github.com/sugawarayuuta/sonnet"
)

type Options struct {
	Addr     string
	Password string
	DB       int

	// Channel is the pub/sub channel name. Empty disables publishing.
	Channel string

	// Stream is the stream name. Empty disables stream appends.
	Stream string

	// MaxLen is the approximate maximum stream length.
	MaxLen int64
}

func (v *Options) setDefaults() {
	if v.MaxLen <= 0 {
		v.MaxLen = 10000
	}
}

type Sink struct {
	opts Options

	rdb redis.UniversalClient
}

var _ sink.Sink = &Sink{}

// New connects to the Redis server and verifies the connection.
func New(ctx context.Context, opts *Options) (*Sink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not ping redis at %q: %w", opts.Addr, err)
	}
	return NewWithClient(rdb, opts), nil
}

// NewWithClient creates a sink over an existing client. Sink takes ownership
// of the client.
func NewWithClient(rdb redis.UniversalClient, opts *Options) *Sink {
	s := &Sink{
		opts: *opts,
		rdb:  rdb,
	}
	s.opts.setDefaults()
	return s
}

func (s *Sink) Name() string {
	return "redis"
}

func (s *Sink) Close() error {
	return s.rdb.Close()
}

func (s *Sink) Publish(ctx context.Context, ev *gobs.OpportunityEvent) error {
	payload, err := sonnet.Marshal(sink.PayloadOf(ev))
	if err != nil {
		return fmt.Errorf("could not json-encode event: %w", err)
	}

	if len(s.opts.Channel) != 0 {
		if err := s.rdb.Publish(ctx, s.opts.Channel, payload).Err(); err != nil {
			return fmt.Errorf("could not publish to channel %q: %w", s.opts.Channel, err)
		}
	}

	if len(s.opts.Stream) != 0 {
		args := &redis.XAddArgs{
			Stream: s.opts.Stream,
			MaxLen: s.opts.MaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"id":      ev.ID.String(),
				"path":    ev.Path.SequenceNumber,
				"payload": payload,
			},
		}
		if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("could not append to stream %q: %w", s.opts.Stream, err)
		}
	}
	return nil
}
