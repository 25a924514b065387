// Copyright (c) 2025 BVK Chaitanya

package mexc

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/bvk/triarb/ctxutil"
)

var (
	RestURL = url.URL{
		Scheme: "https",
		Host:   "api.mexc.com",
		Path:   "/api/v3",
	}

	WebsocketURL = url.URL{
		Scheme: "wss",
		Host:   "wbs.mexc.com",
		Path:   "/ws",
	}
)

// DepthChannelPrefix is the prefix of partial depth channel names. Full
// channel names also carry the symbol and the depth.
const DepthChannelPrefix = "spot@public.limit.depth.v3.api@"

// DepthChannel returns the partial depth channel name for the symbol.
func DepthChannel(symbol string, depth int) string {
	return fmt.Sprintf("%s%s@%d", DepthChannelPrefix, symbol, depth)
}

// IsValidDepth returns true if the depth is supported by the partial depth
// channel.
func IsValidDepth(depth int) bool {
	return depth == 5 || depth == 10 || depth == 20
}

type Options struct {
	// RestURL is the base url for the REST api.
	RestURL string

	// Timeout to use for the HTTP requests.
	HttpClientTimeout time.Duration

	// RequestsPerSecond limits the REST request rate.
	RequestsPerSecond float64
}

func (v *Options) setDefaults() {
	if v.RestURL == "" {
		v.RestURL = RestURL.String()
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
	if v.RequestsPerSecond == 0 {
		v.RequestsPerSecond = 10
	}
}

// Check validates the options.
func (v *Options) Check() error {
	if _, err := url.Parse(v.RestURL); err != nil {
		return fmt.Errorf("invalid rest url %q: %w", v.RestURL, err)
	}
	if v.HttpClientTimeout < 0 || v.RequestsPerSecond < 0 {
		return fmt.Errorf("http timeout and request rate must be non-negative: %w", os.ErrInvalid)
	}
	return nil
}

type SessionOptions struct {
	// WebsocketURL is the websocket endpoint for market streams.
	WebsocketURL string

	// Depth is the number of levels per ladder requested from the server. Must
	// be one of 5, 10 or 20.
	Depth int

	// KeepaliveInterval is the time between PING messages. Server closes the
	// connection after 20 seconds of silence.
	KeepaliveInterval time.Duration

	// Backoff returns the wait time before the n-th reconnect attempt.
	Backoff ctxutil.Backoff
}

func (v *SessionOptions) setDefaults() {
	if v.WebsocketURL == "" {
		v.WebsocketURL = WebsocketURL.String()
	}
	if v.Depth == 0 {
		v.Depth = 20
	}
	if v.KeepaliveInterval == 0 {
		v.KeepaliveInterval = 19 * time.Second
	}
	if v.Backoff == nil {
		v.Backoff = ctxutil.Fixed(time.Second)
	}
}

// Check validates the options.
func (v *SessionOptions) Check() error {
	if !IsValidDepth(v.Depth) {
		return fmt.Errorf("depth %d must be one of 5, 10 or 20: %w", v.Depth, os.ErrInvalid)
	}
	if v.KeepaliveInterval <= 0 {
		return fmt.Errorf("keepalive interval must be positive: %w", os.ErrInvalid)
	}
	return nil
}
