// Copyright (c) 2025 BVK Chaitanya

// Package mexc implements the MEXC spot market data client: instrument
// listing over the REST api and partial depth streams over websockets.
package mexc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bvk/triarb/ctxutil"
	"github.com/bvk/triarb/gobs"
	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/time/rate"
)

type Client struct {
	opts Options

	restURL *url.URL

	client *http.Client

	limiter *rate.Limiter
}

// New creates a REST client for the public MEXC api.
func New(opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	restURL, err := url.Parse(opts.RestURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:    *opts,
		restURL: restURL,
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
	return c, nil
}

// GetExchangeInfo returns the trading rules and symbol information.
func (c *Client) GetExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	addrURL := c.restURL.JoinPath("exchangeInfo")
	resp := new(ExchangeInfo)
	if err := httpGetJSON(ctx, c, addrURL, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetInstruments returns all instruments listed on the exchange, enabled or
// not.
func (c *Client) GetInstruments(ctx context.Context) ([]*gobs.Instrument, error) {
	info, err := c.GetExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	instruments := make([]*gobs.Instrument, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		instruments = append(instruments, s.Instrument())
	}
	return instruments, nil
}

func httpGetJSON[PT *T, T any](ctx context.Context, c *Client, addrURL *url.URL, response PT) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		slog.Error("could not create http get request with context", "url", addrURL, "err", err)
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	s := time.Now()
	resp, err := c.client.Do(req)
	if d := time.Since(s); d > c.opts.HttpClientTimeout {
		slog.Warn(fmt.Sprintf("get request took %s which is more than the http client timeout %s", d, c.opts.HttpClientTimeout))
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not perform http get request", "url", addrURL, "err", err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("http get returned unsuccessful status code", "status-code", resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		if len(body) != 0 {
			log.Printf("server response was %s", body)
		}

		if resp.StatusCode == http.StatusBadGateway {
			if err := ctxutil.Sleep(ctx, time.Second); err != nil {
				return err
			}
			return httpGetJSON(ctx, c, addrURL, response)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot {
			timeout := time.Second
			if x := resp.Header.Get("Retry-After"); len(x) != 0 {
				if v, err := strconv.Atoi(x); err == nil {
					timeout = time.Duration(v) * time.Second
				}
			}
			if err := ctxutil.Sleep(ctx, timeout); err != nil {
				return err
			}
			return httpGetJSON(ctx, c, addrURL, response)
		}

		errResp := new(ErrorResponse)
		if err := sonnet.Unmarshal(body, errResp); err == nil && errResp.Code != 0 {
			return fmt.Errorf("http GET returned %d: code=%d message=%q", resp.StatusCode, errResp.Code, errResp.Message)
		}
		slog.Error("http GET is unsuccessful", "status", resp.StatusCode)
		return fmt.Errorf("http GET returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := sonnet.Unmarshal(data, response); err != nil {
		slog.Error("could not decode response to json", "err", err)
		return err
	}
	return nil
}
