// Copyright (c) 2023 BVK Chaitanya

// Package pushover sends notifications through the Pushover messages API.
package pushover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

// MessagesURL is the Pushover messages endpoint.
const MessagesURL = "https://api.pushover.net/1/messages.json"

type Options struct {
	// URL overrides the messages endpoint.
	URL string

	// Title is sent with every message when non-empty.
	Title string

	HttpClientTimeout time.Duration
}

func (v *Options) setDefaults() {
	if len(v.URL) == 0 {
		v.URL = MessagesURL
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
}

type Client struct {
	opts       Options
	token      string
	user       string
	httpClient *http.Client
}

func New(keys *Keys, opts *Options) (*Client, error) {
	if err := keys.Check(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = new(Options)
	}
	c := &Client{
		opts:  *opts,
		token: keys.ApplicationKey,
		user:  keys.UserKey,
	}
	c.opts.setDefaults()
	c.httpClient = &http.Client{Timeout: c.opts.HttpClientTimeout}
	return c, nil
}

type message struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

func (c *Client) SendMessage(ctx context.Context, at time.Time, msg string) error {
	m := &message{
		Token:     c.token,
		User:      c.user,
		Title:     c.opts.Title,
		Timestamp: at.Unix(),
		Message:   msg,
	}
	js, err := sonnet.Marshal(m)
	if err != nil {
		return fmt.Errorf("could not json-encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(js))
	if err != nil {
		return fmt.Errorf("could not create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform post request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: %w", err)
	}
	r := new(response)
	if err := sonnet.Unmarshal(data, r); err != nil {
		return fmt.Errorf("could not json-decode response for http-status %d: %w", resp.StatusCode, err)
	}
	if r.Status != 1 {
		if len(r.Errors) != 0 {
			return fmt.Errorf("send failed with http-status %d and error: %w", resp.StatusCode, errors.New(r.Errors[0]))
		}
		return fmt.Errorf("send failed with http-status %d and zero response-status code (%#v)", resp.StatusCode, *r)
	}
	return nil
}
