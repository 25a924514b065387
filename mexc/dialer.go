// Copyright (c) 2025 BVK Chaitanya

package mexc

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of websocket connection methods used by a session.
// ReadMessage must return when the read deadline expires.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteJSON(v any) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens websocket connections.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// WebsocketDialer dials with a gorilla/websocket dialer.
type WebsocketDialer struct {
	websocket.Dialer
}

func (d *WebsocketDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	conn, _, err := d.Dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// DefaultDialer returns a dialer with compression enabled and a handshake
// timeout.
func DefaultDialer() *WebsocketDialer {
	return &WebsocketDialer{
		Dialer: websocket.Dialer{
			EnableCompression: true,
			HandshakeTimeout:  10 * time.Second,
		},
	}
}
