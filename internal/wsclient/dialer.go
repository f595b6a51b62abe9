package wsclient

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn the manager uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type DialerFunc func(ctx context.Context, url string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) { return f(ctx, url) }

// GorillaDialer adapts a websocket.Dialer; nil gets a dialer with a 10s handshake timeout.
func GorillaDialer(d *websocket.Dialer) Dialer {
	if d == nil {
		d = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	return DialerFunc(func(ctx context.Context, url string) (Conn, error) {
		conn, resp, err := d.DialContext(ctx, url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
