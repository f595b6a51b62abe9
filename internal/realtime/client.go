package realtime

import (
	"sync"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn the gateway uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Identity is the account behind a connection. The zero value is an anonymous viewer.
type Identity struct {
	AccountID int64
	IsAdmin   bool
}

func (i Identity) Authenticated() bool { return i.AccountID != 0 }

const writeWait = 10 * time.Second

// Client is one open connection. Frames go through a buffered queue drained by a single
// writer goroutine, so frames to one connection keep their order.
type Client struct {
	ID       string
	Identity Identity

	conn      Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string, conn Conn, ident Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		ID:       id,
		Identity: ident,
		conn:     conn,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
	}
}

// Send queues a frame without blocking. It reports false when the client is closed or its queue is full.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		obs.WSFrames.WithLabelValues("queued").Inc()
		return true
	default:
		obs.WSFrames.WithLabelValues("dropped").Inc()
		return false
	}
}

// Open reports whether the client still accepts frames.
func (c *Client) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) writeLoop(pingPeriod time.Duration) {
	var tick <-chan time.Time
	if pingPeriod > 0 {
		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		tick = t.C
	}
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				obs.Component("realtime").WithError(err).WithField("conn_id", c.ID).Debug("write failed")
				c.close()
				return
			}
		case <-tick:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

func (c *Client) write(messageType int, data []byte) error {
	if d, ok := c.conn.(deadliner); ok {
		_ = d.SetWriteDeadline(time.Now().Add(writeWait))
	}
	return c.conn.WriteMessage(messageType, data)
}
