// Package realtime is the server side of the live update channel: it keeps the set of open
// websocket connections, fans out broadcast events and answers per-connection requests.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/events"
	"github.com/ariefcatur/go-realtime-points/internal/messages"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	maxFrameSize = 64 << 10
)

// Catalog is the read side of the orders store.
type Catalog interface {
	ListProducts(ctx context.Context) ([]orders.Product, error)
	ListOrdersByAccount(ctx context.Context, accountID int64) ([]orders.Order, error)
}

// Inbox is the read side of the messages service.
type Inbox interface {
	Inbox(ctx context.Context, accountID int64) ([]messages.Message, error)
	Conversation(ctx context.Context, accountID, other int64) ([]messages.Message, error)
}

// Frame is the wire shape of every outbound message.
type Frame struct {
	Type      events.Type `json:"type"`
	Data      any         `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
	ClientID  string      `json:"clientId,omitempty"`
}

type Gateway struct {
	Registry *Registry
	Catalog  Catalog
	Inbox    Inbox
	// Identify resolves the account behind an upgrade request; nil means every viewer is anonymous.
	Identify func(r *http.Request) Identity

	upgrader websocket.Upgrader
	handlers map[InboundType]handlerFunc
}

func NewGateway(reg *Registry, catalog Catalog, inbox Inbox) *Gateway {
	g := &Gateway{
		Registry: reg,
		Catalog:  catalog,
		Inbox:    inbox,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	g.handlers = g.inboundHandlers()
	return g
}

var _ events.Sink = (*Gateway)(nil)

// Consume forwards broadcastable bus events to every connection.
func (g *Gateway) Consume(_ context.Context, e events.Event) error {
	if !e.Type.Broadcast() {
		return nil
	}
	g.Publish(e.Type, e.Data)
	return nil
}

// Publish sends {type, data} to every open connection and returns how many accepted it.
// A closed or backed-up connection is skipped; it never stops the fan-out.
func (g *Gateway) Publish(t events.Type, payload any) int {
	frame, err := json.Marshal(Frame{Type: t, Data: payload})
	if err != nil {
		obs.Component("realtime").WithError(err).WithField("event_type", t).Error("marshal broadcast")
		return 0
	}
	sent := 0
	for _, c := range g.Registry.Snapshot() {
		if c.Send(frame) {
			sent++
		}
	}
	return sent
}

// HandleInbound decodes one client frame and answers it. Undecodable frames are dropped.
func (g *Gateway) HandleInbound(ctx context.Context, connID string, raw []byte) {
	c, ok := g.Registry.Get(connID)
	if !ok {
		return
	}
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		obs.WSInbound.WithLabelValues("malformed").Inc()
		obs.Component("realtime").WithError(err).WithField("conn_id", connID).Warn("dropping malformed frame")
		return
	}

	h, known := g.handlers[in.Type]
	if !known {
		obs.WSInbound.WithLabelValues("unknown").Inc()
		g.reply(c, Frame{Type: events.Error, Message: "Unknown message type"})
		return
	}
	obs.WSInbound.WithLabelValues(string(in.Type)).Inc()

	if err := h(ctx, c, in); err != nil {
		obs.Component("realtime").WithError(err).WithField("conn_id", connID).
			WithField("type", in.Type).Error("inbound handler failed")
		msg := "Failed to process message"
		if errors.Is(err, errAuthRequired) {
			msg = "Authentication required"
		}
		g.reply(c, Frame{Type: events.Error, Message: msg})
	}
}

// OnDisconnect forgets the connection; later publishes skip it.
func (g *Gateway) OnDisconnect(connID string) {
	if g.Registry.Remove(connID) {
		obs.Component("realtime").WithField("conn_id", connID).Info("client disconnected")
	}
}

func (g *Gateway) reply(c *Client, f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		obs.Component("realtime").WithError(err).Error("marshal reply")
		return
	}
	c.Send(b)
}

// ServeHTTP upgrades the request and runs the read loop until the peer goes away.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		obs.Component("realtime").WithError(err).Warn("upgrade failed")
		return
	}

	ident := Identity{}
	if g.Identify != nil {
		ident = g.Identify(r)
	}
	c := g.Registry.Add(conn, ident)
	defer g.OnDisconnect(c.ID)

	obs.Component("realtime").WithField("conn_id", c.ID).WithField("account_id", ident.AccountID).Info("client connected")
	g.reply(c, Frame{Type: events.Connection, Message: "Connected to realtime server", ClientID: c.ID})

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := r.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				obs.Component("realtime").WithError(err).WithField("conn_id", c.ID).Warn("connection error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		g.HandleInbound(ctx, c.ID, raw)
	}
}
