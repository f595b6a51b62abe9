package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/events"
)

type InboundType string

const (
	InGetProducts     InboundType = "getProducts"
	InPing            InboundType = "ping"
	InGetOrders       InboundType = "getOrders"
	InGetMessages     InboundType = "getMessages"
	InGetConversation InboundType = "getConversation"
	InMessageSent     InboundType = "messageSent"
)

// Inbound is a client frame. Only Type is required; the rest depends on it.
type Inbound struct {
	Type        InboundType     `json:"type"`
	Data        json.RawMessage `json:"data,omitempty"`
	OtherUserID int64           `json:"otherUserId,omitempty"`
}

type handlerFunc func(ctx context.Context, c *Client, in Inbound) error

var errAuthRequired = errors.New("authentication required")

func (g *Gateway) inboundHandlers() map[InboundType]handlerFunc {
	return map[InboundType]handlerFunc{
		InGetProducts:     g.handleGetProducts,
		InPing:            g.handlePing,
		InGetOrders:       g.handleGetOrders,
		InGetMessages:     g.handleGetMessages,
		InGetConversation: g.handleGetConversation,
		InMessageSent:     g.handleMessageSent,
	}
}

func (g *Gateway) handleGetProducts(ctx context.Context, c *Client, _ Inbound) error {
	products, err := g.Catalog.ListProducts(ctx)
	if err != nil {
		return err
	}
	g.reply(c, Frame{Type: events.Products, Data: products})
	return nil
}

func (g *Gateway) handlePing(_ context.Context, c *Client, _ Inbound) error {
	g.reply(c, Frame{Type: events.Pong, Timestamp: time.Now().UnixMilli()})
	return nil
}

func (g *Gateway) handleGetOrders(ctx context.Context, c *Client, _ Inbound) error {
	if !c.Identity.Authenticated() {
		return errAuthRequired
	}
	list, err := g.Catalog.ListOrdersByAccount(ctx, c.Identity.AccountID)
	if err != nil {
		return err
	}
	g.reply(c, Frame{Type: events.Orders, Data: list})
	return nil
}

func (g *Gateway) handleGetMessages(ctx context.Context, c *Client, _ Inbound) error {
	if !c.Identity.Authenticated() {
		return errAuthRequired
	}
	list, err := g.Inbox.Inbox(ctx, c.Identity.AccountID)
	if err != nil {
		return err
	}
	g.reply(c, Frame{Type: events.Messages, Data: list})
	return nil
}

func (g *Gateway) handleGetConversation(ctx context.Context, c *Client, in Inbound) error {
	if !c.Identity.Authenticated() {
		return errAuthRequired
	}
	list, err := g.Inbox.Conversation(ctx, c.Identity.AccountID, in.OtherUserID)
	if err != nil {
		return err
	}
	g.reply(c, Frame{Type: events.Conversation, Data: list})
	return nil
}

// handleMessageSent relays a client's chat notification to everyone. Frames without a
// payload are ignored.
func (g *Gateway) handleMessageSent(_ context.Context, _ *Client, in Inbound) error {
	switch string(bytes.TrimSpace(in.Data)) {
	case "", "null", "false", "0", `""`:
		return nil
	}
	g.Publish(events.NewMessage, in.Data)
	return nil
}
