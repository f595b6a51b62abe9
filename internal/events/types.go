// Package events is the in-process event bus that connects mutating operations to the realtime
// gateway and the Kafka mirror.
package events

import "time"

type Type string

const (
	// outbound, broadcast to every realtime connection
	ProductCreated Type = "productCreated"
	OrderCreated   Type = "orderCreated"
	OrderUpdated   Type = "orderUpdated"
	MessageCreated Type = "messageCreated"
	NewMessage     Type = "newMessage"

	// internal only, mirrored to Kafka
	PointsTransferred Type = "pointsTransferred"

	// direct replies to a single connection
	Products     Type = "products"
	Orders       Type = "orders"
	Messages     Type = "messages"
	Conversation Type = "conversation"
	Pong         Type = "pong"
	Error        Type = "error"
	Connection   Type = "connection"
)

var broadcastable = map[Type]bool{
	ProductCreated: true,
	OrderCreated:   true,
	OrderUpdated:   true,
	MessageCreated: true,
	NewMessage:     true,
}

// Broadcast reports whether events of this type are fanned out to realtime clients.
func (t Type) Broadcast() bool { return broadcastable[t] }

type Event struct {
	ID         string
	Type       Type
	Data       any
	OccurredAt time.Time
}
