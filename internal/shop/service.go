// Package shop runs the state-changing storefront operations and announces each result on the event bus.
// The store call always completes first; the event carries the committed entity.
package shop

import (
	"context"

	"github.com/ariefcatur/go-realtime-points/internal/events"
	"github.com/ariefcatur/go-realtime-points/internal/messages"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
)

type Publisher interface {
	Publish(ctx context.Context, t events.Type, data any)
}

type Service struct {
	Orders   orders.Store
	Messages *messages.Service
	Bus      Publisher
}

func (s *Service) PlaceOrder(ctx context.Context, accountID int64, items []orders.ItemInput) (orders.Order, error) {
	o, err := s.Orders.PlaceOrder(ctx, accountID, items)
	if err != nil {
		return orders.Order{}, err
	}
	obs.Component("shop").WithField("order_id", o.ID).WithField("total", o.TotalPoints).Info("order placed")
	s.publish(ctx, events.OrderCreated, o)
	return o, nil
}

func (s *Service) CreateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	created, err := s.Orders.CreateProduct(ctx, p)
	if err != nil {
		return orders.Product{}, err
	}
	s.publish(ctx, events.ProductCreated, created)
	return created, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status orders.Status) (orders.Order, error) {
	o, err := s.Orders.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return orders.Order{}, err
	}
	s.publish(ctx, events.OrderUpdated, o)
	return o, nil
}

func (s *Service) SendMessage(ctx context.Context, from, to int64, content string) (messages.Message, error) {
	m, err := s.Messages.Send(ctx, from, to, content)
	if err != nil {
		return messages.Message{}, err
	}
	s.publish(ctx, events.MessageCreated, m)
	return m, nil
}

func (s *Service) publish(ctx context.Context, t events.Type, data any) {
	if s.Bus != nil {
		s.Bus.Publish(ctx, t, data)
	}
}
