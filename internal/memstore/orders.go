package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
)

func (s *Store) ListProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]orders.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, apperr.NotFound("product not found")
	}
	return p, nil
}

func (s *Store) CreateProduct(_ context.Context, p orders.Product) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID()
	p.CreatedAt = s.now()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProduct(_ context.Context, id int64, patch orders.ProductPatch) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, apperr.NotFound("product not found")
	}
	patch.Apply(&p)
	s.products[id] = p
	return p, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return apperr.NotFound("product not found")
	}
	for _, items := range s.orderItems {
		for _, it := range items {
			if it.ProductID == id {
				return apperr.Conflict("product has orders and cannot be deleted")
			}
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) PlaceOrder(_ context.Context, accountID int64, items []orders.ItemInput) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return orders.Order{}, apperr.NotFound("user not found")
	}
	catalog := map[int64]orders.StockLine{}
	for _, it := range items {
		if p, ok := s.products[it.ProductID]; ok {
			catalog[p.ID] = orders.StockLine{Price: p.Price, Stock: p.Stock, Unlimited: p.Unlimited}
		}
	}
	total, err := orders.PriceOrder(catalog, items)
	if err != nil {
		return orders.Order{}, err
	}
	if total > acct.Points {
		return orders.Order{}, apperr.InsufficientBalance("Insufficient points")
	}

	o := orders.Order{ID: s.nextID(), AccountID: accountID, TotalPoints: total, Status: orders.StatusPending, CreatedAt: s.now()}
	for _, it := range items {
		p := s.products[it.ProductID]
		o.Items = append(o.Items, orders.OrderItem{
			ID:           s.nextID(),
			OrderID:      o.ID,
			ProductID:    p.ID,
			Quantity:     it.Quantity,
			Size:         it.Size,
			PricePerItem: p.Price,
		})
		if !p.Unlimited {
			p.Stock -= it.Quantity
			s.products[p.ID] = p
		}
	}
	acct.Points -= total
	s.accounts[accountID] = acct
	s.orderItems[o.ID] = o.Items

	stored := o
	stored.Items = nil
	s.orders[o.ID] = stored
	return o, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, apperr.NotFound("order not found")
	}
	o.Items = append([]orders.OrderItem(nil), s.orderItems[id]...)
	return o, nil
}

func (s *Store) ListOrdersByAccount(_ context.Context, accountID int64) ([]orders.Order, error) {
	return s.filterOrders(func(o orders.Order) bool { return o.AccountID == accountID }), nil
}

func (s *Store) ListOrders(_ context.Context) ([]orders.Order, error) {
	return s.filterOrders(func(orders.Order) bool { return true }), nil
}

func (s *Store) filterOrders(keep func(orders.Order) bool) []orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []orders.Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) ListOrderItems(_ context.Context, orderID int64) ([]orders.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]orders.OrderItem(nil), s.orderItems[orderID]...), nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id int64, status orders.Status) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, apperr.NotFound("order not found")
	}
	if !orders.CanTransition(o.Status, status) {
		return orders.Order{}, apperr.Validation(fmt.Sprintf("cannot move order from %s to %s", o.Status, status),
			map[string]string{"status": "transition"})
	}
	o.Status = status
	s.orders[id] = o
	return o, nil
}
