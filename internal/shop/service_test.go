package shop_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/events"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/memstore"
	"github.com/ariefcatur/go-realtime-points/internal/messages"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
	"github.com/ariefcatur/go-realtime-points/internal/shop"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	t    events.Type
	data any
}

type recorder struct{ got []recorded }

func (r *recorder) Publish(_ context.Context, t events.Type, data any) {
	r.got = append(r.got, recorded{t, data})
}

func setup() (*shop.Service, *memstore.Store, *recorder) {
	obs.Discard()
	store := memstore.New()
	rec := &recorder{}
	svc := &shop.Service{
		Orders:   store,
		Messages: &messages.Service{Store: store, Accounts: &ledger.Service{Store: store}},
		Bus:      rec,
	}
	return svc, store, rec
}

func TestPlaceOrder_DebitsAndPublishesOnce(t *testing.T) {
	req := require.New(t)
	svc, store, rec := setup()
	ctx := context.Background()

	// Given a 150-point product and a user holding exactly 150
	u := store.Seed("u", 150, false)
	p, err := store.CreateProduct(ctx, orders.Product{Name: "Ticket", Price: 150, Stock: 5, Type: "ticket"})
	req.NoError(err)

	// When the user orders one
	o, err := svc.PlaceOrder(ctx, u.ID, []orders.ItemInput{{ProductID: p.ID, Quantity: 1}})

	// Then the balance is zero, stock dropped and exactly one orderCreated went out
	req.NoError(err)
	req.Equal(int64(150), o.TotalPoints)
	req.Equal(orders.StatusPending, o.Status)

	acct, err := store.GetAccount(ctx, u.ID)
	req.NoError(err)
	req.Equal(int64(0), acct.Points)

	prod, err := store.GetProduct(ctx, p.ID)
	req.NoError(err)
	req.Equal(int64(4), prod.Stock)

	req.Len(rec.got, 1)
	req.Equal(events.OrderCreated, rec.got[0].t)
	req.Equal(o.ID, rec.got[0].data.(orders.Order).ID)
}

func TestPlaceOrder_FailureDoesNotPublish(t *testing.T) {
	req := require.New(t)
	svc, store, rec := setup()
	ctx := context.Background()

	u := store.Seed("u", 100, false)
	p, err := store.CreateProduct(ctx, orders.Product{Name: "Shirt", Price: 150, Unlimited: true, Type: "tshirt"})
	req.NoError(err)

	_, err = svc.PlaceOrder(ctx, u.ID, []orders.ItemInput{{ProductID: p.ID, Quantity: 1, Size: "M"}})

	req.ErrorIs(err, apperr.ErrInsufficientBalance)
	req.Empty(rec.got)
	acct, err := store.GetAccount(ctx, u.ID)
	req.NoError(err)
	req.Equal(int64(100), acct.Points)
}

func TestPlaceOrder_OutOfStock(t *testing.T) {
	req := require.New(t)
	svc, store, rec := setup()
	ctx := context.Background()

	u := store.Seed("u", 1000, false)
	p, err := store.CreateProduct(ctx, orders.Product{Name: "Ticket", Price: 10, Stock: 1, Type: "ticket"})
	req.NoError(err)

	_, err = svc.PlaceOrder(ctx, u.ID, []orders.ItemInput{{ProductID: p.ID, Quantity: 2}})

	req.ErrorIs(err, apperr.ErrValidation)
	req.Empty(rec.got)
}

func TestPlaceOrder_HugeQuantityCannotMintPoints(t *testing.T) {
	req := require.New(t)
	svc, store, rec := setup()
	ctx := context.Background()

	// Given a broke user and an unlimited 150-point product
	u := store.Seed("u", 0, false)
	p, err := store.CreateProduct(ctx, orders.Product{Name: "Livestream", Price: 150, Unlimited: true, Type: "ticket"})
	req.NoError(err)

	// When ordering a quantity whose total would wrap int64
	_, err = svc.PlaceOrder(ctx, u.ID, []orders.ItemInput{{ProductID: p.ID, Quantity: 61489146912365173}})

	// Then the order is rejected and the balance is untouched
	req.ErrorIs(err, apperr.ErrValidation)
	acct, err := store.GetAccount(ctx, u.ID)
	req.NoError(err)
	req.Equal(int64(0), acct.Points)
	req.Empty(rec.got)

	list, err := store.ListOrdersByAccount(ctx, u.ID)
	req.NoError(err)
	req.Empty(list)
}

func TestCreateProductAndStatusPublish(t *testing.T) {
	req := require.New(t)
	svc, store, rec := setup()
	ctx := context.Background()

	u := store.Seed("u", 100, false)
	p, err := svc.CreateProduct(ctx, orders.Product{Name: "Ticket", Price: 10, Stock: 3, Type: "ticket"})
	req.NoError(err)
	o, err := svc.PlaceOrder(ctx, u.ID, []orders.ItemInput{{ProductID: p.ID, Quantity: 1}})
	req.NoError(err)

	updated, err := svc.UpdateOrderStatus(ctx, o.ID, orders.StatusShipped)
	req.NoError(err)
	req.Equal(orders.StatusShipped, updated.Status)

	_, err = svc.UpdateOrderStatus(ctx, o.ID, orders.StatusPending)
	req.ErrorIs(err, apperr.ErrValidation)

	req.Len(rec.got, 3)
	req.Equal(events.ProductCreated, rec.got[0].t)
	req.Equal(events.OrderCreated, rec.got[1].t)
	req.Equal(events.OrderUpdated, rec.got[2].t)
}

func TestSendMessagePublishes(t *testing.T) {
	req := require.New(t)
	svc, store, rec := setup()
	ctx := context.Background()

	a := store.Seed("a", 0, false)
	b := store.Seed("b", 0, false)

	m, err := svc.SendMessage(ctx, a.ID, b.ID, "hello")
	req.NoError(err)

	req.Len(rec.got, 1)
	req.Equal(events.MessageCreated, rec.got[0].t)
	req.Equal(m, rec.got[0].data)

	_, err = svc.SendMessage(ctx, a.ID, 999, "lost")
	req.ErrorIs(err, apperr.ErrNotFound)
	req.Len(rec.got, 1)
}
