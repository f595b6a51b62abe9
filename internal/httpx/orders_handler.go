package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
	"github.com/ariefcatur/go-realtime-points/internal/shop"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	Orders   orders.Store
	Accounts ledger.Store
	Shop     *shop.Service
}

type createOrderReq struct {
	Items  []orders.ItemInput `json:"items" validate:"required,min=1,dive"`
	UserID *int64             `json:"userId"`
}

type orderDetails struct {
	OrderID     int64         `json:"orderId"`
	Username    string        `json:"username"`
	UserID      int64         `json:"userId"`
	ProductName string        `json:"productName"`
	ProductID   int64         `json:"productId"`
	Quantity    int64         `json:"quantity"`
	Size        string        `json:"size,omitempty"`
	TotalPoints int64         `json:"totalPoints"`
	Status      orders.Status `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/orders", h.listOrders)
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/details", h.getOrderDetails)
	})
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Orders.ListProducts(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Orders.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListOrdersByAccount(r.Context(), caller(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	me := caller(r)
	if req.UserID != nil && *req.UserID != me.ID {
		writeError(w, r, apperr.Forbidden("Cannot create order for another user"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Shop.PlaceOrder(ctx, me.ID, req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderDetails flattens an order around its first item for the admin order table.
func (h *OrdersHandler) getOrderDetails(w http.ResponseWriter, r *http.Request) {
	o, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}
	if len(o.Items) == 0 {
		writeError(w, r, apperr.NotFound("Order items not found"))
		return
	}
	first := o.Items[0]
	d := orderDetails{
		OrderID:     o.ID,
		Username:    "Unknown",
		UserID:      o.AccountID,
		ProductName: "Unknown product",
		ProductID:   first.ProductID,
		Quantity:    first.Quantity,
		Size:        first.Size,
		TotalPoints: o.TotalPoints,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
	if p, err := h.Orders.GetProduct(r.Context(), first.ProductID); err == nil {
		d.ProductName = p.Name
	}
	if a, err := h.Accounts.GetAccount(r.Context(), o.AccountID); err == nil {
		d.Username = a.Username
	}
	writeJSON(w, http.StatusOK, d)
}

// ownedOrder loads the {id} order when the caller owns it or is an admin; otherwise it writes the error.
func (h *OrdersHandler) ownedOrder(w http.ResponseWriter, r *http.Request) (orders.Order, bool) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return orders.Order{}, false
	}
	o, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return orders.Order{}, false
	}
	me := caller(r)
	if !me.IsAdmin && o.AccountID != me.ID {
		writeError(w, r, apperr.Forbidden("Forbidden"))
		return orders.Order{}, false
	}
	return o, true
}
