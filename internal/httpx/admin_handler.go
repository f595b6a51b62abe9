package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
	"github.com/ariefcatur/go-realtime-points/internal/shop"
	"github.com/ariefcatur/go-realtime-points/internal/stats"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the account directory and the /admin back office.
type AdminHandler struct {
	Accounts ledger.Store
	Ledger   *ledger.Service
	Orders   orders.Store
	Shop     *shop.Service
	// Stats is optional; without it /admin/stats answers 503.
	Stats *stats.Reader
	Now   func() time.Time
}

type addPointsReq struct {
	Points int64 `json:"points" validate:"required,min=1"`
}

type setAdminReq struct {
	IsAdmin *bool `json:"isAdmin" validate:"required"`
}

type orderStatusReq struct {
	Status orders.Status `json:"status" validate:"required"`
}

type productReq struct {
	Name          string     `json:"name" validate:"required,max=200"`
	Description   string     `json:"description"`
	ImageURL      string     `json:"imageUrl" validate:"omitempty,max=500"`
	Category      string     `json:"category" validate:"required"`
	Price         int64      `json:"price" validate:"gte=0"`
	Stock         int64      `json:"stock" validate:"gte=0"`
	Unlimited     bool       `json:"unlimited"`
	Type          string     `json:"type" validate:"required,oneof=ticket tshirt"`
	EventDate     *time.Time `json:"eventDate"`
	EventLocation string     `json:"eventLocation"`
	Sizes         string     `json:"sizes"`
}

func (h *AdminHandler) Register(r chi.Router) {
	r.With(requireAuth).Get("/users/admins", h.listAdmins)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/admin/users", h.listUsers)
		r.Post("/admin/users/{id}/add-points", h.addPoints)
		r.Patch("/admin/users/{id}", h.setAdmin)
		r.Get("/admin/orders", h.listOrders)
		r.Patch("/admin/orders/{id}", h.updateOrderStatus)
		r.Post("/admin/products", h.createProduct)
		r.Patch("/admin/products/{id}", h.updateProduct)
		r.Delete("/admin/products/{id}", h.deleteProduct)
		r.Get("/admin/stats", h.stats)
	})
}

func (h *AdminHandler) listAdmins(w http.ResponseWriter, r *http.Request) {
	list, err := h.Accounts.ListAdmins(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Accounts.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) addPoints(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addPointsReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := h.Ledger.AddPoints(r.Context(), id, req.Points)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *AdminHandler) setAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req setAdminReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := h.Ledger.SetAdmin(r.Context(), id, *req.IsAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req orderStatusReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !req.Status.Valid() {
		writeError(w, r, apperr.Validation("unknown order status", map[string]string{"status": "oneof"}))
		return
	}
	o, err := h.Shop.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Shop.CreateProduct(r.Context(), orders.Product{
		Name:          req.Name,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		Category:      req.Category,
		Price:         req.Price,
		Stock:         req.Stock,
		Unlimited:     req.Unlimited,
		Type:          req.Type,
		EventDate:     req.EventDate,
		EventLocation: req.EventLocation,
		Sizes:         req.Sizes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch orders.ProductPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Orders.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Orders.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Product deleted successfully"})
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	if h.Stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Message: "stats unavailable"})
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	t, err := h.Stats.Totals(r.Context(), now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
