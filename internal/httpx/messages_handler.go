package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/messages"
	"github.com/ariefcatur/go-realtime-points/internal/shop"
	"github.com/go-chi/chi/v5"
)

type MessagesHandler struct {
	Messages *messages.Service
	Shop     *shop.Service
}

type sendMessageReq struct {
	ToUserID   int64  `json:"toUserId" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required,max=2000"`
	FromUserID *int64 `json:"fromUserId"`
}

func (h *MessagesHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/messages", h.inbox)
		r.Get("/messages/conversation/{userId}", h.conversation)
		r.Post("/messages", h.send)
		r.Patch("/messages/{id}/read", h.markRead)
	})
}

func (h *MessagesHandler) inbox(w http.ResponseWriter, r *http.Request) {
	list, err := h.Messages.Inbox(r.Context(), caller(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *MessagesHandler) conversation(w http.ResponseWriter, r *http.Request) {
	other, err := idParam(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.Messages.Conversation(r.Context(), caller(r).ID, other)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *MessagesHandler) send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	me := caller(r)
	if req.FromUserID != nil && *req.FromUserID != me.ID {
		writeError(w, r, apperr.Forbidden("Cannot send message as another user"))
		return
	}
	m, err := h.Shop.SendMessage(r.Context(), me.ID, req.ToUserID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *MessagesHandler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Messages.MarkRead(r.Context(), caller(r).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
