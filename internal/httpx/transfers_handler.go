package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	idemPending          = "pending"
)

type TransfersHandler struct {
	Ledger *ledger.Service
	// Redis backs Idempotency-Key; nil disables it.
	Redis redis.Cmdable
}

type transferReq struct {
	ToUserID   int64   `json:"toUserId" validate:"required,gt=0"`
	Points     int64   `json:"points"`
	Reason     *string `json:"reason" validate:"omitempty,max=255"`
	FromUserID *int64  `json:"fromUserId"`
}

func (h *TransfersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/point-transfers", h.history)
		r.Post("/point-transfers", h.create)
	})
}

func (h *TransfersHandler) history(w http.ResponseWriter, r *http.Request) {
	list, err := h.Ledger.History(r.Context(), caller(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TransfersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req transferReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	me := caller(r)
	if req.FromUserID != nil && *req.FromUserID != me.ID {
		writeError(w, r, apperr.Forbidden("Cannot send points as another user"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idemKey := ""
	if k := r.Header.Get(headerIdempotencyKey); k != "" && h.Redis != nil {
		idemKey = fmt.Sprintf(redisx.KeyIdemTransfer, me.ID, k)
		prior, replay, err := h.claim(ctx, idemKey)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if replay {
			w.Header().Set(headerReplayed, "true")
			writeJSON(w, http.StatusCreated, prior)
			return
		}
	}

	t, err := h.Ledger.Transfer(ctx, ledger.TransferInput{
		FromAccountID: me.ID,
		ToAccountID:   req.ToUserID,
		Points:        req.Points,
		Reason:        req.Reason,
	})
	if err != nil {
		if idemKey != "" {
			_ = h.Redis.Del(ctx, idemKey).Err()
		}
		writeError(w, r, err)
		return
	}
	if idemKey != "" {
		_ = h.Redis.Set(ctx, idemKey, strconv.FormatInt(t.ID, 10), redisx.TTLIdempotency).Err()
	}
	writeJSON(w, http.StatusCreated, t)
}

// claim reserves the idempotency key. When it was already used it returns the transfer it produced.
func (h *TransfersHandler) claim(ctx context.Context, key string) (ledger.Transfer, bool, error) {
	first, err := redisx.Claim(ctx, h.Redis, key, idemPending, redisx.TTLIdempotency)
	if err != nil {
		return ledger.Transfer{}, false, fmt.Errorf("idempotency claim: %w", err)
	}
	if first {
		return ledger.Transfer{}, false, nil
	}

	v, err := h.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ledger.Transfer{}, false, apperr.Conflict("request with this Idempotency-Key is in progress")
	}
	if err != nil {
		return ledger.Transfer{}, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return ledger.Transfer{}, false, apperr.Conflict("request with this Idempotency-Key is in progress")
	}
	t, err := h.Ledger.GetTransfer(ctx, id)
	if err != nil {
		return ledger.Transfer{}, false, err
	}
	return t, true, nil
}
