package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/auth"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/realtime"
)

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.AccountFrom(r.Context()); !ok {
			writeError(w, r, apperr.Unauthenticated("Not authenticated"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := auth.AccountFrom(r.Context())
		if !ok {
			writeError(w, r, apperr.Unauthenticated("Not authenticated"))
			return
		}
		if !a.IsAdmin {
			writeError(w, r, apperr.Forbidden("Forbidden"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// caller is only valid behind requireAuth.
func caller(r *http.Request) ledger.Account {
	a, _ := auth.AccountFrom(r.Context())
	return a
}

// RealtimeIdentity lets the gateway reuse the session resolved by the router middleware.
func RealtimeIdentity(r *http.Request) realtime.Identity {
	a, ok := auth.AccountFrom(r.Context())
	if !ok {
		return realtime.Identity{}
	}
	return realtime.Identity{AccountID: a.ID, IsAdmin: a.IsAdmin}
}
