package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-realtime-points/internal/ledger"
)

const CookieName = "session"

type ctxKey struct{}

func WithAccount(ctx context.Context, a ledger.Account) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// AccountFrom returns the authenticated account attached by Middleware.
func AccountFrom(ctx context.Context) (ledger.Account, bool) {
	a, ok := ctx.Value(ctxKey{}).(ledger.Account)
	return a, ok
}

// TokenFrom reads the session token from the cookie or a Bearer header.
func TokenFrom(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Middleware attaches the account when the request carries a valid session. It never rejects.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := TokenFrom(r); token != "" {
			if acct, err := s.Resolve(r.Context(), token); err == nil {
				r = r.WithContext(WithAccount(r.Context(), acct))
			}
		}
		next.ServeHTTP(w, r)
	})
}
