package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/auth"
	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	Auth         *auth.Service
	SessionTTL   time.Duration
	SecureCookie bool
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.With(requireAuth).Get("/user", h.currentUser)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acct, token, err := h.Auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setCookie(w, token, h.SessionTTL)
	writeJSON(w, http.StatusCreated, acct)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acct, token, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setCookie(w, token, h.SessionTTL)
	writeJSON(w, http.StatusOK, acct)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(r.Context(), auth.TokenFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	h.setCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, caller(r))
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}
