package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/auth"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Registrar is implemented by every handler group mounted under /api.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the base router: request ids, logging, recovery, metrics and, when sessions
// are available, account resolution.
func NewRouter(sessions *auth.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer, obs.Instrument)
	if sessions != nil {
		r.Use(sessions.Middleware)
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", obs.Handler())
	return r
}

// MountAPI registers the handler groups under /api with a request timeout.
// The websocket route stays outside so long-lived connections are not cut.
func MountAPI(r chi.Router, groups ...Registrar) {
	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(15 * time.Second))
		for _, g := range groups {
			g.Register(api)
		}
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		obs.Component("http").WithFields(map[string]any{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request")
	})
}
