package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "points",
		Subsystem: "realtime",
		Name:      "open_connections",
		Help:      "Currently open realtime connections.",
	})

	WSFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "points",
		Subsystem: "realtime",
		Name:      "frames_total",
		Help:      "Outbound realtime frames by result (queued, dropped).",
	}, []string{"result"})

	WSInbound = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "points",
		Subsystem: "realtime",
		Name:      "inbound_frames_total",
		Help:      "Inbound realtime frames by type.",
	}, []string{"type"})

	Transfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "points",
		Subsystem: "ledger",
		Name:      "transfers_total",
		Help:      "Point transfers by outcome.",
	}, []string{"outcome"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "points",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests handled.",
	}, []string{"method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "points",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method"})
)

func init() {
	Registry.MustRegister(
		WSConnections,
		WSFrames,
		WSInbound,
		Transfers,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer (websocket hijack).
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Instrument records request counts and latency.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
