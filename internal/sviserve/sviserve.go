// Package sviserve exposes the fetcher's /metrics and /healthz
// endpoints, following cc-backend's server.go router/middleware
// construction (gorilla/mux routing, gorilla/handlers access log).
package sviserve

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/svidx/svi-fetch/pkg/log"
)

// Metrics are the counters/histograms incremented by the fetcher as
// it runs; Server exposes them at /metrics.
type Metrics struct {
	FetchesTotal     prometheus.Counter
	FetchErrorsTotal *prometheus.CounterVec
	TournamentProbes prometheus.Counter
	FetchDuration    prometheus.Histogram
}

// NewMetrics registers and returns a fresh Metrics set against its
// own registry, so multiple Servers in tests don't collide on the
// global default registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "svi_fetches_total",
			Help: "Total number of completed Container.GetData calls.",
		}),
		FetchErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svi_fetch_errors_total",
			Help: "Total number of failed fetches, by error kind.",
		}, []string{"kind"}),
		TournamentProbes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "svi_tournament_probes_total",
			Help: "Total number of tournament probe requests issued.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "svi_fetch_duration_seconds",
			Help:    "Wall-clock duration of a full Container.GetData call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	registry.MustRegister(m.FetchesTotal, m.FetchErrorsTotal, m.TournamentProbes, m.FetchDuration)
	return m
}

// Server is the optional HTTP server exposing liveness and metrics
// for a long-running `svi-fetch serve` process.
type Server struct {
	http     *http.Server
	registry *prometheus.Registry
}

// New builds a Server listening on addr. The caller starts it with
// ListenAndServe and stops it with Shutdown.
func New(addr string, registry *prometheus.Registry) *Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logged := handlers.CustomLoggingHandler(log.InfoWriter, router, func(w io.Writer, params handlers.LogFormatterParams) {
		log.Finfof(w, "%s %s (Response: %d, Size: %d)", params.Request.Method, params.URL.RequestURI(), params.StatusCode, params.Size)
	})

	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      logged,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		registry: registry,
	}
}

// Serve blocks serving requests on listener until Shutdown is called
// or an unrecoverable error occurs. Accepting a pre-built listener
// (rather than calling ListenAndServe internally) lets callers bind
// an ephemeral port and know it's live before Serve starts accepting.
func (s *Server) Serve(listener net.Listener) error {
	log.Infof("SVISERVE > listening on %s", listener.Addr())
	err := s.http.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ListenAndServe binds addr and serves, for callers that don't need
// the listener-readiness guarantee Serve gives.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline
// for in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
