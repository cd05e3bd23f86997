// Package adminapi is the aggregator's operability surface: a small
// net/http + chi-routed listener exposing liveness, readiness, and
// Prometheus metrics. It never touches station records or the wire
// protocol and runs on its own listener, independent of the core
// acceptor.
package adminapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stationwatch/aggregator/internal/metrics"
)

// Server is the admin HTTP surface.
type Server struct {
	addr    string
	ready   func() bool
	metrics *metrics.Metrics
	log     *slog.Logger

	httpSrv *http.Server
}

// New builds an admin Server. ready reports whether the core acceptor
// has become ready; it backs /readyz.
func New(addr string, ready func() bool, m *metrics.Metrics, log *slog.Logger) *Server {
	s := &Server{addr: addr, ready: ready, metrics: m, log: log}
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("admin request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil && s.ready() {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}

// Run binds the listener and serves until ctx is canceled, at which
// point it shuts the HTTP server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.addr == "" || s.addr == ":0" {
		<-ctx.Done()
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.Serve(ln) }()

	s.log.Info("admin surface listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
