package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/moband/kaf/internal/metrics"
	"github.com/moband/kaf/pkg/logger"
)

// AdminServer serves /metrics and /healthz over HTTP
type AdminServer struct {
	addr     string
	logger   *logger.Logger
	listener net.Listener
	http     *http.Server
}

// NewAdminServer routes the admin endpoints. healthy reports whether the
// Kafka listener is serving.
func NewAdminServer(addr string, registry *metrics.Registry, healthy func() bool, logger *logger.Logger) *AdminServer {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !healthy() {
			http.Error(w, "not serving", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})
	r.Method(http.MethodGet, "/metrics", registry.Handler())

	return &AdminServer{
		addr:   addr,
		logger: logger,
		http:   &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second},
	}
}

// Start binds the listener and serves in the background
func (a *AdminServer) Start() error {
	listener, err := net.Listen("tcp", a.addr)
	if err != nil {
		return errors.Wrapf(err, "failed to bind admin listener to %s", a.addr)
	}
	a.listener = listener
	a.logger.Info("Admin server listening on %s", listener.Addr())

	go func() {
		if err := a.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Admin server: %s", err.Error())
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start
func (a *AdminServer) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Stop shuts the HTTP server down gracefully
func (a *AdminServer) Stop(ctx context.Context) error {
	return a.http.Shutdown(ctx)
}
