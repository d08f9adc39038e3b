// Package gateway serves the process's HTTP side: health and Prometheus
// endpoints, and optionally an A2A handler mounted at the root.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
)

type Gateway struct {
	server  *http.Server
	router  *chi.Mux
	logger  *slog.Logger
	handler http.Handler
}

type Config struct {
	Addr   string
	Logger *slog.Logger
	// Handler, if set, is mounted at "/" behind the health and metrics routes.
	Handler http.Handler
}

func New(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	g := &Gateway{
		router:  r,
		logger:  cfg.Logger,
		handler: cfg.Handler,
	}

	g.registerRoutes()

	g.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return g
}

func (g *Gateway) registerRoutes() {
	g.router.Get("/healthz", g.handleHealthz)
	g.router.Handle("/metrics", promhttp.Handler())

	if g.handler != nil {
		g.router.Group(func(r chi.Router) {
			r.Use(g.requestLogger)
			r.Mount("/", g.handler)
		})
	}
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Start listens and serves until ctx is done, then shuts down gracefully.
func (g *Gateway) Start(ctx context.Context) error {
	logger := telemetry.FromContext(ctx)

	ln, err := net.Listen("tcp", g.server.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	logger.Info("gateway listening", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := g.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return g.shutdown()
	case err := <-errCh:
		return err
	}
}

func (g *Gateway) shutdown() error {
	g.logger.Info("gateway shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return g.server.Shutdown(ctx)
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		g.logger.Debug("gateway: request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
