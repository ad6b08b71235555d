// common/httpserver/server.go

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
	"github.com/YaganovValera/analytics-system/stream-connector/common/middleware"
	prom "github.com/YaganovValera/analytics-system/stream-connector/common/prometheus"
)

// ReadyChecker returns nil if the service is ready to serve.
type ReadyChecker func() error

// HTTPServer serves metrics and health probes until its context ends.
type HTTPServer interface {
	Start(ctx context.Context) error
}

type server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             *logger.Logger
}

// New builds the probe server. Extra handlers are mounted next to the
// built-in /metrics, /healthz and /readyz.
func New(cfg Config, check ReadyChecker, log *logger.Logger, extra map[string]http.Handler) (HTTPServer, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if check == nil {
		check = func() error { return nil }
	}
	log = log.Named("http-server")

	httpSrv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newHandler(cfg, check, log, extra),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &server{
		httpServer:      httpSrv,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             log,
	}, nil
}

func newHandler(cfg Config, check ReadyChecker, log *logger.Logger, extra map[string]http.Handler) http.Handler {
	return middleware.Compose(
		RecoverMiddleware(log),
		middleware.RequestID(),
		middleware.Metrics(prom.DefaultRegistry),
		CORSMiddleware(),
	)(newRouter(cfg, check, extra))
}

func newRouter(cfg Config, check ReadyChecker, extra map[string]http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Handle(cfg.MetricsPath, prom.Handler())
	r.Get(cfg.HealthzPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get(cfg.ReadyzPath, func(w http.ResponseWriter, _ *http.Request) {
		if err := check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "NOT READY: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})
	for path, h := range extra {
		r.Handle(path, h)
	}
	return r
}

// Start runs ListenAndServe and shuts down gracefully on ctx.Done().
// A cancelled ctx is a clean stop and returns nil.
func (s *server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen: %w", err)
	}
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("http: starting server", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("httpserver: serve: %w", err)
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.log.Info("http: shutdown signal received")
	case err := <-errCh:
		serveErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("http: graceful shutdown failed", zap.Error(err))
		return err
	}
	s.log.Info("http: server stopped gracefully")
	return serveErr
}
