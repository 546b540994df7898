// Package httpapi exposes the client's local HTTP/SSE surface described
// in §6: a handful of simple GET routes backed by the client's FSM,
// content store, and broadcast channels, plus a Prometheus /metrics
// endpoint for ambient observability.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dronecast/overlay-client/internal/client"
)

// Server wraps an http.Server bound to one client's control surface.
type Server struct {
	httpSrv *http.Server
	log     *slog.Logger
}

// Config configures the HTTP server.
type Config struct {
	Addr     string
	Client   *client.Client
	Registry *prometheus.Registry
	Logger   *slog.Logger

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New builds a Server with every §6 route registered plus /metrics.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.WithGroup("httpapi")

	mux := http.NewServeMux()
	registerRoutes(mux, cfg.Client, logger)
	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}

	return &Server{
		httpSrv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           requestIDMiddleware(logger, mux),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      0, // SSE routes stream indefinitely
		},
		log: logger,
	}
}

// Run starts the server and blocks until ctx is cancelled, at which point
// it shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http server shutdown error", "error", err)
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// requestIDMiddleware tags every request with a fresh uuid, echoed back
// as a response header and attached to the request's logger.
func requestIDMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		reqLog := logger.With("request_id", id, "path", r.URL.Path)
		reqLog.Debug("handling request")
		next.ServeHTTP(w, r.WithContext(withLogger(r.Context(), reqLog)))
	})
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
