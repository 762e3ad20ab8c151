package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/botflow/internal/config"
	"github.com/aretw0/botflow/internal/metrics"
	httpAdapter "github.com/aretw0/botflow/pkg/adapters/http"
	"github.com/aretw0/botflow/pkg/runner"
)

// ShutdownTimeout bounds how long in-flight requests may take once the
// server is asked to stop.
const ShutdownTimeout = 5 * time.Second

// NewAPIServer wires the configured backends into the HTTP adapter.
func NewAPIServer(cfg *config.Config, b *Backends, logger *slog.Logger) *httpAdapter.Server {
	m := metrics.New()
	engine := NewEngine(cfg, logger, m)
	return httpAdapter.NewServer(b.Workspace(), b.SessionManager(engine, logger),
		httpAdapter.WithMetrics(m),
		httpAdapter.WithLogger(logger),
		httpAdapter.WithAllowAllOrigins(cfg.Server.AllowAllOrigins),
		httpAdapter.WithInputPolicy(runner.DefaultInputPolicy()),
	)
}

// Serve runs the API on ln until ctx is cancelled, then drains in-flight
// requests for at most ShutdownTimeout.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting botflow server", "address", ln.Addr().String())
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Start shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			if closeErr := srv.Close(); closeErr != nil {
				return fmt.Errorf("failed to kill server: %w", closeErr)
			}
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}
