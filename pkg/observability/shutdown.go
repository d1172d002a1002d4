package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// ShutdownFunc is a cleanup hook run during graceful shutdown
type ShutdownFunc func(context.Context) error

// GracefulShutdown blocks until SIGINT or SIGTERM, drains the HTTP server,
// then runs the cleanup hooks in order within the timeout.
func GracefulShutdown(logger *logrus.Logger, server *http.Server, timeout time.Duration, shutdownFuncs ...ShutdownFunc) error {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("HTTP server shutdown error")
			return fmt.Errorf("HTTP server shutdown failed: %w", err)
		}
	}

	var failed int
	for _, fn := range shutdownFuncs {
		if err := fn(ctx); err != nil {
			logger.WithError(err).Error("shutdown hook failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("shutdown completed with %d errors", failed)
	}

	logger.Info("graceful shutdown complete")
	return nil
}
