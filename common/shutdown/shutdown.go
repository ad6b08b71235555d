// Package shutdown wires OS signals to context cancellation and runs
// bounded cleanup steps.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

// WaitForSignals blocks until SIGINT/SIGTERM or ctx is done, calling cancel
// on a signal.
func WaitForSignals(ctx context.Context, cancel context.CancelFunc, log *logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("shutdown: signal received", zap.String("signal", sig.String()))
		cancel()
	case <-ctx.Done():
	}
}

// GracefulShutdown runs fn with a fresh context bounded by timeout and logs
// the outcome under name.
func GracefulShutdown(name string, timeout time.Duration, fn func(ctx context.Context) error, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info("shutdown: stopping", zap.String("component", name))
	if err := fn(ctx); err != nil {
		log.Error("shutdown: stop failed", zap.String("component", name), zap.Error(err))
		return err
	}
	log.Info("shutdown: stopped cleanly", zap.String("component", name))
	return nil
}
