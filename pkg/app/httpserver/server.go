// Package httpserver runs the gateway's HTTP listener with signal-driven
// graceful shutdown, so in-flight capture and submit requests drain before
// the process exits.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ServeAndWait starts srv and blocks until ctx is canceled (the shutdown
// signal) or the listener fails, then drains connections within
// shutdownTimeout. It returns a non-nil error when the listener died
// unexpectedly or the drain timed out.
func ServeAndWait(ctx context.Context, logger *zap.Logger, srv *http.Server, shutdownTimeout time.Duration) error {
	if srv == nil {
		return fmt.Errorf("nil http server")
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		if logger != nil {
			logger.Info("Gateway listening", zap.String("address", srv.Addr))
		}
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		if logger != nil {
			logger.Info("Shutdown signal received, draining requests")
		}
	case runErr = <-errCh:
		if runErr != nil && logger != nil {
			logger.Error("Gateway listener failed", zap.Error(runErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if logger != nil {
		logger.Info("Stopping gateway", zap.Duration("timeout", shutdownTimeout))
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		if logger != nil {
			logger.Error("Gateway shutdown did not complete cleanly", zap.Error(err))
		}
		return fmt.Errorf("http shutdown: %w", err)
	}

	// A listener crash still wins over a clean drain.
	if runErr != nil {
		return fmt.Errorf("http server failed: %w", runErr)
	}

	if logger != nil {
		logger.Info("Gateway stopped")
	}
	return nil
}
