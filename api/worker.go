package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ServerWorker runs the HTTP gateway under the supervisor.
type ServerWorker struct {
	handler         http.Handler
	address         string
	shutdownTimeout time.Duration
	log             *slog.Logger
}

func NewServerWorker(log *slog.Logger, handler http.Handler, address string, shutdownTimeout time.Duration) *ServerWorker {
	return &ServerWorker{handler: handler, address: address, shutdownTimeout: shutdownTimeout, log: log}
}

func (w *ServerWorker) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              w.address,
		Handler:           w.handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Hijacked websockets are not tracked by Shutdown; they watch this context instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP gateway", "address", w.address, "at", time.Now().UTC())
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		w.log.Warn("HTTP graceful shutdown failed", "error", err)
		return server.Close()
	}
	return nil
}
