package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
)

// ServerWorker runs a gRPC server under the supervisor.
// Run returns nil once ctx is canceled and the server has drained.
type ServerWorker struct {
	server          *grpc.Server
	address         string
	shutdownTimeout time.Duration
	log             *slog.Logger
}

func NewServerWorker(log *slog.Logger, server *grpc.Server, address string, shutdownTimeout time.Duration) *ServerWorker {
	return &ServerWorker{server: server, address: address, shutdownTimeout: shutdownTimeout, log: log}
}

func (w *ServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}
	return w.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (w *ServerWorker) Serve(ctx context.Context, listener net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC server", "address", listener.Addr().String(), "at", time.Now().UTC())
		for serviceName := range w.server.GetServiceInfo() {
			w.log.Debug("gRPC exposed services", "name", serviceName)
		}
		errChan <- w.server.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Watch streams end when their context is canceled by Stop,
	// so GracefulStop gets a bounded window first.
	stopped := make(chan struct{})
	go func() {
		w.server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(w.shutdownTimeout):
		w.log.Warn("gRPC graceful stop timed out, forcing", "timeout", w.shutdownTimeout)
		w.server.Stop()
	}
	return nil
}
