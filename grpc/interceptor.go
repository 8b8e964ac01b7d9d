package grpc

import (
	"log/slog"
	"time"

	sdkgrpc "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// ServerOptions wires request logging for unary calls and Watch streams.
func ServerOptions(log *slog.Logger) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(sdkgrpc.UnaryLoggingInterceptor(log)),
		grpc.ChainStreamInterceptor(StreamLoggingInterceptor(log)),
	}
}

func StreamLoggingInterceptor(log *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		log.Debug("gRPC stream opened", "method", info.FullMethod)
		err := handler(srv, ss)
		log.Info("gRPC stream closed",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start))
		return err
	}
}
