package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"contact-lab/api"
	contactgrpc "contact-lab/grpc"
	"contact-lab/internal"
	"contact-lab/observability"
	"contact-lab/repositories"
	"contact-lab/repositories/postgres"
	"contact-lab/runtime"
	"contact-lab/runtime/workers"
	"contact-lab/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanups (database, connections) run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Record store
	repository, closeStore, err := openStore(ctx, config, log)
	if err != nil {
		return exitRuntime, err
	}
	defer closeStore()

	// 4. Broadcast channel & creation service
	metrics := observability.NewMetrics()
	registry := runtime.NewRegistry(log, metrics)
	contactService := services.NewContactService(repository, registry, log, metrics)

	// 5. Transports
	grpcServer := grpc.NewServer(contactgrpc.ServerOptions(log)...)
	contactgrpc.RegisterContactServiceServer(grpcServer,
		contactgrpc.NewContactServer(log, contactService, registry, config.ViewerBufferSize))

	handler := api.NewHandler(log, contactService, registry, config.ViewerBufferSize, config.AllowedOrigin)
	router := api.NewRouter(log, handler, metrics)

	// 6. Supervision, blocks until a signal arrives
	sup := workers.NewSupervisor(log, config.RestartInterval, metrics)
	sup.Add(
		contactgrpc.NewServerWorker(log, grpcServer, config.GrpcAddress(), config.ShutdownTimeout),
		api.NewServerWorker(log, router, config.HttpAddress(), config.ShutdownTimeout),
	).Run(ctx)

	log.Info("Program stopped cleanly")
	return exitOK, nil
}

func openStore(ctx context.Context, config internal.Config, log *slog.Logger) (repositories.IContactRepository, func(), error) {
	switch config.StoreDriver {
	case internal.StorePostgres:
		repository, err := postgres.NewContactRepository(ctx, config.PostgresDSN, log)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres opening failed: %w", err)
		}
		return repository, func() {
			log.Info("Closing Postgres pool...")
			repository.Close()
		}, nil
	default:
		db, err := badger.Open(buildBadgerOpts(ctx, config, log))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		return repositories.NewContactRepository(db, log), func() {
			// Releases the directory lock and flushes buffers
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}, nil
	}
}

func buildBadgerOpts(ctx context.Context, config internal.Config, log *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
