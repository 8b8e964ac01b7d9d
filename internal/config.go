package internal

import (
	"fmt"
	"time"
)

const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

type Config struct {
	Host             string        `env:"HOST,default=0.0.0.0"`
	GrpcPort         int           `env:"GRPC_PORT,default=8080"`
	HttpPort         int           `env:"HTTP_PORT,default=5000"`
	StoreDriver      string        `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath   string        `env:"BADGER_FILEPATH,default=./data/badger"`
	PostgresDSN      string        `env:"POSTGRES_DSN"`
	ViewerBufferSize int           `env:"VIEWER_BUFFER_SIZE,default=64"`
	AllowedOrigin    string        `env:"ALLOWED_ORIGIN,default=*"`
	LogLevel         string        `env:"LOG_LEVEL,default=INFO"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}

func (c Config) GrpcAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GrpcPort)
}

func (c Config) HttpAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HttpPort)
}

// Validate catches what struct tags cannot express.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreBadger:
		if c.BadgerFilepath == "" {
			return fmt.Errorf("BADGER_FILEPATH is required with STORE_DRIVER=%s", StoreBadger)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required with STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreBadger, StorePostgres, c.StoreDriver)
	}
	if c.ViewerBufferSize <= 0 {
		return fmt.Errorf("VIEWER_BUFFER_SIZE must be positive, got %d", c.ViewerBufferSize)
	}
	return nil
}
