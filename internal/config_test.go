package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config

	err := env.Unmarshal(env.EnvSet{}, &config)

	req.NoError(err)
	req.Equal(StoreBadger, config.StoreDriver)
	req.Equal(64, config.ViewerBufferSize)
	req.Equal(200*time.Millisecond, config.RestartInterval)
	req.Equal("0.0.0.0:8080", config.GrpcAddress())
	req.Equal("0.0.0.0:5000", config.HttpAddress())
	req.NoError(config.Validate())
}

func TestConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	var config Config

	err := env.Unmarshal(env.EnvSet{
		"STORE_DRIVER":       "postgres",
		"POSTGRES_DSN":       "postgres://localhost/contacts",
		"GRPC_PORT":          "9090",
		"VIEWER_BUFFER_SIZE": "8",
	}, &config)

	req.NoError(err)
	req.Equal(9090, config.GrpcPort)
	req.Equal(8, config.ViewerBufferSize)
	req.NoError(config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	req := require.New(t)

	req.Error(Config{StoreDriver: "mongo", ViewerBufferSize: 1}.Validate())
	req.Error(Config{StoreDriver: StorePostgres, ViewerBufferSize: 1}.Validate())
	req.Error(Config{StoreDriver: StoreBadger, BadgerFilepath: "/tmp/x", ViewerBufferSize: 0}.Validate())
}
