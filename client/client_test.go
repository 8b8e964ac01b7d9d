package client

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"contact-lab/domain"
	"contact-lab/errors"
	"contact-lab/projection"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

// A client whose server is gone: every round trip fails at the transport.
func unreachableClient(t *testing.T) *Client {
	t.Helper()
	listener := bufconn.Listen(1024)
	require.NoError(t, listener.Close())
	c, err := Dial("passthrough:///unreachable", slog.Default(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_CreateContact_Rejects_Locally(t *testing.T) {
	req := require.New(t)
	c := unreachableClient(t)

	// The payload never reaches the (broken) network
	_, err := c.CreateContact(testContext(t), domain.ContactPayload{Name: "Jane", Email: "jane@example", Phone: "1234567890"})

	req.ErrorIs(err, errors.ErrValidationFailed)
	req.NotErrorIs(err, errors.ErrNetworkUnavailable)
}

func TestClient_CreateContact_Network_Failure(t *testing.T) {
	req := require.New(t)
	c := unreachableClient(t)

	_, err := c.CreateContact(testContext(t), domain.ContactPayload{Name: "Jane", Email: "jane@example.com", Phone: "1234567890"})

	req.ErrorIs(err, errors.ErrNetworkUnavailable)
}

func TestMount_Without_Server(t *testing.T) {
	req := require.New(t)
	c := unreachableClient(t)

	viewer := Mount(testContext(t), c, slog.Default())
	defer viewer.Close()

	// The view still leaves the loading state, with an error and no rows
	req.Equal(projection.Ready, viewer.View().State())
	req.ErrorIs(viewer.View().Err(), errors.ErrNetworkUnavailable)
	req.Empty(viewer.View().Contacts())
	req.False(viewer.Live())
	req.ErrorIs(viewer.StreamErr(), errors.ErrNetworkUnavailable)
}

func TestViewer_Submit_Failure_Leaves_View_Untouched(t *testing.T) {
	req := require.New(t)
	c := unreachableClient(t)
	viewer := Mount(testContext(t), c, slog.Default())
	defer viewer.Close()

	_, err := viewer.Submit(testContext(t), domain.ContactPayload{Name: "Jane", Email: "jane@example.com", Phone: "1234567890"})

	req.Error(err)
	req.Empty(viewer.View().Contacts())
}
