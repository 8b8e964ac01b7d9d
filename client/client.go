// Package client is the Go side of a viewer: it talks to the contact
// service over gRPC and keeps a projection.View in sync.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"contact-lab/domain"
	"contact-lab/errors"
	contactgrpc "contact-lab/grpc"
	"contact-lab/validation"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Client struct {
	conn *grpc.ClientConn
	api  contactgrpc.ContactServiceClient
	log  *slog.Logger
}

// Dial does not block; the first call surfaces connection problems.
func Dial(address string, log *slog.Logger, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to server at %s: %w", address, err)
	}
	return &Client{conn: conn, api: contactgrpc.NewContactServiceClient(conn), log: log}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// CreateContact runs the validation gate locally before any round trip.
func (c *Client) CreateContact(ctx context.Context, payload domain.ContactPayload) (domain.Contact, error) {
	if _, err := validation.ValidateContact(payload); err != nil {
		return domain.Contact{}, err
	}
	resp, err := c.api.CreateContact(ctx, &contactgrpc.CreateContactRequest{ContactPayload: payload})
	if err != nil {
		return domain.Contact{}, errors.FromGRPCError(err)
	}
	return resp.Contact, nil
}

func (c *Client) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	resp, err := c.api.ListContacts(ctx, &contactgrpc.ListContactsRequest{})
	if err != nil {
		return nil, errors.FromGRPCError(err)
	}
	return resp.Contacts, nil
}

// Watch returns once the server confirmed the subscription, so anything
// committed after Watch returns will be delivered.
func (c *Client) Watch(ctx context.Context) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.api.Watch(ctx, &contactgrpc.WatchRequest{})
	if err != nil {
		cancel()
		return nil, errors.FromGRPCError(err)
	}
	first, err := stream.Recv()
	if err != nil {
		cancel()
		return nil, errors.FromGRPCError(err)
	}
	if first.Type != contactgrpc.EventReady {
		cancel()
		return nil, fmt.Errorf("%w: unexpected first event %q", errors.ErrNetworkUnavailable, first.Type)
	}
	c.log.Debug("Watch subscription ready")
	return &Subscription{stream: stream, cancel: cancel}, nil
}

type Subscription struct {
	stream contactgrpc.ContactService_WatchClient
	cancel context.CancelFunc
}

// Next blocks until the next created contact. io.EOF means the server
// ended the stream.
func (s *Subscription) Next() (domain.Contact, error) {
	for {
		evt, err := s.stream.Recv()
		if err == io.EOF {
			return domain.Contact{}, err
		}
		if err != nil {
			return domain.Contact{}, errors.FromGRPCError(err)
		}
		if evt.Type == contactgrpc.EventContactCreated && evt.Contact != nil {
			return *evt.Contact, nil
		}
	}
}

func (s *Subscription) Close() {
	s.cancel()
}
