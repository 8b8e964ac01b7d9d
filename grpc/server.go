package grpc

import (
	"context"
	"log/slog"

	"contact-lab/contract"
	"contact-lab/domain"
	"contact-lab/domain/event"
	"contact-lab/errors"
	"contact-lab/runtime"

	"github.com/samber/lo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ContactServer struct {
	contactService       contract.IContactService
	feed                 contract.IFeed
	connectionBufferSize int
	log                  *slog.Logger
}

func NewContactServer(log *slog.Logger, contactService contract.IContactService, feed contract.IFeed,
	connectionBufferSize int) *ContactServer {
	return &ContactServer{
		contactService:       contactService,
		feed:                 feed,
		connectionBufferSize: connectionBufferSize,
		log:                  log,
	}
}

// CreateContact returns the persisted contact to the submitter.
// The submitter also receives it on its own Watch stream, like every viewer.
func (s *ContactServer) CreateContact(ctx context.Context, req *CreateContactRequest) (*CreateContactResponse, error) {
	contact, err := s.contactService.CreateContact(ctx, req.ContactPayload)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &CreateContactResponse{Contact: contact}, nil
}

func (s *ContactServer) ListContacts(ctx context.Context, _ *ListContactsRequest) (*ListContactsResponse, error) {
	contacts, err := s.contactService.ListContacts(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return &ListContactsResponse{Contacts: contacts}, nil
}

// Watch opens a viewer session for the lifetime of the stream.
// It blocks until the client disconnects or the session is evicted.
// The deferred Close is the only place the subscription is released.
func (s *ContactServer) Watch(_ *WatchRequest, stream ContactService_WatchServer) error {
	session := runtime.OpenSession(s.feed, s.connectionBufferSize)
	defer session.Close()
	s.log.Debug("Viewer connected", "subscription_id", session.ID)

	if err := stream.Send(&WatchEvent{Type: EventReady}); err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			s.log.Debug("Viewer disconnected", "subscription_id", session.ID)
			return nil
		case <-session.Done():
			s.log.Warn("Viewer session evicted", "subscription_id", session.ID)
			return status.Error(codes.ResourceExhausted, "viewer could not keep up, session closed")
		case evt := <-session.Events():
			switch e := evt.(type) {
			case event.ContactCreated:
				if err := stream.Send(&WatchEvent{Type: EventContactCreated, Contact: lo.ToPtr(e.Contact)}); err != nil {
					s.log.Error("failed to push event to stream",
						"subscription_id", session.ID,
						"error", err)
					return err
				}
			}
		}
	}
}
