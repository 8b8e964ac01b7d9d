package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contact-lab/contract"
	"contact-lab/domain"
	"contact-lab/domain/event"
	"contact-lab/errors"
	"contact-lab/observability"
	"contact-lab/repositories"
	"contact-lab/validation"
)

var _ contract.IContactService = (*ContactService)(nil)

type ContactService struct {
	repository  repositories.IContactRepository
	broadcaster contract.IBroadcaster
	log         *slog.Logger
	metrics     *observability.Metrics
	// persist and publish of one request happen under commitMu,
	// so viewers see events in commit order.
	commitMu sync.Mutex
}

func NewContactService(
	repository repositories.IContactRepository,
	broadcaster contract.IBroadcaster,
	log *slog.Logger,
	metrics *observability.Metrics,
) *ContactService {
	return &ContactService{
		repository:  repository,
		broadcaster: broadcaster,
		log:         log,
		metrics:     metrics,
	}
}

// CreateContact validates, persists and announces a new contact.
// Nothing is stored or published when validation or persistence fails.
func (s *ContactService) CreateContact(ctx context.Context, payload domain.ContactPayload) (domain.Contact, error) {
	start := time.Now()
	defer s.metrics.ObserveCreate(start)

	// 1. Authoritative validation, same rules as the client
	newContact, err := validation.ValidateContact(payload)
	if err != nil {
		s.metrics.IncRejected("validation")
		return domain.Contact{}, err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// 2. Persist; the store assigns id and createdAt
	contact, err := s.repository.Insert(ctx, newContact)
	if err != nil {
		return domain.Contact{}, s.translate(err, newContact.Email)
	}

	// 3. The record exists now, so the announcement must not depend on the caller staying around
	s.broadcaster.Publish(context.WithoutCancel(ctx), event.ContactCreated{Contact: contact})
	s.metrics.IncCreated()
	s.log.Info("Contact created", "id", contact.ID, "created_at", contact.CreatedAt)
	return contact, nil
}

func (s *ContactService) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	contacts, err := s.repository.ListAll(ctx)
	if err != nil {
		s.log.Error("Failed to list contacts", "error", err)
		if errors.Is(err, errors.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	return contacts, nil
}

func (s *ContactService) translate(err error, email string) error {
	switch {
	case errors.Is(err, errors.ErrDuplicateEmail):
		s.metrics.IncRejected("duplicate")
		s.log.Debug("Duplicate contact email", "email", email)
		return errors.ErrDuplicateEmail
	case errors.Is(err, errors.ErrStoreUnavailable):
		s.metrics.IncRejected("store")
		s.log.Error("Contact store unavailable", "error", err)
		return err
	default:
		s.metrics.IncRejected("store")
		s.log.Error("Contact insert failed", "error", err)
		return fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
}
