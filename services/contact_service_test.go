package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"contact-lab/domain"
	"contact-lab/domain/event"
	"contact-lab/errors"
	"contact-lab/mocks"
	"contact-lab/observability"
	"contact-lab/repositories"
	"contact-lab/runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"
)

func validPayload() domain.ContactPayload {
	return domain.ContactPayload{
		Name:    "  Jane Doe ",
		Email:   "Jane@Example.com",
		Phone:   "123 456 7890",
		Message: "I would like to get in touch",
	}
}

func TestContactService_CreateContact(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIContactRepository(ctrl)
	mockBroadcaster := mocks.NewMockIBroadcaster(ctrl)
	metrics := observability.NewMetrics()
	svc := NewContactService(mockRepo, mockBroadcaster, slog.Default(), metrics)

	t.Run("should persist then publish exactly once when input is valid", func(t *testing.T) {
		req := require.New(t)
		stored := domain.Contact{
			ID:        uuid.New(),
			Name:      "Jane Doe",
			Email:     "jane@example.com",
			Phone:     "1234567890",
			Message:   "I would like to get in touch",
			CreatedAt: time.Now().UTC(),
		}

		// The store receives normalized fields
		insert := mockRepo.EXPECT().
			Insert(gomock.Any(), domain.NewContact{
				Name:    "Jane Doe",
				Email:   "jane@example.com",
				Phone:   "1234567890",
				Message: "I would like to get in touch",
			}).
			Return(stored, nil).
			Times(1)
		mockBroadcaster.EXPECT().
			Publish(gomock.Any(), event.ContactCreated{Contact: stored}).
			Times(1).
			After(insert)

		contact, err := svc.CreateContact(context.Background(), validPayload())

		req.NoError(err)
		req.Equal(stored, contact)
		req.Equal(float64(1), testutil.ToFloat64(metrics.ContactsCreated))
	})

	t.Run("should have no side effect when validation fails", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Times(0)
		mockBroadcaster.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.CreateContact(context.Background(), domain.ContactPayload{Name: "J", Email: "nope", Phone: "12345"})

		req.ErrorIs(err, errors.ErrValidationFailed)
		var validationErr *errors.ValidationError
		req.True(errors.As(err, &validationErr))
		req.Equal([]string{"email", "name", "phone"}, validationErr.FieldNames())
	})

	t.Run("should not publish when email already exists", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(domain.Contact{}, errors.ErrDuplicateEmail).Times(1)
		mockBroadcaster.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.CreateContact(context.Background(), validPayload())

		req.ErrorIs(err, errors.ErrDuplicateEmail)
	})

	t.Run("should not publish when the store fails", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(domain.Contact{}, errors.ErrConstraintViolation).Times(1)
		mockBroadcaster.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.CreateContact(context.Background(), validPayload())

		req.ErrorIs(err, errors.ErrStoreUnavailable)
	})

	t.Run("should still publish when the caller gave up after persistence", func(t *testing.T) {
		req := require.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, domain.NewContact) (domain.Contact, error) {
				cancel()
				return domain.Contact{ID: uuid.New()}, nil
			}).Times(1)
		mockBroadcaster.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(
			func(ctx context.Context, _ event.DomainEvent) {
				req.NoError(ctx.Err())
			}).Times(1)

		_, err := svc.CreateContact(ctx, validPayload())
		req.NoError(err)
	})
}

func TestContactService_ListContacts(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIContactRepository(ctrl)
	svc := NewContactService(mockRepo, mocks.NewMockIBroadcaster(ctrl), slog.Default(), nil)

	t.Run("should return the store snapshot", func(t *testing.T) {
		req := require.New(t)
		snapshot := []domain.Contact{{ID: uuid.New()}, {ID: uuid.New()}}
		mockRepo.EXPECT().ListAll(gomock.Any()).Return(snapshot, nil)

		contacts, err := svc.ListContacts(context.Background())

		req.NoError(err)
		req.Equal(snapshot, contacts)
	})

	t.Run("should report the store as unavailable", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().ListAll(gomock.Any()).Return(nil, context.DeadlineExceeded)

		_, err := svc.ListContacts(context.Background())

		req.ErrorIs(err, errors.ErrStoreUnavailable)
	})
}

type countingSink struct {
	count atomic.Int32
}

func (s *countingSink) Consume(context.Context, event.DomainEvent) error {
	s.count.Add(1)
	return nil
}

// Real store and registry: two submissions of the same email race,
// exactly one is persisted and exactly one event reaches viewers.
func TestContactService_Concurrent_Duplicate_Broadcasts_Once(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	registry := runtime.NewRegistry(slog.Default(), nil)
	viewer := &countingSink{}
	registry.Subscribe(viewer)
	svc := NewContactService(repositories.NewContactRepository(db, slog.Default()), registry, slog.Default(), nil)

	var successes, duplicates atomic.Int32
	g := errgroup.Group{}
	for _, email := range []string{"Race@Example.com", "race@example.com "} {
		g.Go(func() error {
			payload := validPayload()
			payload.Email = email
			_, err := svc.CreateContact(context.Background(), payload)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, errors.ErrDuplicateEmail):
				duplicates.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	req.NoError(g.Wait())

	req.Equal(int32(1), successes.Load())
	req.Equal(int32(1), duplicates.Load())
	req.Equal(int32(1), viewer.count.Load())

	contacts, err := svc.ListContacts(context.Background())
	req.NoError(err)
	req.Len(contacts, 1)
}
