//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"contact-lab/domain"
	"contact-lab/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink must not block: return errors.ErrSlowSubscriber when full.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type SubscriptionID = uuid.UUID

// IFeed is the subscriber side of the broadcast channel.
type IFeed interface {
	Subscribe(sink EventSink) SubscriptionID
	Unsubscribe(id SubscriptionID)
}

// IBroadcaster is the publisher side of the broadcast channel.
type IBroadcaster interface {
	Publish(ctx context.Context, e event.DomainEvent)
}

type IContactService interface {
	CreateContact(ctx context.Context, payload domain.ContactPayload) (domain.Contact, error)
	ListContacts(ctx context.Context) ([]domain.Contact, error)
}
