package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"contact-lab/domain"
	"contact-lab/domain/event"
	"contact-lab/errors"
	"contact-lab/mocks"
	"contact-lab/observability"
	"contact-lab/sink"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	onCall func()
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall()
	}
	return nil
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, e := range s.events {
		names = append(names, e.(event.ContactCreated).Contact.Name)
	}
	return names
}

func contactCreated(name string) event.ContactCreated {
	return event.ContactCreated{Contact: domain.Contact{ID: uuid.New(), Name: name}}
}

func TestRegistry_Subscribe_Then_Unsubscribe(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewMetrics()
	registry := NewRegistry(slog.Default(), metrics)

	// Given no viewer is connected
	req.Zero(registry.Count())

	// When two viewers subscribe
	id1 := registry.Subscribe(&recordingSink{})
	id2 := registry.Subscribe(&recordingSink{})

	// Then
	req.NotEqual(id1, id2)
	req.Equal(2, registry.Count())
	req.Equal(float64(2), testutil.ToFloat64(metrics.ViewersConnected))

	// When one leaves, twice
	registry.Unsubscribe(id1)
	registry.Unsubscribe(id1)

	// Then only one is left
	req.Equal(1, registry.Count())
	req.Equal(float64(1), testutil.ToFloat64(metrics.ViewersConnected))
}

func TestRegistry_Publish_Delivers_To_Every_Subscriber_In_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := NewRegistry(slog.Default(), nil)
	sink1 := &recordingSink{}
	sink2 := &recordingSink{}
	registry.Subscribe(sink1)
	registry.Subscribe(sink2)

	registry.Publish(ctx, contactCreated("Alice"))
	registry.Publish(ctx, contactCreated("Bob"))

	req.Equal([]string{"Alice", "Bob"}, sink1.names())
	req.Equal([]string{"Alice", "Bob"}, sink2.names())
}

func TestRegistry_Publish_Without_Subscribers(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewMetrics()
	registry := NewRegistry(slog.Default(), metrics)

	registry.Publish(context.Background(), contactCreated("Alice"))

	req.Equal(float64(1), testutil.ToFloat64(metrics.EventsPublished))
	req.Zero(testutil.ToFloat64(metrics.EventsDelivered))
}

func TestRegistry_No_Replay_For_Late_Subscriber(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := NewRegistry(slog.Default(), nil)

	registry.Publish(ctx, contactCreated("Alice"))
	late := &recordingSink{}
	registry.Subscribe(late)
	registry.Publish(ctx, contactCreated("Bob"))

	req.Equal([]string{"Bob"}, late.names())
}

func TestRegistry_Unsubscribed_Sink_Receives_Nothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	registry := NewRegistry(slog.Default(), nil)

	// The mock fails the test on any unexpected Consume
	mockSink := mocks.NewMockEventSink(ctrl)
	id := registry.Subscribe(mockSink)
	registry.Unsubscribe(id)

	registry.Publish(ctx, contactCreated("Alice"))
}

func TestRegistry_Subscribe_During_Publish_Does_Not_Deadlock(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := NewRegistry(slog.Default(), nil)
	joiner := &recordingSink{}
	first := &recordingSink{}
	first.onCall = func() {
		registry.Subscribe(joiner)
	}
	registry.Subscribe(first)

	// When a sink subscribes another one while being delivered to
	registry.Publish(ctx, contactCreated("Alice"))

	// Then the newcomer only sees later events
	req.Empty(joiner.names())
	registry.Publish(ctx, contactCreated("Bob"))
	req.Contains(joiner.names(), "Bob")
	req.NotContains(joiner.names(), "Alice")
}

func TestRegistry_Slow_Subscriber_Is_Evicted(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	metrics := observability.NewMetrics()
	registry := NewRegistry(slog.Default(), metrics)

	slow := sink.NewViewerSink(1)
	healthy := &recordingSink{}
	registry.Subscribe(slow)
	registry.Subscribe(healthy)

	// When more events are published than the slow buffer can hold
	registry.Publish(ctx, contactCreated("Alice"))
	registry.Publish(ctx, contactCreated("Bob"))
	registry.Publish(ctx, contactCreated("Clara"))

	// Then the slow subscriber is dropped and its session is terminated
	req.Equal(1, registry.Count())
	req.Equal(float64(1), testutil.ToFloat64(metrics.SubscribersEvicted))
	select {
	case <-slow.Done():
	default:
		req.Fail("evicted sink should be closed")
	}

	// And the healthy one got everything
	req.Equal([]string{"Alice", "Bob", "Clara"}, healthy.names())
}

func TestRegistry_Failing_Sink_Does_Not_Affect_Others(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	registry := NewRegistry(slog.Default(), nil)

	failing := mocks.NewMockEventSink(ctrl)
	failing.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(errors.ErrStoreUnavailable).Times(2)
	healthy := &recordingSink{}
	registry.Subscribe(failing)
	registry.Subscribe(healthy)

	registry.Publish(ctx, contactCreated("Alice"))
	registry.Publish(ctx, contactCreated("Bob"))

	req.Equal([]string{"Alice", "Bob"}, healthy.names())
	req.Equal(2, registry.Count())
}

func TestRegistry_Concurrent_Publishers_Deliver_Same_Order_To_All(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := NewRegistry(slog.Default(), nil)
	sink1 := &recordingSink{}
	sink2 := &recordingSink{}
	registry.Subscribe(sink1)
	registry.Subscribe(sink2)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Publish(ctx, contactCreated(uuid.NewString()))
		}()
	}
	wg.Wait()

	req.Len(sink1.names(), 20)
	req.Equal(sink1.names(), sink2.names())
}
