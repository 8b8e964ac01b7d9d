package runtime

import (
	"context"
	"log/slog"
	"sync"

	"contact-lab/contract"
	"contact-lab/domain/event"
	"contact-lab/errors"
	"contact-lab/observability"

	"github.com/google/uuid"
)

type closer interface {
	Close()
}

// Registry is the single-topic broadcast channel.
// One registry per process; tests build their own.
type Registry struct {
	mu        sync.RWMutex
	publishMu sync.Mutex // keeps publish order across concurrent publishers
	sinks     map[contract.SubscriptionID]contract.EventSink
	log       *slog.Logger
	metrics   *observability.Metrics
}

func NewRegistry(log *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		sinks:   make(map[contract.SubscriptionID]contract.EventSink),
		log:     log,
		metrics: metrics,
	}
}

// Subscribe registers a sink and returns the handle that releases it.
// Events published before this call are never delivered to the sink.
func (r *Registry) Subscribe(sink contract.EventSink) contract.SubscriptionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	r.sinks[id] = sink
	r.metrics.SetViewers(len(r.sinks))
	r.log.Debug("Subscriber registered", "subscription_id", id, "subscribers", len(r.sinks))
	return id
}

// Unsubscribe is idempotent.
func (r *Registry) Unsubscribe(id contract.SubscriptionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sinks[id]; !ok {
		return
	}
	delete(r.sinks, id)
	r.metrics.SetViewers(len(r.sinks))
	r.log.Debug("Subscriber released", "subscription_id", id, "subscribers", len(r.sinks))
}

// Publish delivers e to every sink registered when the call starts.
// The subscriber set is copied first, so sinks may subscribe or unsubscribe
// from inside Consume. A sink that reports ErrSlowSubscriber is evicted
// and closed; the others still get the event.
func (r *Registry) Publish(ctx context.Context, e event.DomainEvent) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	r.mu.RLock()
	snapshot := make(map[contract.SubscriptionID]contract.EventSink, len(r.sinks))
	for id, sink := range r.sinks {
		snapshot[id] = sink
	}
	r.mu.RUnlock()

	r.metrics.IncPublished()
	for id, sink := range snapshot {
		err := sink.Consume(ctx, e)
		switch {
		case err == nil:
			r.metrics.IncDelivered()
		case errors.Is(err, errors.ErrSlowSubscriber):
			r.log.Warn("Evicting slow subscriber", "subscription_id", id, "event", e.EventType())
			r.evict(id, sink)
		case errors.Is(err, errors.ErrSessionClosed):
			r.Unsubscribe(id)
		default:
			r.log.Warn("Delivery failed", "subscription_id", id, "event", e.EventType(), "error", err)
		}
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

func (r *Registry) evict(id contract.SubscriptionID, sink contract.EventSink) {
	r.Unsubscribe(id)
	r.metrics.IncEvicted()
	if c, ok := sink.(closer); ok {
		c.Close()
	}
}
