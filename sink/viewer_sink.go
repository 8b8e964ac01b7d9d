package sink

import (
	"context"
	"sync"

	"contact-lab/domain/event"
	"contact-lab/errors"
)

// ViewerSink buffers events for one connected viewer.
// The transport goroutine drains Events until Done is closed.
type ViewerSink struct {
	events chan event.DomainEvent
	done   chan struct{}
	once   sync.Once
}

func NewViewerSink(bufferSize int) *ViewerSink {
	return &ViewerSink{
		events: make(chan event.DomainEvent, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume is called by the registry while publishing.
// It never blocks: a full buffer is reported as ErrSlowSubscriber.
func (s *ViewerSink) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case s.events <- e:
		return nil
	default:
		return errors.ErrSlowSubscriber
	}
}

func (s *ViewerSink) Events() <-chan event.DomainEvent {
	return s.events
}

func (s *ViewerSink) Done() <-chan struct{} {
	return s.done
}

// Close is safe to call more than once.
func (s *ViewerSink) Close() {
	s.once.Do(func() { close(s.done) })
}
