package runtime

import (
	"sync"

	"contact-lab/contract"
	"contact-lab/domain/event"
	"contact-lab/sink"
)

// Session is the server-side state of one connected viewer.
// It exists from OpenSession until Close, which the transport defers.
type Session struct {
	ID   contract.SubscriptionID
	sink *sink.ViewerSink
	feed contract.IFeed
	once sync.Once
}

// OpenSession subscribes immediately, so nothing published after it
// returns can be missed.
func OpenSession(feed contract.IFeed, bufferSize int) *Session {
	s := sink.NewViewerSink(bufferSize)
	return &Session{ID: feed.Subscribe(s), sink: s, feed: feed}
}

func (s *Session) Events() <-chan event.DomainEvent {
	return s.sink.Events()
}

// Done is closed when the session is closed or evicted.
func (s *Session) Done() <-chan struct{} {
	return s.sink.Done()
}

// Close releases the subscription exactly once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.feed.Unsubscribe(s.ID)
		s.sink.Close()
	})
}
