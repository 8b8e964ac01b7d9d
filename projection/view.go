// Package projection builds the local contact list of one viewer from a
// snapshot and live events.
// Handles ordering, deduplication and the loading phase.
// Does not emit events or interact with UI directly.
package projection

import (
	"context"
	"slices"
	"sort"
	"sync"

	"contact-lab/domain"
	"contact-lab/domain/event"
)

type State int

const (
	Loading State = iota
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// View is a newest-first list of contacts, unique by id.
// It only grows. Every method is a no-op after Close.
type View struct {
	mu       sync.Mutex
	state    State
	contacts []domain.Contact
	ids      map[domain.ContactID]struct{}
	pending  []domain.Contact
	err      error
	closed   bool
	changes  chan struct{}
}

func NewView() *View {
	return &View{
		state:   Loading,
		ids:     make(map[domain.ContactID]struct{}),
		changes: make(chan struct{}, 1),
	}
}

// LoadSnapshot makes the view Ready with the given list, then merges
// whatever arrived while loading.
func (v *View) LoadSnapshot(contacts []domain.Contact) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	for _, c := range contacts {
		v.insert(c)
	}
	v.becomeReady()
}

// FailSnapshot makes the view Ready with an error indicator and no snapshot.
// Live events keep being applied afterwards.
func (v *View) FailSnapshot(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.err = err
	v.becomeReady()
}

// Apply adds a contact unless its id is already known.
// It reports whether the visible list changed.
func (v *View) Apply(contact domain.Contact) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	if v.state == Loading {
		v.pending = append(v.pending, contact)
		return false
	}
	if !v.insert(contact) {
		return false
	}
	v.notify()
	return true
}

// Consume lets the view sit directly behind a feed.
func (v *View) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.ContactCreated:
		v.Apply(evt.Contact)
	}
	return nil
}

func (v *View) Contacts() []domain.Contact {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.contacts)
}

func (v *View) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.contacts)
}

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Err is the snapshot failure, if any.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Changes fires after the list or the state changed. Notifications coalesce.
func (v *View) Changes() <-chan struct{} {
	return v.changes
}

func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.pending = nil
}

func (v *View) becomeReady() {
	v.state = Ready
	for _, c := range v.pending {
		v.insert(c)
	}
	v.pending = nil
	v.notify()
}

// insert keeps the list sorted; the common case is a prepend.
func (v *View) insert(contact domain.Contact) bool {
	if _, ok := v.ids[contact.ID]; ok {
		return false
	}
	v.ids[contact.ID] = struct{}{}
	if len(v.contacts) == 0 || contact.Newer(v.contacts[0]) {
		v.contacts = slices.Insert(v.contacts, 0, contact)
		return true
	}
	i := sort.Search(len(v.contacts), func(i int) bool {
		return contact.Newer(v.contacts[i])
	})
	v.contacts = slices.Insert(v.contacts, i, contact)
	return true
}

func (v *View) notify() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}
