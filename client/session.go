package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"contact-lab/domain"
	"contact-lab/projection"
)

// IContactAPI is the part of Client a Viewer needs.
type IContactAPI interface {
	CreateContact(ctx context.Context, payload domain.ContactPayload) (domain.Contact, error)
	ListContacts(ctx context.Context) ([]domain.Contact, error)
	Watch(ctx context.Context) (*Subscription, error)
}

// Viewer is one mounted contact list: subscription first, then snapshot,
// then live events, all merged by a projection.View.
type Viewer struct {
	api  IContactAPI
	view *projection.View
	log  *slog.Logger

	subscription *Subscription
	live         atomic.Bool
	mu           sync.Mutex
	streamErr    error
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// Mount never fails: a broken snapshot leaves the view Ready with Err set,
// and a broken subscription leaves Live false.
func Mount(ctx context.Context, api IContactAPI, log *slog.Logger) *Viewer {
	v := &Viewer{api: api, view: projection.NewView(), log: log}

	subscription, err := api.Watch(ctx)
	if err != nil {
		log.Warn("Live updates unavailable", "error", err)
		v.setStreamErr(err)
	} else {
		v.subscription = subscription
		v.live.Store(true)
		v.wg.Add(1)
		go v.listen()
	}

	contacts, err := api.ListContacts(ctx)
	if err != nil {
		log.Warn("Snapshot failed", "error", err)
		v.view.FailSnapshot(err)
	} else {
		v.view.LoadSnapshot(contacts)
	}
	return v
}

// Submit creates a contact and applies the returned record at once.
// The broadcast echo arriving later is a no-op.
func (v *Viewer) Submit(ctx context.Context, payload domain.ContactPayload) (domain.Contact, error) {
	contact, err := v.api.CreateContact(ctx, payload)
	if err != nil {
		return domain.Contact{}, err
	}
	v.view.Apply(contact)
	return contact, nil
}

func (v *Viewer) View() *projection.View {
	return v.view
}

// Live reports whether the subscription is still delivering.
func (v *Viewer) Live() bool {
	return v.live.Load()
}

// StreamErr is why live updates stopped, if they did.
func (v *Viewer) StreamErr() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.streamErr
}

func (v *Viewer) setStreamErr(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.streamErr = err
}

// Close stops the subscription and freezes the view.
func (v *Viewer) Close() {
	v.closeOnce.Do(func() {
		if v.subscription != nil {
			v.subscription.Close()
		}
		v.wg.Wait()
		v.view.Close()
	})
}

func (v *Viewer) listen() {
	defer v.wg.Done()
	defer v.live.Store(false)
	for {
		contact, err := v.subscription.Next()
		if err != nil {
			v.setStreamErr(err)
			v.log.Debug("Subscription ended", "error", err)
			return
		}
		v.view.Apply(contact)
	}
}
