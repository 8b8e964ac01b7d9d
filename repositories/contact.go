//go:generate go run go.uber.org/mock/mockgen -source=contact.go -destination=../mocks/mock_contact_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"contact-lab/domain"
	"contact-lab/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	contactPrefix    = "contact:"
	emailIndexPrefix = "idx:email:"
	// Concurrent inserts touching the same email index key abort with
	// badger.ErrConflict; the retry then observes the winner's key.
	maxConflictRetries = 5
)

type IContactRepository interface {
	Insert(ctx context.Context, contact domain.NewContact) (domain.Contact, error)
	ListAll(ctx context.Context) ([]domain.Contact, error)
}

type ContactRepository struct {
	db    *badger.DB
	log   *slog.Logger
	clock *MonotonicClock
}

func NewContactRepository(db *badger.DB, log *slog.Logger) *ContactRepository {
	return &ContactRepository{db: db, log: log, clock: NewMonotonicClock(time.Now)}
}

type diskContact struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message,omitempty"`
	At      int64  `json:"at"`
}

// Insert persists a contact and its email index entry in one transaction.
// Keys:
//   - "contact:{created_at_padded}:{uuid}" holds the record; the 19-digit
//     zero padding keeps lexicographical order chronological.
//   - "idx:email:{email}" holds the id and declares email uniqueness.
func (r *ContactRepository) Insert(ctx context.Context, contact domain.NewContact) (domain.Contact, error) {
	if err := checkConstraints(contact); err != nil {
		return domain.Contact{}, err
	}
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Contact{}, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
		}
		created, err := r.insert(contact)
		if !errors.Is(err, badger.ErrConflict) {
			return created, err
		}
		if attempt == maxConflictRetries {
			return domain.Contact{}, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
		}
		r.log.Debug("Transaction conflict on contact insert, retrying", "attempt", attempt+1)
	}
}

func (r *ContactRepository) insert(newContact domain.NewContact) (domain.Contact, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Contact{}, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	contact := domain.Contact{
		ID:        id,
		Name:      newContact.Name,
		Email:     newContact.Email,
		Phone:     newContact.Phone,
		Message:   newContact.Message,
		CreatedAt: r.clock.Now(),
	}
	bytes, err := json.Marshal(fromContact(contact))
	if err != nil {
		return domain.Contact{}, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		indexKey := emailKey(contact.Email)
		_, err := txn.Get(indexKey)
		switch {
		case err == nil:
			return errors.ErrDuplicateEmail
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err = txn.Set(indexKey, []byte(id.String())); err != nil {
			return err
		}
		return txn.Set(contactKey(contact), bytes)
	})

	switch {
	case err == nil:
		return contact, nil
	case errors.Is(err, errors.ErrDuplicateEmail), errors.Is(err, badger.ErrConflict):
		return domain.Contact{}, err
	default:
		return domain.Contact{}, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
}

// ListAll returns every contact, newest first, using a reverse prefix scan.
func (r *ContactRepository) ListAll(ctx context.Context) ([]domain.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	var diskContacts []diskContact
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(contactPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// '~' sorts after every digit, so the seek lands on the newest key.
		for it.Seek([]byte(contactPrefix + "~")); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var dc diskContact
				if err := json.Unmarshal(value, &dc); err != nil {
					return err
				}
				diskContacts = append(diskContacts, dc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}

	contacts := make([]domain.Contact, 0, len(diskContacts))
	for _, dc := range diskContacts {
		contact, err := toContact(dc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

func checkConstraints(contact domain.NewContact) error {
	missing := lo.Filter([]lo.Entry[string, string]{
		{Key: "name", Value: contact.Name},
		{Key: "email", Value: contact.Email},
		{Key: "phone", Value: contact.Phone},
	}, func(item lo.Entry[string, string], _ int) bool {
		return strings.TrimSpace(item.Value) == ""
	})
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", errors.ErrConstraintViolation,
			strings.Join(lo.Map(missing, func(item lo.Entry[string, string], _ int) string { return item.Key }), ", "))
	}
	return nil
}

func contactKey(contact domain.Contact) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", contactPrefix, contact.CreatedAt.UnixNano(), contact.ID))
}

func emailKey(email string) []byte {
	return []byte(emailIndexPrefix + email)
}

func fromContact(contact domain.Contact) diskContact {
	return diskContact{
		ID:      contact.ID.String(),
		Name:    contact.Name,
		Email:   contact.Email,
		Phone:   contact.Phone,
		Message: contact.Message,
		At:      contact.CreatedAt.UnixNano(),
	}
}

func toContact(dc diskContact) (domain.Contact, error) {
	id, err := uuid.Parse(dc.ID)
	if err != nil {
		return domain.Contact{}, err
	}
	return domain.Contact{
		ID:        id,
		Name:      dc.Name,
		Email:     dc.Email,
		Phone:     dc.Phone,
		Message:   dc.Message,
		CreatedAt: time.Unix(0, dc.At).UTC(),
	}, nil
}

// MonotonicClock hands out strictly increasing UTC timestamps so that
// createdAt is a total order even when two inserts share a wall-clock tick.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewMonotonicClock(now func() time.Time) *MonotonicClock {
	return &MonotonicClock{now: now}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Round(0)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
