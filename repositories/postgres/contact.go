// Package postgres is the relational Record Store. Email uniqueness is
// declared in the schema by a UNIQUE index and enforced by the database.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contact-lab/domain"
	"contact-lab/errors"
	"contact-lab/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation  = "23505"
	checkViolation   = "23514"
	notNullViolation = "23502"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL CHECK (char_length(name) BETWEEN 2 AND 100),
	email      TEXT NOT NULL,
	phone      TEXT NOT NULL CHECK (phone ~ '^[0-9]{10}$'),
	message    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS contacts_email_key ON contacts (email);
CREATE INDEX IF NOT EXISTS contacts_created_at_idx ON contacts (created_at DESC, id DESC);
`

var _ repositories.IContactRepository = (*ContactRepository)(nil)

type ContactRepository struct {
	pool  *pgxpool.Pool
	log   *slog.Logger
	clock *repositories.MonotonicClock
}

// NewContactRepository connects to dsn and makes sure the schema exists.
func NewContactRepository(ctx context.Context, dsn string, log *slog.Logger) (*ContactRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	if _, err = pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	// timestamptz keeps microseconds only
	clock := repositories.NewMonotonicClock(func() time.Time {
		return time.Now().Truncate(time.Microsecond)
	})
	return &ContactRepository{pool: pool, log: log, clock: clock}, nil
}

func (r *ContactRepository) Close() {
	r.pool.Close()
}

func (r *ContactRepository) Insert(ctx context.Context, newContact domain.NewContact) (domain.Contact, error) {
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

	_, err = r.pool.Exec(ctx,
		`INSERT INTO contacts (id, name, email, phone, message, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		contact.ID, contact.Name, contact.Email, contact.Phone, contact.Message, contact.CreatedAt)
	if err != nil {
		return domain.Contact{}, translate(err)
	}
	return contact, nil
}

func (r *ContactRepository) ListAll(ctx context.Context) ([]domain.Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, message, created_at FROM contacts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	contacts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Contact, error) {
		var c domain.Contact
		err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Message, &c.CreatedAt)
		c.CreatedAt = c.CreatedAt.UTC()
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	return contacts, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
	switch pgErr.Code {
	case uniqueViolation:
		return errors.ErrDuplicateEmail
	case checkViolation, notNullViolation:
		return fmt.Errorf("%w: %s", errors.ErrConstraintViolation, pgErr.ConstraintName)
	default:
		return fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err)
	}
}
