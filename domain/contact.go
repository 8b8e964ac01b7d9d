// Package domain contains core concepts of the contact system.
// This file defines the Contact record and the payloads that create it.
// Contacts are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContactID is assigned by the store at creation time and never reused.
type ContactID = uuid.UUID

// Contact represents a fully persisted contact record.
type Contact struct {
	ID        ContactID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContactPayload is what a submitter sends, before any normalization.
type ContactPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message,omitempty"`
}

// NewContact holds normalized fields accepted by the validation gate.
// Only the store turns it into a Contact by assigning ID and CreatedAt.
type NewContact struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// Newer reports whether c sorts before other in a newest-first listing.
// Equal timestamps fall back to the identifier so the order stays total.
func (c Contact) Newer(other Contact) bool {
	if !c.CreatedAt.Equal(other.CreatedAt) {
		return c.CreatedAt.After(other.CreatedAt)
	}
	return c.ID.String() > other.ID.String()
}
