package event

import (
	"contact-lab/domain"
)

type Type string

const ContactCreatedType Type = "contact.created"

// DomainEvent is anything published on the broadcast channel.
type DomainEvent interface {
	EventType() Type
}

// ContactCreated announces a contact that has just been persisted.
type ContactCreated struct {
	Contact domain.Contact
}

func (c ContactCreated) EventType() Type {
	return ContactCreatedType
}
