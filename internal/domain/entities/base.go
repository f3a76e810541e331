package entities

import (
	"time"

	"github.com/google/uuid"
)

// Entity is implemented by every stored record
type Entity interface {
	Kind() Kind
	GetBase() *Base
	Validate() error
	Clone() Entity
	// References returns the foreign keys of the entity by column name
	References() map[string]string
}

// Base carries the identity fields shared by all entities
type Base struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Now returns the current time at the precision every backend can store
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NewBase returns a Base with a fresh identifier and matching timestamps
func NewBase() Base {
	now := Now()
	return Base{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetBase returns the identity fields
func (b *Base) GetBase() *Base {
	return b
}

// Touch records a modification
func (b *Base) Touch(at time.Time) {
	b.UpdatedAt = at
}

// Key returns the "<Kind>.<id>" key of an entity
func Key(e Entity) string {
	return KeyOf(e.Kind(), e.GetBase().ID)
}

// KeyOf builds a key from its parts
func KeyOf(kind Kind, id string) string {
	return kind.String() + "." + id
}
