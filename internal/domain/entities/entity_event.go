package entities

import (
	"time"

	"github.com/google/uuid"
)

// EntityEventType represents what happened to an entity
type EntityEventType string

const (
	EntityEventCreated EntityEventType = "created"
	EntityEventUpdated EntityEventType = "updated"
	EntityEventDeleted EntityEventType = "deleted"
)

// EntityEvent is published after a change has been committed
type EntityEvent struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	EntityID  string          `json:"entity_id"`
	EventType EntityEventType `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEntityEvent creates an event for e
func NewEntityEvent(e Entity, eventType EntityEventType) *EntityEvent {
	return &EntityEvent{
		ID:        uuid.New().String(),
		Kind:      e.Kind().String(),
		EntityID:  e.GetBase().ID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}
