package providers

import (
	"context"

	"github.com/zatekoja/hbnb/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to entity events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.EntityEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.EntityEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelEntities carries every committed create, update and delete
	EventChannelEntities = "hbnb:entities"

	// EventChannelKindPrefix is the prefix for per-kind channels
	EventChannelKindPrefix = "hbnb:kind:"
)

// GetKindChannel returns the channel name for a single entity kind
func GetKindChannel(kind entities.Kind) string {
	return EventChannelKindPrefix + kind.Plural()
}
