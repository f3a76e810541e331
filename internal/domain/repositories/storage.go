package repositories

import (
	"context"

	"github.com/zatekoja/hbnb/internal/domain/entities"
)

// Storage is a unit of work over the persisted entities. A session is not
// safe for concurrent use; take one per request with Backend.Session.
type Storage interface {
	// Get returns the entity stored under kind and id, or nil when there is none
	Get(ctx context.Context, kind entities.Kind, id string) (entities.Entity, error)

	// All returns committed entities keyed "<Kind>.<id>". No kinds means every kind.
	All(ctx context.Context, kinds ...entities.Kind) (map[string]entities.Entity, error)

	// Count returns len(All(kinds...))
	Count(ctx context.Context, kinds ...entities.Kind) (int, error)

	// New stages an entity for insertion on the next Save
	New(entity entities.Entity)

	// Delete stages an entity for removal on the next Save. nil is a no-op.
	Delete(entity entities.Entity)

	// Save persists staged inserts, deletes and modified tracked entities atomically
	Save(ctx context.Context) error

	// Reload discards uncommitted work and re-reads the backing store
	Reload(ctx context.Context) error

	// Close releases the session. Uncommitted work is discarded.
	Close() error
}

// Backend owns the shared persistent state and hands out sessions
type Backend interface {
	Session() Storage
	Reload(ctx context.Context) error
	Close() error
	Name() string
}
