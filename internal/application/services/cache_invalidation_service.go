package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/providers"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
)

// CacheInvalidationService drops cached responses when entities change
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	logger   zerolog.Logger
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		logger:   observability.Component("cache_invalidation"),
	}
}

// Start begins listening for entity events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelEntities)
	if err != nil {
		return fmt.Errorf("failed to subscribe to entity events: %w", err)
	}

	s.done = make(chan struct{})
	go s.processEvents(eventChan)
	s.logger.Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	if s.done != nil {
		<-s.done
	}
	s.logger.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.EntityEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent drops every cached response; counts and listings of any kind
// may change with a single write because of cascades.
func (s *CacheInvalidationService) handleEvent(event *entities.EntityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.InvalidateAll(ctx); err != nil {
		s.logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to invalidate cache")
		return
	}
	s.logger.Debug().Str("event_id", event.ID).Str("kind", event.Kind).
		Str("entity_id", event.EntityID).Str("event_type", string(event.EventType)).Msg("cache invalidated")
}

// InvalidateAll removes every key written under CacheKeyPrefix
func (s *CacheInvalidationService) InvalidateAll(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, CacheKeyPrefix+"*"); err != nil {
		return fmt.Errorf("failed to invalidate %s*: %w", CacheKeyPrefix, err)
	}
	return nil
}
