package services

import (
	"context"
	"encoding/json"

	"github.com/zatekoja/hbnb/internal/domain/providers"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
)

const (
	// CacheKeyPrefix namespaces every key this service writes
	CacheKeyPrefix = "hbnb:cache:"

	// StatsCacheKey holds the serialized /stats body
	StatsCacheKey = CacheKeyPrefix + "stats"

	statsTTLSeconds = 30
)

// StatsCounter is the part of EntityService the stats endpoint needs
type StatsCounter interface {
	Stats(ctx context.Context) (map[string]int, error)
}

// StatsService serves entity counts, through the cache when one is configured
type StatsService struct {
	counter StatsCounter
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewStatsService creates a stats service. cache may be nil.
func NewStatsService(counter StatsCounter, cache providers.CacheProvider, metrics *observability.Metrics) *StatsService {
	return &StatsService{counter: counter, cache: cache, metrics: metrics}
}

// Stats returns the number of entities per collection
func (s *StatsService) Stats(ctx context.Context) (map[string]int, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, StatsCacheKey); err == nil && data != nil {
			var stats map[string]int
			if err := json.Unmarshal(data, &stats); err == nil {
				observability.RecordCacheHit(ctx, s.metrics, StatsCacheKey)
				return stats, nil
			}
		}
		observability.RecordCacheMiss(ctx, s.metrics, StatsCacheKey)
	}

	stats, err := s.counter.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.store(ctx, stats); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache stats")
		}
	}
	return stats, nil
}

// Warm fills the stats cache ahead of the first request
func (s *StatsService) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	stats, err := s.counter.Stats(ctx)
	if err != nil {
		return err
	}
	return s.store(ctx, stats)
}

func (s *StatsService) store(ctx context.Context, stats map[string]int) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, StatsCacheKey, data, statsTTLSeconds)
}
