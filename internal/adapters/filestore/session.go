package filestore

import (
	"context"
	"time"

	"github.com/zatekoja/hbnb/internal/adapters/unitofwork"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
)

type session struct {
	store   *FileStorage
	tracker *unitofwork.Tracker
}

func (s *session) Get(ctx context.Context, kind entities.Kind, id string) (entities.Entity, error) {
	if id == "" || !kind.Valid() {
		return nil, nil
	}
	key := entities.KeyOf(kind, id)
	loaded := s.store.lookup(key)
	if loaded == nil {
		s.tracker.Forget(key)
		return nil, nil
	}
	return s.tracker.Track(loaded), nil
}

func (s *session) All(ctx context.Context, kinds ...entities.Kind) (map[string]entities.Entity, error) {
	loaded := s.store.snapshot(kinds)
	out := make(map[string]entities.Entity, len(loaded))
	for _, e := range loaded {
		out[entities.Key(e)] = s.tracker.Track(e)
	}
	return out, nil
}

func (s *session) Count(ctx context.Context, kinds ...entities.Kind) (int, error) {
	return s.store.count(kinds), nil
}

func (s *session) New(entity entities.Entity) {
	s.tracker.Stage(entity)
}

func (s *session) Delete(entity entities.Entity) {
	s.tracker.Remove(entity)
}

func (s *session) Save(ctx context.Context) error {
	start := time.Now()
	var removed []string

	err := s.tracker.Commit(entities.Now(), func(changes unitofwork.Changes) error {
		var err error
		removed, err = s.store.apply(changes)
		return err
	})
	for _, key := range removed {
		s.tracker.Forget(key)
	}

	observability.RecordStorageSave(ctx, s.store.metrics, backendName, err)
	logger := observability.LoggerFromContext(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("backend", backendName).Msg("save failed")
		return err
	}
	logger.Debug().Str("backend", backendName).Int("removed", len(removed)).
		Dur("duration", time.Since(start)).Msg("saved")
	return nil
}

func (s *session) Reload(ctx context.Context) error {
	s.tracker.Reset()
	return s.store.Reload(ctx)
}

func (s *session) Close() error {
	s.tracker.Reset()
	return nil
}
