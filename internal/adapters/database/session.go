package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/hbnb/internal/adapters/unitofwork"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
)

type session struct {
	store   *DBStorage
	tracker *unitofwork.Tracker
}

func (s *session) Get(ctx context.Context, kind entities.Kind, id string) (entities.Entity, error) {
	if id == "" || !kind.Valid() {
		return nil, nil
	}

	loaded, err := s.store.load(ctx, kind, goqu.Ex{"id": id})
	if err != nil {
		return nil, err
	}
	if len(loaded) == 0 {
		s.tracker.Forget(entities.KeyOf(kind, id))
		return nil, nil
	}
	return s.tracker.Track(loaded[0]), nil
}

func (s *session) All(ctx context.Context, kinds ...entities.Kind) (map[string]entities.Entity, error) {
	if len(kinds) == 0 {
		kinds = entities.Kinds()
	}

	out := make(map[string]entities.Entity)
	for _, kind := range kinds {
		loaded, err := s.store.load(ctx, kind, nil)
		if err != nil {
			return nil, err
		}
		for _, e := range loaded {
			out[entities.Key(e)] = s.tracker.Track(e)
		}
	}
	return out, nil
}

func (s *session) Count(ctx context.Context, kinds ...entities.Kind) (int, error) {
	if len(kinds) == 0 {
		kinds = entities.Kinds()
	}

	total := 0
	for _, kind := range kinds {
		n, err := s.store.count(ctx, kind)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (s *session) New(entity entities.Entity) {
	s.tracker.Stage(entity)
}

func (s *session) Delete(entity entities.Entity) {
	s.tracker.Remove(entity)
}

func (s *session) Save(ctx context.Context) error {
	var removed []string
	err := s.tracker.Commit(entities.Now(), func(changes unitofwork.Changes) error {
		var err error
		removed, err = s.store.apply(ctx, changes)
		return err
	})
	for _, key := range removed {
		s.tracker.Forget(key)
	}

	observability.RecordStorageSave(ctx, s.store.metrics, backendName, err)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("backend", backendName).Msg("save failed")
	}
	return err
}

func (s *session) Reload(ctx context.Context) error {
	s.tracker.Reset()
	return s.store.Reload(ctx)
}

func (s *session) Close() error {
	s.tracker.Reset()
	return nil
}
