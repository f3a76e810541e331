package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/moby/sys/atomicwriter"
	"github.com/rs/zerolog"
	"github.com/zatekoja/hbnb/internal/adapters/unitofwork"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/repositories"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

const backendName = "file"

// FileStorage keeps every entity in a process-wide mapping persisted as one
// JSON document keyed "<Kind>.<id>".
type FileStorage struct {
	path    string
	mu      sync.RWMutex
	objects map[string]entities.Entity
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewFileStorage creates a backend persisting to path. Call Reload before use.
func NewFileStorage(path string, metrics *observability.Metrics) *FileStorage {
	return &FileStorage{
		path:    path,
		objects: make(map[string]entities.Entity),
		metrics: metrics,
		logger:  observability.Component("filestore").With().Str("path", path).Logger(),
	}
}

// Name identifies the backend
func (s *FileStorage) Name() string {
	return backendName
}

// Path returns the document location
func (s *FileStorage) Path() string {
	return s.path
}

// Session opens a unit of work over the shared mapping
func (s *FileStorage) Session() repositories.Storage {
	return &session{store: s, tracker: unitofwork.NewTracker()}
}

// Reload replaces the mapping with the document on disk. A missing or
// unreadable document yields an empty mapping; undecodable records are skipped.
func (s *FileStorage) Reload(ctx context.Context) error {
	objects := s.readDocument()

	s.mu.Lock()
	s.objects = objects
	s.mu.Unlock()

	s.logger.Debug().Int("objects", len(objects)).Msg("reloaded file storage")
	return nil
}

// Close has nothing to release; the document is written on every save
func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) readDocument() map[string]entities.Entity {
	objects := make(map[string]entities.Entity)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return objects
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("cannot read storage document, starting empty")
		return objects
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn().Err(err).Msg("corrupt storage document, starting empty")
		return objects
	}

	for key, raw := range records {
		e, err := entities.Decode(raw)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("skipping undecodable record")
			continue
		}
		if entities.Key(e) != key {
			s.logger.Warn().Str("key", key).Str("record", entities.Key(e)).Msg("skipping record stored under a foreign key")
			continue
		}
		objects[key] = e
	}
	return objects
}

func (s *FileStorage) lookup(key string) entities.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.objects[key]; ok {
		return e.Clone()
	}
	return nil
}

func (s *FileStorage) snapshot(kinds []entities.Kind) []entities.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Entity, 0, len(s.objects))
	for _, e := range s.objects {
		if matches(e, kinds) {
			out = append(out, e.Clone())
		}
	}
	return out
}

func (s *FileStorage) count(kinds []entities.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(kinds) == 0 {
		return len(s.objects)
	}
	n := 0
	for _, e := range s.objects {
		if matches(e, kinds) {
			n++
		}
	}
	return n
}

// apply commits changes to a copy of the mapping, writes it out and only
// then swaps it in. It returns the keys removed, cascades included.
func (s *FileStorage) apply(changes unitofwork.Changes) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.objects)

	for _, e := range changes.Inserts {
		key := entities.Key(e)
		if _, exists := next[key]; exists {
			return nil, apperrors.NewStorageError(fmt.Sprintf("%s already exists", key), nil)
		}
		next[key] = e.Clone()
	}

	for _, e := range changes.Updates {
		key := entities.Key(e)
		stored, exists := next[key]
		if !exists {
			return nil, apperrors.NewStorageError(fmt.Sprintf("%s no longer exists", key), nil)
		}
		if p, ok := e.(*entities.Place); ok {
			if err := mergeLinks(next, p, stored.(*entities.Place), changes.Links[key]); err != nil {
				return nil, err
			}
		}
		next[key] = e.Clone()
	}

	var removed []string
	for _, e := range changes.Deletes {
		removed = cascadeDelete(next, e.Kind(), e.GetBase().ID, removed)
	}

	for _, e := range slices.Concat(changes.Inserts, changes.Updates) {
		if stored, ok := next[entities.Key(e)]; ok {
			if err := checkReferences(next, stored); err != nil {
				return nil, err
			}
		}
	}

	if err := s.write(next); err != nil {
		return nil, err
	}

	s.objects = next
	return removed, nil
}

func (s *FileStorage) write(objects map[string]entities.Entity) error {
	document := make(map[string]map[string]any, len(objects))
	for key, e := range objects {
		m, err := entities.ToMap(e)
		if err != nil {
			return apperrors.NewStorageError("failed to serialize "+key, err)
		}
		document[key] = m
	}

	data, err := json.Marshal(document)
	if err != nil {
		return apperrors.NewStorageError("failed to serialize storage document", err)
	}

	if err := atomicwriter.WriteFile(s.path, data, 0o644); err != nil {
		return apperrors.NewStorageError("failed to write storage document", err)
	}
	return nil
}

func cascadeDelete(objects map[string]entities.Entity, kind entities.Kind, id string, removed []string) []string {
	key := entities.KeyOf(kind, id)
	if _, ok := objects[key]; !ok {
		return removed
	}
	delete(objects, key)
	removed = append(removed, key)

	for _, rel := range kind.Children() {
		for _, child := range childrenOf(objects, rel, id) {
			removed = cascadeDelete(objects, rel.Child, child, removed)
		}
	}

	if kind == entities.KindAmenity {
		for k, e := range objects {
			place, ok := e.(*entities.Place)
			if !ok || !place.HasAmenity(id) {
				continue
			}
			updated := place.Clone().(*entities.Place)
			updated.UnlinkAmenity(id)
			objects[k] = updated
		}
	}
	return removed
}

// mergeLinks rebases the links of an updated place on the stored ones, so
// links changed by another session since the place was loaded are kept.
func mergeLinks(objects map[string]entities.Entity, p, stored *entities.Place, delta unitofwork.LinkDelta) error {
	for _, amenityID := range delta.Added {
		if _, ok := objects[entities.KeyOf(entities.KindAmenity, amenityID)]; !ok {
			return apperrors.NewConflictError(fmt.Sprintf("Amenity %s no longer exists", amenityID))
		}
	}
	p.AmenityIDs = delta.Merge(stored.AmenityIDs)
	return nil
}

func childrenOf(objects map[string]entities.Entity, rel entities.Relation, parentID string) []string {
	var ids []string
	for _, e := range objects {
		if e.Kind() == rel.Child && e.References()[rel.Column] == parentID {
			ids = append(ids, e.GetBase().ID)
		}
	}
	return ids
}

var referencedKind = map[string]entities.Kind{
	"state_id": entities.KindState,
	"city_id":  entities.KindCity,
	"user_id":  entities.KindUser,
	"place_id": entities.KindPlace,
}

func checkReferences(objects map[string]entities.Entity, e entities.Entity) error {
	for column, id := range e.References() {
		if _, ok := objects[entities.KeyOf(referencedKind[column], id)]; !ok {
			return apperrors.NewStorageError(
				fmt.Sprintf("%s references missing %s %s", entities.Key(e), column, id), nil)
		}
	}
	if place, ok := e.(*entities.Place); ok {
		for _, amenityID := range place.AmenityIDs {
			if _, ok := objects[entities.KeyOf(entities.KindAmenity, amenityID)]; !ok {
				return apperrors.NewStorageError(
					fmt.Sprintf("%s links missing amenity %s", entities.Key(e), amenityID), nil)
			}
		}
	}
	return nil
}

func matches(e entities.Entity, kinds []entities.Kind) bool {
	return len(kinds) == 0 || slices.Contains(kinds, e.Kind())
}
