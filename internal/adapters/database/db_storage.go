package database

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/zatekoja/hbnb/internal/adapters/unitofwork"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/repositories"
	"github.com/zatekoja/hbnb/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

const backendName = "db"

// DBStorage persists entities in one table per kind plus the place_amenity
// link table.
type DBStorage struct {
	client        *sqldb.Client
	dialect       goqu.DialectWrapper
	resetOnReload bool
	metrics       *observability.Metrics
	logger        zerolog.Logger
}

// NewDBStorage creates a relational backend. With resetOnReload every
// Reload drops and recreates the tables.
func NewDBStorage(client *sqldb.Client, resetOnReload bool, metrics *observability.Metrics) *DBStorage {
	return &DBStorage{
		client:        client,
		dialect:       client.Dialect(),
		resetOnReload: resetOnReload,
		metrics:       metrics,
		logger:        observability.Component("database").With().Str("driver", client.Driver()).Logger(),
	}
}

// Name identifies the backend
func (s *DBStorage) Name() string {
	return backendName
}

// Session opens a unit of work over the connection pool
func (s *DBStorage) Session() repositories.Storage {
	return &session{store: s, tracker: unitofwork.NewTracker()}
}

// Reload creates the schema when absent, dropping it first in reset mode
func (s *DBStorage) Reload(ctx context.Context) error {
	tx, err := s.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewStorageError("failed to begin schema transaction", err)
	}
	defer tx.Rollback()

	if s.resetOnReload {
		for i := len(schema) - 1; i >= 0; i-- {
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+schema[i].table); err != nil {
				return apperrors.NewStorageError("failed to drop "+schema[i].table, err)
			}
		}
	}

	for _, t := range schema {
		if _, err := tx.ExecContext(ctx, t.ddl); err != nil {
			return apperrors.NewStorageError("failed to create "+t.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit schema", err)
	}

	s.logger.Debug().Bool("reset", s.resetOnReload).Msg("schema ready")
	return nil
}

// Close closes the connection pool
func (s *DBStorage) Close() error {
	return s.client.Close()
}

func (s *DBStorage) load(ctx context.Context, kind entities.Kind, where goqu.Ex) ([]entities.Entity, error) {
	ds := s.dialect.From(tableOf(kind)).Prepared(true)
	if where != nil {
		ds = ds.Where(where)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	loaded, err := scanKind(ctx, s.client.X(), kind, query, args)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to load %s", tableOf(kind)), err)
	}

	if kind == entities.KindPlace && len(loaded) > 0 {
		if err := s.attachAmenities(ctx, loaded, where != nil); err != nil {
			return nil, err
		}
	}
	return loaded, nil
}

// attachAmenities fills AmenityIDs from the link table
func (s *DBStorage) attachAmenities(ctx context.Context, places []entities.Entity, filtered bool) error {
	ids := make([]string, 0, len(places))
	byID := make(map[string]*entities.Place, len(places))
	for _, e := range places {
		p := e.(*entities.Place)
		p.AmenityIDs = []string{}
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	ds := s.dialect.From(linkTable).Select("place_id", "amenity_id").
		Order(goqu.C("place_id").Asc(), goqu.C("amenity_id").Asc()).Prepared(true)
	if filtered {
		ds = ds.Where(goqu.Ex{"place_id": ids})
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	var links []struct {
		PlaceID   string `db:"place_id"`
		AmenityID string `db:"amenity_id"`
	}
	if err := sqlx.SelectContext(ctx, s.client.X(), &links, query, args...); err != nil {
		return apperrors.NewStorageError("failed to load amenity links", err)
	}

	for _, l := range links {
		if p, ok := byID[l.PlaceID]; ok {
			p.AmenityIDs = append(p.AmenityIDs, l.AmenityID)
		}
	}
	return nil
}

func (s *DBStorage) count(ctx context.Context, kind entities.Kind) (int, error) {
	query, args, err := s.dialect.From(tableOf(kind)).
		Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var n int
	if err := s.client.X().GetContext(ctx, &n, query, args...); err != nil {
		return 0, apperrors.NewStorageError(fmt.Sprintf("failed to count %s", tableOf(kind)), err)
	}
	return n, nil
}

// apply writes changes in one transaction and returns the keys removed,
// cascades included.
func (s *DBStorage) apply(ctx context.Context, changes unitofwork.Changes) (removed []string, err error) {
	ctx, span := observability.StartSpan(ctx, "storage.db.save")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.RecordDBMetric(ctx, s.metrics, "save", time.Since(start))
		observability.RecordError(span, err)
	}()

	tx, err := s.client.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	w := &writer{tx: tx, dialect: s.dialect}

	for _, e := range changes.Inserts {
		if err = w.insert(ctx, e); err != nil {
			return nil, err
		}
	}
	for _, e := range changes.Updates {
		if err = w.update(ctx, e, changes.Links[entities.Key(e)]); err != nil {
			return nil, err
		}
	}
	for _, e := range changes.Deletes {
		if err = w.cascadeDelete(ctx, e.Kind(), e.GetBase().ID); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewStorageError("failed to commit transaction", err)
	}
	return w.removed, nil
}

// writer issues the statements of one save inside its transaction
type writer struct {
	tx      *sqlx.Tx
	dialect goqu.DialectWrapper
	removed []string
}

func (w *writer) exec(ctx context.Context, what string, query string, args []any, buildErr error) (int64, error) {
	if buildErr != nil {
		return 0, apperrors.NewInternalError("failed to build "+what+" query", buildErr)
	}
	result, err := w.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to "+what, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorageError("failed to "+what, err)
	}
	return n, nil
}

func (w *writer) insert(ctx context.Context, e entities.Entity) error {
	r, err := record(e)
	if err != nil {
		return apperrors.NewInternalError("failed to map entity", err)
	}
	query, args, err := w.dialect.Insert(tableOf(e.Kind())).Rows(r).Prepared(true).ToSQL()
	if _, err := w.exec(ctx, "insert "+entities.Key(e), query, args, err); err != nil {
		return err
	}
	if p, ok := e.(*entities.Place); ok {
		return w.insertLinks(ctx, p)
	}
	return nil
}

func (w *writer) update(ctx context.Context, e entities.Entity, links unitofwork.LinkDelta) error {
	r, err := updateRecord(e)
	if err != nil {
		return apperrors.NewInternalError("failed to map entity", err)
	}
	id := e.GetBase().ID
	query, args, err := w.dialect.Update(tableOf(e.Kind())).Set(r).
		Where(goqu.Ex{"id": id}).Prepared(true).ToSQL()
	n, err := w.exec(ctx, "update "+entities.Key(e), query, args, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewStorageError(fmt.Sprintf("%s no longer exists", entities.Key(e)), nil)
	}

	if p, ok := e.(*entities.Place); ok {
		return w.mergeLinks(ctx, p, links)
	}
	return nil
}

// mergeLinks applies the link changes of a session to the links stored now,
// so links changed by another session since the place was loaded are kept.
func (w *writer) mergeLinks(ctx context.Context, p *entities.Place, delta unitofwork.LinkDelta) error {
	if len(delta.Added) > 0 {
		query, args, err := w.dialect.From(tableOf(entities.KindAmenity)).Select("id").
			Where(goqu.Ex{"id": delta.Added}).Prepared(true).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build query", err)
		}
		var found []string
		if err := w.tx.SelectContext(ctx, &found, query, args...); err != nil {
			return apperrors.NewStorageError("failed to find amenities", err)
		}
		for _, amenityID := range delta.Added {
			if !slices.Contains(found, amenityID) {
				return apperrors.NewConflictError(fmt.Sprintf("Amenity %s no longer exists", amenityID))
			}
		}
	}

	if len(delta.Removed) > 0 {
		query, args, err := w.dialect.Delete(linkTable).
			Where(goqu.Ex{"place_id": p.ID, "amenity_id": delta.Removed}).Prepared(true).ToSQL()
		if _, err := w.exec(ctx, "unlink amenities", query, args, err); err != nil {
			return err
		}
	}

	query, args, err := w.dialect.From(linkTable).Select("amenity_id").
		Where(goqu.Ex{"place_id": p.ID}).Order(goqu.C("amenity_id").Asc()).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}
	var current []string
	if err := w.tx.SelectContext(ctx, &current, query, args...); err != nil {
		return apperrors.NewStorageError("failed to read amenity links", err)
	}

	merged := delta.Merge(current)
	var rows []any
	for _, amenityID := range merged {
		if !slices.Contains(current, amenityID) {
			rows = append(rows, goqu.Record{"place_id": p.ID, "amenity_id": amenityID})
		}
	}
	if len(rows) > 0 {
		query, args, err := w.dialect.Insert(linkTable).Rows(rows...).Prepared(true).ToSQL()
		if _, err := w.exec(ctx, "link amenities", query, args, err); err != nil {
			return err
		}
	}

	p.AmenityIDs = merged
	return nil
}

func (w *writer) insertLinks(ctx context.Context, p *entities.Place) error {
	if len(p.AmenityIDs) == 0 {
		return nil
	}
	rows := make([]any, 0, len(p.AmenityIDs))
	for _, amenityID := range p.AmenityIDs {
		rows = append(rows, goqu.Record{"place_id": p.ID, "amenity_id": amenityID})
	}
	query, args, err := w.dialect.Insert(linkTable).Rows(rows...).Prepared(true).ToSQL()
	_, err = w.exec(ctx, "link amenities", query, args, err)
	return err
}

// cascadeDelete removes children before the parent so that the result does
// not depend on the engine's ON DELETE support.
func (w *writer) cascadeDelete(ctx context.Context, kind entities.Kind, id string) error {
	for _, rel := range kind.Children() {
		query, args, err := w.dialect.From(tableOf(rel.Child)).Select("id").
			Where(goqu.Ex{rel.Column: id}).Prepared(true).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build query", err)
		}
		var childIDs []string
		if err := w.tx.SelectContext(ctx, &childIDs, query, args...); err != nil {
			return apperrors.NewStorageError("failed to find "+tableOf(rel.Child), err)
		}
		for _, childID := range childIDs {
			if err := w.cascadeDelete(ctx, rel.Child, childID); err != nil {
				return err
			}
		}
	}

	switch kind {
	case entities.KindPlace:
		query, args, err := w.dialect.Delete(linkTable).Where(goqu.Ex{"place_id": id}).Prepared(true).ToSQL()
		if _, err := w.exec(ctx, "unlink place", query, args, err); err != nil {
			return err
		}
	case entities.KindAmenity:
		query, args, err := w.dialect.Delete(linkTable).Where(goqu.Ex{"amenity_id": id}).Prepared(true).ToSQL()
		if _, err := w.exec(ctx, "unlink amenity", query, args, err); err != nil {
			return err
		}
	}

	query, args, err := w.dialect.Delete(tableOf(kind)).Where(goqu.Ex{"id": id}).Prepared(true).ToSQL()
	n, err := w.exec(ctx, "delete "+entities.KeyOf(kind, id), query, args, err)
	if err != nil {
		return err
	}
	if n > 0 {
		w.removed = append(w.removed, entities.KeyOf(kind, id))
	}
	return nil
}
