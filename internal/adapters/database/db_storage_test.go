package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hbnb/internal/adapters/storagetest"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/repositories"
	"github.com/zatekoja/hbnb/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/hbnb/pkg/config"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

func openSQLite(t *testing.T, path string, reset bool) *DBStorage {
	t.Helper()
	client, err := sqldb.NewClient(context.Background(), &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   path,
	})
	require.NoError(t, err)

	store := NewDBStorage(client, reset, nil)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Reload(context.Background()))
	return store
}

func setupMockDB(t *testing.T) (*DBStorage, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return NewDBStorage(sqldb.NewClientFromDB(mockDB, config.DriverPostgres), false, nil), mock
}

func TestDBStorage_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Opener {
		path := filepath.Join(t.TempDir(), "hbnb.db")
		return func() repositories.Backend {
			return openSQLite(t, path, false)
		}
	})
}

func TestDBStorage_ReloadKeepsDataUnlessReset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hbnb.db")
	store := openSQLite(t, path, false)

	s := store.Session()
	s.New(entities.NewState("California"))
	require.NoError(t, s.Save(ctx))

	require.NoError(t, store.Reload(ctx))
	n, err := store.Session().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reset := openSQLite(t, path, true)
	n, err = reset.Session().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDBStorage_InsertFailureRollsBack(t *testing.T) {
	store, mock := setupMockDB(t)
	state := entities.NewState("California")
	city := entities.NewCity(state.ID, "Fresno")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "states"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO "cities"`).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	s := store.Session()
	s.New(city)
	s.New(state)
	err := s.Save(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsStorage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStorage_UpdateOfMissingRowFails(t *testing.T) {
	store, mock := setupMockDB(t)
	now := entities.Now()

	mock.ExpectQuery(`SELECT \* FROM "states"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "name"}).
			AddRow("state-1", now, now, "California"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "states"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	s := store.Session()
	loaded, err := s.Get(context.Background(), entities.KindState, "state-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	loaded.(*entities.State).Name = "Oregon"

	err = s.Save(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsStorage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStorage_GetReadsLinks(t *testing.T) {
	store, mock := setupMockDB(t)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "places"`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "created_at", "updated_at", "city_id", "user_id", "name", "description",
			"number_rooms", "number_bathrooms", "max_guest", "price_by_night", "latitude", "longitude",
		}).AddRow("place-1", now, now, "city-1", "user-1", "Loft", "", 2, 1, 4, 100, 1.5, 2.5))
	mock.ExpectQuery(`SELECT "place_id", "amenity_id" FROM "place_amenity"`).
		WillReturnRows(sqlmock.NewRows([]string{"place_id", "amenity_id"}).
			AddRow("place-1", "amenity-1").
			AddRow("place-1", "amenity-2"))

	got, err := store.Session().Get(context.Background(), entities.KindPlace, "place-1")
	require.NoError(t, err)
	place := got.(*entities.Place)
	assert.Equal(t, []string{"amenity-1", "amenity-2"}, place.AmenityIDs)
	assert.Equal(t, 4, place.MaxGuest)
	assert.True(t, place.CreatedAt.Equal(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStorage_QueryFailureIsStorageError(t *testing.T) {
	store, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "users"`).WillReturnError(errors.New("connection reset"))

	_, err := store.Session().Count(context.Background(), entities.KindUser)
	require.Error(t, err)
	assert.True(t, apperrors.IsStorage(err))
}
