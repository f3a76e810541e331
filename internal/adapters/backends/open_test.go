package backends_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hbnb/internal/adapters/backends"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/pkg/config"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

func testConfig(t *testing.T, storage string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Env:     "test",
		Storage: config.StorageConfig{Type: storage, FilePath: filepath.Join(dir, "file.json")},
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   filepath.Join(dir, "hbnb.db"),
		},
	}
}

func TestOpenBackend(t *testing.T) {
	for _, tt := range []struct {
		storage string
		name    string
	}{
		{config.StorageFile, "file"},
		{config.StorageDB, "db"},
	} {
		t.Run(tt.storage, func(t *testing.T) {
			ctx := context.Background()
			backend, err := backends.Open(ctx, testConfig(t, tt.storage), nil)
			require.NoError(t, err)
			defer backend.Close()

			assert.Equal(t, tt.name, backend.Name())

			session := backend.Session()
			defer session.Close()
			session.New(entities.NewState("California"))
			require.NoError(t, session.Save(ctx))

			n, err := session.Count(ctx, entities.KindState)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestOpenBackend_UnknownStorage(t *testing.T) {
	_, err := backends.Open(context.Background(), testConfig(t, "memory"), nil)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeConfiguration, appErr.Type)
}
