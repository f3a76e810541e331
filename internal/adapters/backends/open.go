package backends

import (
	"context"
	"fmt"

	"github.com/zatekoja/hbnb/internal/adapters/database"
	"github.com/zatekoja/hbnb/internal/adapters/filestore"
	"github.com/zatekoja/hbnb/internal/domain/repositories"
	"github.com/zatekoja/hbnb/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
	"github.com/zatekoja/hbnb/pkg/config"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

// Open builds the backend selected by configuration and loads it once.
// HBNB_ENV=test makes the relational backend drop its tables on load.
func Open(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (repositories.Backend, error) {
	var backend repositories.Backend

	switch cfg.Storage.Type {
	case config.StorageDB:
		client, err := sqldb.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, apperrors.NewConfigurationError("failed to open database", err)
		}
		backend = database.NewDBStorage(client, cfg.IsTest(), metrics)
	case config.StorageFile:
		backend = filestore.NewFileStorage(cfg.Storage.FilePath, metrics)
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown storage type %q", cfg.Storage.Type), nil)
	}

	if err := backend.Reload(ctx); err != nil {
		backend.Close()
		return nil, apperrors.NewConfigurationError("failed to load storage", err)
	}
	return backend, nil
}
