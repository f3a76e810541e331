package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
	"github.com/zatekoja/hbnb/pkg/config"
	"github.com/zatekoja/hbnb/pkg/retry"
)

// Client is a relational database client for either supported driver
type Client struct {
	db      *sqlx.DB
	driver  string
	dialect goqu.DialectWrapper
}

// NewClient opens the configured database and waits for it with exponential backoff
func NewClient(ctx context.Context, cfg *config.DatabaseConfig) (*Client, error) {
	dsn := cfg.DSN()
	if cfg.Driver == config.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY on concurrent commits
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	logger := observability.Component("sqldb")
	retryConfig := retry.DefaultConfig()
	retryConfig.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).
			Str("driver", cfg.Driver).Msg("database connection attempt failed")
	}

	err = retry.Do(ctx, cfg.Driver, retryConfig, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
	}

	logger.Info().Str("driver", cfg.Driver).Msg("connected to database")
	return NewClientFromDB(db, cfg.Driver), nil
}

// NewClientFromDB wraps an already opened handle
func NewClientFromDB(db *sql.DB, driver string) *Client {
	return &Client{db: sqlx.NewDb(db, driver), driver: driver, dialect: goqu.Dialect(driver)}
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db.DB
}

// X returns the connection with struct scanning helpers
func (c *Client) X() *sqlx.DB {
	return c.db
}

// Driver returns the database/sql driver name
func (c *Client) Driver() string {
	return c.driver
}

// Dialect returns the goqu dialect matching the driver
func (c *Client) Dialect() goqu.DialectWrapper {
	return c.dialect
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// BeginTx starts a new transaction
func (c *Client) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return c.db.BeginTxx(ctx, nil)
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
