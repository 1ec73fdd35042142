package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/watch"
)

// Brokers fan out committed writes to live subscriptions. All repositories
// of one deployment share one set so document, collection, presence and
// notification streams stay consistent with each other.
type Brokers struct {
	Documents     *watch.Broker[*models.Document]
	Collection    *watch.Broker[[]*models.Document]
	Presence      *watch.Broker[[]models.PresenceEntry]
	Notifications *watch.Broker[[]models.Notification]
}

// NewBrokers creates the shared broker set.
func NewBrokers() *Brokers {
	return &Brokers{
		Documents:     watch.NewBroker[*models.Document](),
		Collection:    watch.NewBroker[[]*models.Document](),
		Presence:      watch.NewBroker[[]models.PresenceEntry](),
		Notifications: watch.NewBroker[[]models.Notification](),
	}
}

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool    *pgxpool.Pool
	Tables  *TableNames
	Brokers *Brokers
	Logger  *slog.Logger
}

// CreateConnectionPool creates a new pgx connection pool.
//
// When port 6543 is detected (a transaction pooler such as PgBouncer),
// the pool switches to QueryExecModeCacheDescribe: it uses the extended
// protocol (needed for JSONB parameters) while avoiding server-side
// prepared statements, which transaction poolers do not support. An
// explicit default_query_exec_mode in the connection string takes
// precedence.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for transaction pooler compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
