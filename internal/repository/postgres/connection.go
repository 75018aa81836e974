package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB общий интерфейс pgxpool.Pool и pgxmock
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewConnection создает новое подключение к PostgreSQL
func NewConnection(ctx context.Context, connString string, log *logger.Logger) (*pgxpool.Pool, error) {
	log.Info("Connecting to PostgreSQL")

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Вебхуки и бот пишут короткими запросами, большой пул не нужен
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Info("Connected to PostgreSQL at %s", poolConfig.ConnConfig.Host)
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS subscribers (
		subscriber_id BIGINT PRIMARY KEY,
		status        TEXT        NOT NULL DEFAULT 'inactive',
		expires_at    TIMESTAMPTZ NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS charges (
		id             BIGSERIAL PRIMARY KEY,
		subscriber_id  BIGINT      NOT NULL,
		external_tx_id TEXT        NULL,
		status         TEXT        NOT NULL DEFAULT 'pending',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		raw_response   TEXT        NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_charges_external_tx_id ON charges (external_tx_id)`,
	`CREATE INDEX IF NOT EXISTS idx_charges_subscriber_id ON charges (subscriber_id)`,
}

// EnsureSchema создает таблицы, если их еще нет; повторный вызов безопасен
func EnsureSchema(ctx context.Context, db DB, log *logger.Logger) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	log.Info("Database schema is up to date")
	return nil
}
