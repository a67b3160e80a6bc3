// Package db provides the PostgreSQL connection pool and schema setup for
// job history persistence.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandpulse/sponsorship-analysis-go/internal/config"
)

// NewPool creates a new PostgreSQL connection pool with the given configuration.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the job history schema and table if they do not exist.
// Outcome rows are written once per job and never updated, so the table needs
// no versioned migration tooling.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS analysis`,
		`CREATE TABLE IF NOT EXISTS analysis.job_history (
			job_id        VARCHAR(64) PRIMARY KEY,
			mode          VARCHAR(16) NOT NULL,
			video_ids     TEXT[] NOT NULL,
			brands        TEXT[],
			state         VARCHAR(16) NOT NULL,
			error_message TEXT,
			result        JSONB,
			created_at    TIMESTAMPTZ NOT NULL,
			completed_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_history_completed_at
			ON analysis.job_history (completed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_job_history_state
			ON analysis.job_history (state)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection pool gracefully.
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
