// Package postgres provides PostgreSQL-backed implementations of the
// capability, usage, and suggestion stores.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a connection pool and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they don't exist. The partial unique index
// on suggestions enforces the one pending suggestion per dedup key rule at
// the database level, covering concurrent writers.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if schema == "" {
		schema = "public"
	}

	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.capability_definitions (
				vendor TEXT NOT NULL,
				model TEXT NOT NULL,
				integration TEXT NOT NULL,
				description TEXT,
				features JSONB NOT NULL,
				last_updated TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (vendor, model, integration)
			)`, schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.usage_records (
				device_id TEXT NOT NULL,
				feature TEXT NOT NULL,
				category TEXT NOT NULL,
				configured BOOLEAN NOT NULL,
				discovered_at TIMESTAMPTZ NOT NULL,
				last_checked TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (device_id, feature)
			)`, schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.suggestions (
				id TEXT PRIMARY KEY,
				source TEXT NOT NULL,
				title TEXT NOT NULL,
				description TEXT NOT NULL,
				payload JSONB,
				confidence DOUBLE PRECISION NOT NULL,
				dedup_key TEXT NOT NULL,
				status TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				decided_at TIMESTAMPTZ,
				external_ref TEXT,
				metadata JSONB
			)`, schema),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS idx_suggestions_pending_dedup
			ON %s.suggestions (dedup_key) WHERE status = 'pending'`, schema),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_suggestions_status
			ON %s.suggestions (status)`, schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.suggestion_audit (
				seq BIGSERIAL PRIMARY KEY,
				suggestion_id TEXT NOT NULL,
				from_status TEXT NOT NULL,
				to_status TEXT NOT NULL,
				actor TEXT NOT NULL,
				at TIMESTAMPTZ NOT NULL,
				note TEXT
			)`, schema),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_suggestion_audit_suggestion
			ON %s.suggestion_audit (suggestion_id, seq)`, schema),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}
