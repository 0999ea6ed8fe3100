package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dwellsense/dwellsense/domain/capability"
)

// CapabilityStore is a PostgreSQL-backed implementation of capability.Store.
type CapabilityStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewCapabilityStore creates a PostgreSQL capability store.
func NewCapabilityStore(pool *pgxpool.Pool, schema string) *CapabilityStore {
	if schema == "" {
		schema = "public"
	}
	return &CapabilityStore{pool: pool, schema: schema}
}

func (s *CapabilityStore) tableName() string {
	return fmt.Sprintf("%s.capability_definitions", s.schema)
}

// Upsert stores a definition. The WHERE clause on the conflict branch keeps
// the stored row when it is already fresher, making repeated refreshes of
// the same snapshot idempotent.
func (s *CapabilityStore) Upsert(ctx context.Context, def *capability.Definition) error {
	if def.Key.Vendor == "" || def.Key.Model == "" {
		return capability.ErrInvalidDefinition
	}

	features, err := json.Marshal(def.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (vendor, model, integration, description, features, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vendor, model, integration) DO UPDATE
		SET description = EXCLUDED.description,
			features = EXCLUDED.features,
			last_updated = EXCLUDED.last_updated
		WHERE EXCLUDED.last_updated > %s.last_updated
	`, s.tableName(), s.tableName())

	_, err = s.pool.Exec(ctx, query,
		def.Key.Vendor,
		def.Key.Model,
		def.Key.Integration,
		def.Description,
		features,
		def.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upserting definition: %w", err)
	}

	return nil
}

// Lookup returns the definition for a key.
func (s *CapabilityStore) Lookup(ctx context.Context, key capability.Key) (*capability.Definition, error) {
	query := fmt.Sprintf(`
		SELECT vendor, model, integration, description, features, last_updated
		FROM %s
		WHERE vendor = $1 AND model = $2 AND integration = $3
	`, s.tableName())

	def, err := scanDefinition(s.pool.QueryRow(ctx, query, key.Vendor, key.Model, key.Integration))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, capability.ErrDefinitionNotFound
		}
		return nil, err
	}
	return def, nil
}

// List returns all stored definitions.
func (s *CapabilityStore) List(ctx context.Context) ([]*capability.Definition, error) {
	query := fmt.Sprintf(`
		SELECT vendor, model, integration, description, features, last_updated
		FROM %s
		ORDER BY vendor, model
	`, s.tableName())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing definitions: %w", err)
	}
	defer rows.Close()

	var defs []*capability.Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing definitions: %w", err)
	}

	return defs, nil
}

func scanDefinition(row pgx.Row) (*capability.Definition, error) {
	var def capability.Definition
	var features []byte

	err := row.Scan(
		&def.Key.Vendor,
		&def.Key.Model,
		&def.Key.Integration,
		&def.Description,
		&features,
		&def.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(features, &def.Features); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}

	return &def, nil
}

var _ capability.Store = (*CapabilityStore)(nil)
