package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/domain/usage"
)

// UsageStore is a PostgreSQL-backed implementation of usage.Store.
type UsageStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewUsageStore creates a PostgreSQL usage store.
func NewUsageStore(pool *pgxpool.Pool, schema string) *UsageStore {
	if schema == "" {
		schema = "public"
	}
	return &UsageStore{pool: pool, schema: schema}
}

func (s *UsageStore) tableName() string {
	return fmt.Sprintf("%s.usage_records", s.schema)
}

// Upsert stores a record. The conflict branch keeps the original
// discovered_at: the pair was first seen when it was first seen.
func (s *UsageStore) Upsert(ctx context.Context, rec *usage.Record) error {
	if rec.DeviceID == "" || rec.Feature == "" {
		return usage.ErrInvalidRecord
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (device_id, feature, category, configured, discovered_at, last_checked)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id, feature) DO UPDATE
		SET category = EXCLUDED.category,
			configured = EXCLUDED.configured,
			last_checked = EXCLUDED.last_checked
	`, s.tableName())

	_, err := s.pool.Exec(ctx, query,
		rec.DeviceID,
		rec.Feature,
		string(rec.Category),
		rec.Configured,
		rec.DiscoveredAt,
		rec.LastChecked,
	)
	if err != nil {
		return fmt.Errorf("upserting usage record: %w", err)
	}

	return nil
}

// Get retrieves the record for a (device, feature) pair.
func (s *UsageStore) Get(ctx context.Context, deviceID, feature string) (*usage.Record, error) {
	query := fmt.Sprintf(`
		SELECT device_id, feature, category, configured, discovered_at, last_checked
		FROM %s
		WHERE device_id = $1 AND feature = $2
	`, s.tableName())

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, deviceID, feature))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, usage.ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns records matching the filter.
func (s *UsageStore) List(ctx context.Context, filter usage.ListFilter) ([]*usage.Record, error) {
	var conditions []string
	var args []any

	if filter.DeviceID != "" {
		args = append(args, filter.DeviceID)
		conditions = append(conditions, fmt.Sprintf("device_id = $%d", len(args)))
	}
	if filter.Configured != nil {
		args = append(args, *filter.Configured)
		conditions = append(conditions, fmt.Sprintf("configured = $%d", len(args)))
	}
	if len(filter.Categories) > 0 {
		categories := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			categories[i] = string(c)
		}
		args = append(args, categories)
		conditions = append(conditions, fmt.Sprintf("category = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT device_id, feature, category, configured, discovered_at, last_checked
		FROM %s
	`, s.tableName())
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY device_id, feature"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing usage records: %w", err)
	}
	defer rows.Close()

	var recs []*usage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing usage records: %w", err)
	}

	return recs, nil
}

func scanRecord(row pgx.Row) (*usage.Record, error) {
	var rec usage.Record
	var category string

	err := row.Scan(
		&rec.DeviceID,
		&rec.Feature,
		&category,
		&rec.Configured,
		&rec.DiscoveredAt,
		&rec.LastChecked,
	)
	if err != nil {
		return nil, err
	}

	rec.Category = capability.Category(category)
	return &rec, nil
}

var _ usage.Store = (*UsageStore)(nil)
