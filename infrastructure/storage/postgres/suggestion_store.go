package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dwellsense/dwellsense/domain/suggestion"
)

// SuggestionStore is a PostgreSQL-backed implementation of suggestion.Store.
type SuggestionStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewSuggestionStore creates a PostgreSQL suggestion store.
func NewSuggestionStore(pool *pgxpool.Pool, schema string) *SuggestionStore {
	if schema == "" {
		schema = "public"
	}
	return &SuggestionStore{pool: pool, schema: schema}
}

func (s *SuggestionStore) tableName() string {
	return fmt.Sprintf("%s.suggestions", s.schema)
}

// Save persists a new suggestion. The partial unique index turns a second
// pending suggestion for the same dedup key into ErrDuplicatePending.
func (s *SuggestionStore) Save(ctx context.Context, sug *suggestion.Suggestion) error {
	if sug.ID == "" || sug.DedupKey == "" {
		return suggestion.ErrInvalidSuggestion
	}

	metadata, err := json.Marshal(sug.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, source, title, description, payload, confidence, dedup_key, status, created_at, decided_at, external_ref, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, s.tableName())

	_, err = s.pool.Exec(ctx, query,
		sug.ID,
		string(sug.Source),
		sug.Title,
		sug.Description,
		[]byte(sug.Payload),
		sug.Confidence,
		sug.DedupKey,
		string(sug.Status),
		sug.CreatedAt,
		nullableTime(sug.DecidedAt),
		nullableString(sug.ExternalRef),
		metadata,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			if strings.Contains(err.Error(), "idx_suggestions_pending_dedup") {
				return suggestion.ErrDuplicatePending
			}
			return suggestion.ErrSuggestionExists
		}
		return fmt.Errorf("inserting suggestion: %w", err)
	}

	return nil
}

// Get retrieves a suggestion by ID.
func (s *SuggestionStore) Get(ctx context.Context, id string) (*suggestion.Suggestion, error) {
	if id == "" {
		return nil, suggestion.ErrInvalidSuggestion
	}

	query := fmt.Sprintf(`
		SELECT id, source, title, description, payload, confidence, dedup_key, status, created_at, decided_at, external_ref, metadata
		FROM %s
		WHERE id = $1
	`, s.tableName())

	sug, err := scanSuggestion(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, suggestion.ErrSuggestionNotFound
		}
		return nil, err
	}
	return sug, nil
}

// List returns suggestions matching the filter.
func (s *SuggestionStore) List(ctx context.Context, filter suggestion.ListFilter) ([]*suggestion.Suggestion, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	defer rows.Close()

	var sugs []*suggestion.Suggestion
	for rows.Next() {
		sug, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		sugs = append(sugs, sug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}

	return sugs, nil
}

// Update updates an existing suggestion.
func (s *SuggestionStore) Update(ctx context.Context, sug *suggestion.Suggestion) error {
	if sug.ID == "" {
		return suggestion.ErrInvalidSuggestion
	}

	metadata, err := json.Marshal(sug.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET source = $2,
			title = $3,
			description = $4,
			payload = $5,
			confidence = $6,
			dedup_key = $7,
			status = $8,
			decided_at = $9,
			external_ref = $10,
			metadata = $11
		WHERE id = $1
	`, s.tableName())

	result, err := s.pool.Exec(ctx, query,
		sug.ID,
		string(sug.Source),
		sug.Title,
		sug.Description,
		[]byte(sug.Payload),
		sug.Confidence,
		sug.DedupKey,
		string(sug.Status),
		nullableTime(sug.DecidedAt),
		nullableString(sug.ExternalRef),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("updating suggestion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return suggestion.ErrSuggestionNotFound
	}

	return nil
}

func (s *SuggestionStore) buildListQuery(filter suggestion.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if len(filter.Sources) > 0 {
		sources := make([]string, len(filter.Sources))
		for i, src := range filter.Sources {
			sources[i] = string(src)
		}
		args = append(args, sources)
		conditions = append(conditions, fmt.Sprintf("source = ANY($%d)", len(args)))
	}

	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	if filter.DedupKey != "" {
		args = append(args, filter.DedupKey)
		conditions = append(conditions, fmt.Sprintf("dedup_key = $%d", len(args)))
	}

	if filter.MinConfidence > 0 {
		args = append(args, filter.MinConfidence)
		conditions = append(conditions, fmt.Sprintf("confidence >= $%d", len(args)))
	}

	if !filter.FromTime.IsZero() {
		args = append(args, filter.FromTime)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	if !filter.ToTime.IsZero() {
		args = append(args, filter.ToTime)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id, source, title, description, payload, confidence, dedup_key, status, created_at, decided_at, external_ref, metadata
		FROM %s
	`, s.tableName())

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "created_at"
	if filter.OrderBy == suggestion.OrderByConfidence {
		orderBy = "confidence"
	}
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderBy, direction)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return query, args
}

func scanSuggestion(row pgx.Row) (*suggestion.Suggestion, error) {
	var sug suggestion.Suggestion
	var source, status string
	var payload, metadata []byte
	var decidedAt *time.Time
	var externalRef *string

	err := row.Scan(
		&sug.ID,
		&source,
		&sug.Title,
		&sug.Description,
		&payload,
		&sug.Confidence,
		&sug.DedupKey,
		&status,
		&sug.CreatedAt,
		&decidedAt,
		&externalRef,
		&metadata,
	)
	if err != nil {
		return nil, err
	}

	sug.Source = suggestion.Source(source)
	sug.Status = suggestion.Status(status)
	if len(payload) > 0 {
		sug.Payload = payload
	}
	if decidedAt != nil {
		sug.DecidedAt = *decidedAt
	}
	if externalRef != nil {
		sug.ExternalRef = *externalRef
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &sug.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if sug.Metadata == nil {
		sug.Metadata = make(map[string]any)
	}

	return &sug, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ suggestion.Store = (*SuggestionStore)(nil)
