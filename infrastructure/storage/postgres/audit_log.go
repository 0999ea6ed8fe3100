package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dwellsense/dwellsense/domain/suggestion"
)

// AuditLog is a PostgreSQL-backed implementation of suggestion.AuditLog.
// Entries are append-only; nothing ever updates or deletes them.
type AuditLog struct {
	pool   *pgxpool.Pool
	schema string
}

// NewAuditLog creates a PostgreSQL audit log.
func NewAuditLog(pool *pgxpool.Pool, schema string) *AuditLog {
	if schema == "" {
		schema = "public"
	}
	return &AuditLog{pool: pool, schema: schema}
}

func (l *AuditLog) tableName() string {
	return fmt.Sprintf("%s.suggestion_audit", l.schema)
}

// Append records a transition.
func (l *AuditLog) Append(ctx context.Context, tr suggestion.Transition) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (suggestion_id, from_status, to_status, actor, at, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, l.tableName())

	_, err := l.pool.Exec(ctx, query,
		tr.SuggestionID,
		string(tr.From),
		string(tr.To),
		tr.Actor,
		tr.At,
		tr.Note,
	)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}

	return nil
}

// History returns a suggestion's transitions in append order.
func (l *AuditLog) History(ctx context.Context, suggestionID string) ([]suggestion.Transition, error) {
	query := fmt.Sprintf(`
		SELECT suggestion_id, from_status, to_status, actor, at, note
		FROM %s
		WHERE suggestion_id = $1
		ORDER BY seq
	`, l.tableName())

	rows, err := l.pool.Query(ctx, query, suggestionID)
	if err != nil {
		return nil, fmt.Errorf("reading audit history: %w", err)
	}
	defer rows.Close()

	var history []suggestion.Transition
	for rows.Next() {
		var tr suggestion.Transition
		var from, to string
		if err := rows.Scan(&tr.SuggestionID, &from, &to, &tr.Actor, &tr.At, &tr.Note); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		tr.From = suggestion.Status(from)
		tr.To = suggestion.Status(to)
		history = append(history, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading audit history: %w", err)
	}

	return history, nil
}

var _ suggestion.AuditLog = (*AuditLog)(nil)
