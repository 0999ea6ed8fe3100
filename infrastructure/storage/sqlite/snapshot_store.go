// Package sqlite provides a SQLite-backed score snapshot store, suitable for
// single-node installs that don't run PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dwellsense/dwellsense/domain/score"
)

// Config configures the SQLite store.
type Config struct {
	// DSN is the data source name (e.g., "file:dwellsense.db?cache=shared&mode=rwc").
	DSN string

	// BusyTimeout sets the busy timeout in milliseconds.
	BusyTimeout int

	// JournalMode sets the SQLite journal mode (e.g., "WAL").
	JournalMode string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DSN:         "file:dwellsense.db?cache=shared&mode=rwc",
		BusyTimeout: 5000,
		JournalMode: "WAL",
	}
}

var (
	ErrConnectionFailed = errors.New("sqlite: connection failed")
	ErrMigrationFailed  = errors.New("sqlite: migration failed")
)

// SnapshotStore is a SQLite-backed implementation of score.SnapshotStore.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore opens the database and creates the table.
func NewSnapshotStore(cfg Config) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	if cfg.JournalMode != "" {
		if _, err := db.Exec("PRAGMA journal_mode=" + cfg.JournalMode); err != nil {
			_ = db.Close()
			return nil, errors.Join(ErrMigrationFailed, err)
		}
	}
	if cfg.BusyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
			_ = db.Close()
			return nil, errors.Join(ErrMigrationFailed, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	s := &SnapshotStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSnapshotStoreFromDB creates a store from an existing connection.
func NewSnapshotStoreFromDB(db *sql.DB) (*SnapshotStore, error) {
	s := &SnapshotStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SnapshotStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS score_snapshots (
			run_id TEXT PRIMARY KEY,
			global_percent REAL NOT NULL,
			taken_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_score_snapshots_taken_at ON score_snapshots(taken_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Save persists a snapshot, replacing an earlier one for the same run.
func (s *SnapshotStore) Save(ctx context.Context, snap score.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO score_snapshots (run_id, global_percent, taken_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET global_percent = excluded.global_percent, taken_at = excluded.taken_at`,
		snap.RunID, snap.GlobalPercent, snap.TakenAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot.
func (s *SnapshotStore) Latest(ctx context.Context) (*score.Snapshot, error) {
	var snap score.Snapshot
	var takenAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, global_percent, taken_at
		 FROM score_snapshots
		 ORDER BY taken_at DESC
		 LIMIT 1`,
	).Scan(&snap.RunID, &snap.GlobalPercent, &takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, score.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest snapshot: %w", err)
	}

	snap.TakenAt = time.Unix(0, takenAt)
	return &snap, nil
}

// Close closes the database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

var _ score.SnapshotStore = (*SnapshotStore)(nil)
