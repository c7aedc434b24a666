package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed CheckpointStore.
//
// It persists checkpoints in a single-file database, suitable for
// deployments where suspended runs must survive process restarts without
// standing up a database server. Uses WAL mode so reads do not block the
// single writer.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite checkpoint store at
// the given path. Use ":memory:" for an ephemeral database in tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS run_checkpoints (
			checkpoint_id TEXT NOT NULL PRIMARY KEY,
			run_id TEXT NOT NULL,
			node_name TEXT NOT NULL,
			state TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			resolved_at TIMESTAMP NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create run_checkpoints table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_checkpoints_run_id ON run_checkpoints(run_id)"); err != nil {
		return fmt.Errorf("failed to create idx_checkpoints_run_id: %w", err)
	}
	return nil
}

// Put persists a checkpoint. A duplicate checkpoint ID fails on the primary
// key constraint.
func (s *SQLiteStore) Put(ctx context.Context, cp Checkpoint) error {
	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	payloadJSON, err := json.Marshal(cp.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_checkpoints (checkpoint_id, run_id, node_name, state, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.RunID, cp.NodeName, string(stateJSON), string(payloadJSON), cp.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return nil
}

// Take atomically resolves and returns a checkpoint. The UPDATE only matches
// unresolved rows, so concurrent resumes race on RowsAffected and exactly
// one wins.
func (s *SQLiteStore) Take(ctx context.Context, id string) (Checkpoint, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_checkpoints SET resolved_at = ? WHERE checkpoint_id = ? AND resolved_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to resolve checkpoint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish an unknown ID from a lost race.
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM run_checkpoints WHERE checkpoint_id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return Checkpoint{}, ErrNotFound
		}
		if err != nil {
			return Checkpoint{}, fmt.Errorf("failed to query checkpoint: %w", err)
		}
		return Checkpoint{}, ErrConflict
	}

	return s.Peek(ctx, id)
}

// Peek returns a checkpoint without resolving it.
func (s *SQLiteStore) Peek(ctx context.Context, id string) (Checkpoint, error) {
	var (
		cp          Checkpoint
		stateJSON   string
		payloadJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT checkpoint_id, run_id, node_name, state, payload, created_at
		 FROM run_checkpoints WHERE checkpoint_id = ?`, id).
		Scan(&cp.ID, &cp.RunID, &cp.NodeName, &stateJSON, &payloadJSON, &cp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to query checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &cp.Payload); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return cp, nil
}

// Delete discards a checkpoint.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM run_checkpoints WHERE checkpoint_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
