package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed CheckpointStore.
//
// Intended for deployments where multiple engine processes share one
// checkpoint store: a case may suspend in one process and resume in another.
// Take uses an UPDATE on unresolved rows only, so the at-most-one-resume
// guarantee holds across processes.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a MySQL-backed checkpoint store.
//
// The DSN follows go-sql-driver/mysql conventions, e.g.
// "user:password@tcp(localhost:3306)/arflow?parseTime=true". parseTime=true
// is required so created_at scans into time.Time. Keep credentials out of
// source; read the DSN from the environment.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS run_checkpoints (
			checkpoint_id VARCHAR(64) NOT NULL PRIMARY KEY,
			run_id VARCHAR(64) NOT NULL,
			node_name VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL,
			resolved_at TIMESTAMP(6) NULL DEFAULT NULL,
			INDEX idx_checkpoints_run_id (run_id)
		) ENGINE=InnoDB
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create run_checkpoints table: %w", err)
	}
	return nil
}

// Put persists a checkpoint.
func (s *MySQLStore) Put(ctx context.Context, cp Checkpoint) error {
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

// Take atomically resolves and returns a checkpoint.
func (s *MySQLStore) Take(ctx context.Context, id string) (Checkpoint, error) {
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
func (s *MySQLStore) Peek(ctx context.Context, id string) (Checkpoint, error) {
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
func (s *MySQLStore) Delete(ctx context.Context, id string) error {
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

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
