package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips state and payload", func(t *testing.T) {
		s := newTestSQLiteStore(t)
		if err := s.Put(ctx, sampleCheckpoint("cp1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		cp, err := s.Take(ctx, "cp1")
		if err != nil {
			t.Fatalf("Take failed: %v", err)
		}
		if cp.ID != "cp1" || cp.RunID != "run-1" || cp.NodeName != "escalate_to_management" {
			t.Errorf("unexpected checkpoint: %+v", cp)
		}
		if cp.State["customer_id"] != "CUST001" {
			t.Errorf("state not preserved: %v", cp.State)
		}
		if cp.State["requires_human"] != true {
			t.Errorf("bool field lost in round trip: %v", cp.State)
		}
		if cp.Payload["escalation_reason"] != "credit utilization above threshold" {
			t.Errorf("payload not preserved: %v", cp.Payload)
		}
	})

	t.Run("duplicate put fails on primary key", func(t *testing.T) {
		s := newTestSQLiteStore(t)
		_ = s.Put(ctx, sampleCheckpoint("cp1"))
		if err := s.Put(ctx, sampleCheckpoint("cp1")); err == nil {
			t.Error("expected error for duplicate checkpoint ID")
		}
	})

	t.Run("second take conflicts", func(t *testing.T) {
		s := newTestSQLiteStore(t)
		_ = s.Put(ctx, sampleCheckpoint("cp1"))

		if _, err := s.Take(ctx, "cp1"); err != nil {
			t.Fatalf("first Take failed: %v", err)
		}
		if _, err := s.Take(ctx, "cp1"); !errors.Is(err, ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("unknown ID is not found", func(t *testing.T) {
		s := newTestSQLiteStore(t)
		if _, err := s.Take(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Take: expected ErrNotFound, got %v", err)
		}
		if _, err := s.Peek(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Peek: expected ErrNotFound, got %v", err)
		}
		if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("peek survives take, delete removes", func(t *testing.T) {
		s := newTestSQLiteStore(t)
		_ = s.Put(ctx, sampleCheckpoint("cp1"))

		if _, err := s.Take(ctx, "cp1"); err != nil {
			t.Fatalf("Take failed: %v", err)
		}
		if _, err := s.Peek(ctx, "cp1"); err != nil {
			t.Errorf("Peek after Take failed: %v", err)
		}
		if err := s.Delete(ctx, "cp1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Peek(ctx, "cp1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("checkpoints survive reopening the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "checkpoints.db")
		s, err := NewSQLiteStore(path)
		if err != nil {
			t.Fatalf("NewSQLiteStore failed: %v", err)
		}
		if err := s.Put(ctx, sampleCheckpoint("cp1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		reopened, err := NewSQLiteStore(path)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer reopened.Close()

		cp, err := reopened.Take(ctx, "cp1")
		if err != nil {
			t.Fatalf("Take after reopen failed: %v", err)
		}
		if cp.State["customer_id"] != "CUST001" {
			t.Errorf("state lost across reopen: %v", cp.State)
		}
	})
}
