package store

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory CheckpointStore.
//
// Designed for tests, development, and single-process deployments where a
// process restart may legitimately abandon suspended runs. Thread-safe.
type MemStore struct {
	mu          sync.Mutex
	checkpoints map[string]Checkpoint
	resolved    map[string]bool
}

// NewMemStore creates an empty in-memory checkpoint store.
func NewMemStore() *MemStore {
	return &MemStore{
		checkpoints: make(map[string]Checkpoint),
		resolved:    make(map[string]bool),
	}
}

// Put persists a checkpoint. Reusing an existing ID is an error: a run has
// at most one live checkpoint and IDs are never recycled.
func (m *MemStore) Put(_ context.Context, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.checkpoints[cp.ID]; exists {
		return fmt.Errorf("duplicate checkpoint ID %q", cp.ID)
	}
	m.checkpoints[cp.ID] = cp
	return nil
}

// Take atomically resolves and returns a checkpoint. The whole
// check-and-mark runs under one lock, so exactly one caller wins.
func (m *MemStore) Take(_ context.Context, id string) (Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp, exists := m.checkpoints[id]
	if !exists {
		return Checkpoint{}, ErrNotFound
	}
	if m.resolved[id] {
		return Checkpoint{}, ErrConflict
	}
	m.resolved[id] = true
	return cp, nil
}

// Peek returns a checkpoint without resolving it.
func (m *MemStore) Peek(_ context.Context, id string) (Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp, exists := m.checkpoints[id]
	if !exists {
		return Checkpoint{}, ErrNotFound
	}
	return cp, nil
}

// Delete discards a checkpoint.
func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.checkpoints[id]; !exists {
		return ErrNotFound
	}
	delete(m.checkpoints, id)
	delete(m.resolved, id)
	return nil
}
