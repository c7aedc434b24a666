// Package store provides durable checkpoint persistence for suspended
// workflow runs.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested checkpoint ID does not exist.
var ErrNotFound = errors.New("checkpoint not found")

// ErrConflict is returned when a checkpoint has already been resolved.
// A checkpoint is resolved by exactly one Take; any concurrent or repeated
// attempt observes this error.
var ErrConflict = errors.New("checkpoint already resolved")

// Checkpoint is the durable record of a suspended run: everything needed to
// resume traversal exactly where it left off.
//
// Lifecycle: created when a node suspends, resolved by exactly one Take when
// resume is invoked, then discarded. A checkpoint is never mutated otherwise.
type Checkpoint struct {
	// ID uniquely identifies this checkpoint. Opaque to callers.
	ID string `json:"id"`

	// RunID identifies the run that suspended.
	RunID string `json:"run_id"`

	// NodeName is the node that requested suspension. Resume re-enters this
	// node with the decision injected into the state.
	NodeName string `json:"node_name"`

	// State is the full state document at suspension time, with all updates
	// produced before the suspend request already merged.
	State map[string]any `json:"state"`

	// Payload describes the decision being waited for, as supplied by the
	// suspending node.
	Payload map[string]any `json:"payload"`

	// CreatedAt records when the suspension occurred. A surrounding
	// scheduler can use it to expire stale checkpoints.
	CreatedAt time.Time `json:"created_at"`
}

// CheckpointStore persists checkpoints for suspended runs.
//
// The store is the only shared mutable resource across runs. Access is keyed
// by checkpoint ID with at-most-one-writer-per-key discipline: Take must
// atomically mark the checkpoint resolved so that a second concurrent resume
// on the same checkpoint is rejected with ErrConflict.
//
// Implementations:
//   - MemStore: in-memory, for tests and single-process deployments.
//   - SQLiteStore: single-file database, zero-setup persistence.
//   - MySQLStore: shared database for multi-process deployments.
type CheckpointStore interface {
	// Put persists a new checkpoint. The checkpoint must be durable before
	// Put returns; the engine only hands control back to the caller after a
	// successful Put.
	Put(ctx context.Context, cp Checkpoint) error

	// Take atomically marks the checkpoint resolved and returns it. Exactly
	// one Take per checkpoint succeeds. Returns ErrNotFound for an unknown
	// ID and ErrConflict when the checkpoint was already resolved.
	Take(ctx context.Context, id string) (Checkpoint, error)

	// Peek returns a checkpoint without resolving it. Returns ErrNotFound
	// for an unknown ID. Resolved checkpoints remain peekable until deleted.
	Peek(ctx context.Context, id string) (Checkpoint, error)

	// Delete discards a checkpoint, resolved or not. Abandoning a suspended
	// run is exactly this: there is no live thread to interrupt. Deleting an
	// unknown ID returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}
