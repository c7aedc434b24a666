package flow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mshields/arflow/flow/emit"
	"github.com/mshields/arflow/flow/store"
)

// Status classifies how a run returned control to the caller.
type Status string

const (
	// StatusCompleted means the run reached a terminal node.
	StatusCompleted Status = "completed"

	// StatusSuspended means a node requested suspension; the run is
	// checkpointed and waits for Resume.
	StatusSuspended Status = "suspended"
)

// RunResult is the outcome of Start or Resume.
type RunResult struct {
	// RunID identifies this run across suspension boundaries.
	RunID string

	// Status is StatusCompleted or StatusSuspended.
	Status Status

	// FinalState is the full state document. Set only when completed.
	FinalState State

	// CheckpointID identifies the checkpoint to pass to Resume. Set only
	// when suspended.
	CheckpointID string

	// Payload describes the decision the run is waiting for. Set only when
	// suspended.
	Payload map[string]any
}

// Executor drives traversal of a compiled graph definition.
//
// One executor serves any number of concurrent runs: each run owns its own
// state document and checkpoint, and the definition is read-only, so runs
// share nothing but the checkpoint store. Within a run, node execution and
// routing are strictly sequential.
//
// Suspension is the single pause point. When a node returns a
// SuspendRequest, the executor merges the node's updates, persists a
// checkpoint, and returns control; no goroutine is left waiting. Resume
// loads the checkpoint, injects the decision under DecisionField, and
// re-enters the same node exactly once, which must then finish instead of
// suspending again.
type Executor struct {
	def      *Definition
	store    store.CheckpointStore
	emitter  emit.Emitter
	metrics  *Metrics
	maxSteps int
}

// Option configures an Executor.
type Option func(*Executor) error

// WithEmitter sets the observability emitter. Default: a NullEmitter.
func WithEmitter(emitter emit.Emitter) Option {
	return func(e *Executor) error {
		if emitter == nil {
			return errors.New("emitter cannot be nil")
		}
		e.emitter = emitter
		return nil
	}
}

// WithMaxSteps overrides the visited-node budget for the cycle guard.
// Default: 10× the node count. Conditional edges may point backward, so the
// guard is a required safety net, not an optimization.
func WithMaxSteps(n int) Option {
	return func(e *Executor) error {
		if n <= 0 {
			return fmt.Errorf("max steps must be positive, got %d", n)
		}
		e.maxSteps = n
		return nil
	}
}

// WithMetrics attaches Prometheus metrics collection.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) error {
		e.metrics = m
		return nil
	}
}

// NewExecutor creates an executor over a compiled definition and a
// checkpoint store.
func NewExecutor(def *Definition, cs store.CheckpointStore, opts ...Option) (*Executor, error) {
	if def == nil {
		return nil, errors.New("definition is required")
	}
	if !def.compiled {
		return nil, &DefinitionError{Message: "definition must be compiled before use"}
	}
	if cs == nil {
		return nil, errors.New("checkpoint store is required")
	}

	e := &Executor{
		def:      def,
		store:    cs,
		emitter:  emit.NewNullEmitter(),
		maxSteps: 10 * def.NodeCount(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Start begins a new run at the entry node with the given initial state.
//
// Returns a completed result carrying the final state, a suspended result
// carrying a checkpoint ID and payload, or a typed error (RoutingError,
// InfiniteLoopError, NodeError) with no partially applied state.
func (e *Executor) Start(ctx context.Context, initial State) (RunResult, error) {
	runID := newID()

	state, err := initial.Clone()
	if err != nil {
		return RunResult{}, fmt.Errorf("invalid initial state: %w", err)
	}

	e.emitter.Emit(emit.Event{RunID: runID, Msg: emit.MsgRunStarted})
	e.metrics.runStarted()

	return e.run(ctx, runID, e.def.Entry(), state)
}

// Resume continues a suspended run with an externally supplied decision.
//
// The checkpoint is resolved atomically: the first Resume on a checkpoint
// proceeds, any concurrent or repeated Resume fails with
// CheckpointConflictError. The decision value is merged into the
// checkpointed state under DecisionField and the suspending node is
// re-entered.
func (e *Executor) Resume(ctx context.Context, checkpointID string, decision any) (RunResult, error) {
	cp, err := e.store.Take(ctx, checkpointID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return RunResult{}, &CheckpointConflictError{CheckpointID: checkpointID}
		}
		return RunResult{}, fmt.Errorf("failed to load checkpoint %q: %w", checkpointID, err)
	}

	state := State(cp.State).Merge(State{DecisionField: decision})

	e.emitter.Emit(emit.Event{
		RunID:  cp.RunID,
		NodeID: cp.NodeName,
		Msg:    emit.MsgRunResumed,
		Meta:   map[string]any{"checkpoint_id": checkpointID},
	})
	e.metrics.runResumed()

	return e.run(ctx, cp.RunID, cp.NodeName, state)
}

// run is the traversal loop shared by Start and Resume.
func (e *Executor) run(ctx context.Context, runID, current string, state State) (RunResult, error) {
	step := 0
	for {
		step++
		if step > e.maxSteps {
			err := &InfiniteLoopError{Node: current, Steps: step - 1}
			e.failRun(runID, step, current, err)
			return RunResult{}, err
		}

		select {
		case <-ctx.Done():
			e.failRun(runID, step, current, ctx.Err())
			return RunResult{}, ctx.Err()
		default:
		}

		node, ok := e.def.node(current)
		if !ok {
			// Unreachable for a compiled definition; guards against a
			// store carrying a node name from an older graph revision.
			err := &DefinitionError{Message: "node not found during execution: " + current}
			e.failRun(runID, step, current, err)
			return RunResult{}, err
		}

		e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: current, Msg: emit.MsgNodeStart})

		// Nodes get a snapshot; in-place mutation cannot leak back.
		snapshot, err := state.Clone()
		if err != nil {
			e.failRun(runID, step, current, err)
			return RunResult{}, fmt.Errorf("failed to snapshot state: %w", err)
		}

		started := time.Now()
		result := node.Run(ctx, snapshot)
		e.metrics.nodeExecuted(current, time.Since(started), result.Err == nil)

		if result.Err != nil {
			err := &NodeError{Node: current, Cause: result.Err}
			e.failRun(runID, step, current, err)
			return RunResult{}, err
		}

		if result.Updates != nil {
			state = state.Merge(result.Updates)
		}

		e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: current, Msg: emit.MsgNodeComplete})

		if result.Suspend != nil {
			return e.suspend(ctx, runID, step, current, state, result.Suspend)
		}

		next, terminal, err := e.def.next(current, state)
		if err != nil {
			e.failRun(runID, step, current, err)
			return RunResult{}, err
		}
		if terminal {
			e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: current, Msg: emit.MsgRunCompleted})
			e.metrics.runCompleted()
			return RunResult{RunID: runID, Status: StatusCompleted, FinalState: state}, nil
		}
		current = next
	}
}

// suspend persists a checkpoint for the merged state and hands control back
// to the caller. The checkpoint is durable before control returns.
func (e *Executor) suspend(ctx context.Context, runID string, step int, nodeName string, state State, req *SuspendRequest) (RunResult, error) {
	snapshot, err := state.Clone()
	if err != nil {
		e.failRun(runID, step, nodeName, err)
		return RunResult{}, fmt.Errorf("failed to snapshot state for checkpoint: %w", err)
	}

	cp := store.Checkpoint{
		ID:        newID(),
		RunID:     runID,
		NodeName:  nodeName,
		State:     snapshot,
		Payload:   req.Payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.Put(ctx, cp); err != nil {
		e.failRun(runID, step, nodeName, err)
		return RunResult{}, fmt.Errorf("failed to persist checkpoint: %w", err)
	}

	e.emitter.Emit(emit.Event{
		RunID:  runID,
		Step:   step,
		NodeID: nodeName,
		Msg:    emit.MsgRunSuspended,
		Meta:   map[string]any{"checkpoint_id": cp.ID},
	})
	e.metrics.runSuspended()

	return RunResult{
		RunID:        runID,
		Status:       StatusSuspended,
		CheckpointID: cp.ID,
		Payload:      req.Payload,
	}, nil
}

func (e *Executor) failRun(runID string, step int, nodeName string, err error) {
	e.emitter.Emit(emit.Event{
		RunID:  runID,
		Step:   step,
		NodeID: nodeName,
		Msg:    emit.MsgRunFailed,
		Meta:   map[string]any{"error": err.Error()},
	})
	e.metrics.runFailed()
}

// newID returns a 32-character random hex identifier, used for both run IDs
// and checkpoint IDs.
func newID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to a
		// timestamp rather than panic inside a run.
		return fmt.Sprintf("t%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
