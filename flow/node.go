package flow

import "context"

// Node is a unit of work in the workflow graph.
//
// A node receives a snapshot of the current state, performs its work, and
// returns a NodeResult carrying a partial state update and, optionally, a
// suspend request. Nodes never mutate the state they are given.
//
// Two variants exist by contract:
//   - Plain nodes always produce updates and never suspend.
//   - Decision nodes may return a SuspendRequest, pausing the run until an
//     external decision arrives. On resume the same node is re-entered with
//     the decision injected under DecisionField, and must short-circuit its
//     suspend branch when that field is present.
//
// Collaborator failures inside a node are handled locally: the node converts
// the failure into state fields (a reason string and a conservative routing
// outcome) rather than returning an error, so a downstream outage degrades
// the run to the safest branch instead of crashing it. NodeResult.Err is
// reserved for programming errors that should halt the run.
type Node interface {
	Run(ctx context.Context, state State) NodeResult
}

// NodeResult is the output of one node execution.
type NodeResult struct {
	// Updates is the partial state update to merge into the document.
	// Each field present overwrites the corresponding field; absent fields
	// are untouched.
	Updates State

	// Suspend, when non-nil, requests suspension of the run after Updates
	// are merged. The Executor checkpoints the merged state and returns
	// control to the caller.
	Suspend *SuspendRequest

	// Err halts the run with a NodeExecutionFailure. Leave nil and record
	// the failure in Updates instead whenever a safe branch exists.
	Err error
}

// SuspendRequest asks the Executor to pause the run pending an external
// decision.
type SuspendRequest struct {
	// Payload describes what decision is needed, in terms meaningful to the
	// human reviewer (customer, amounts, reason). It is stored on the
	// checkpoint and surfaced to the caller verbatim.
	Payload map[string]any
}

// NodeFunc adapts a plain function to the Node interface.
//
// Example:
//
//	stamp := flow.NodeFunc(func(ctx context.Context, s flow.State) flow.NodeResult {
//	    return flow.NodeResult{Updates: flow.State{"stamped": true}}
//	})
type NodeFunc func(ctx context.Context, state State) NodeResult

// Run implements Node.
func (f NodeFunc) Run(ctx context.Context, state State) NodeResult {
	return f(ctx, state)
}

// RouteFunc computes a routing key from the current state for a conditional
// edge set. It must be a total, deterministic function of the state: every
// reachable state must map to a key declared in the edge set, or the run
// fails with a RoutingError.
type RouteFunc func(state State) string
