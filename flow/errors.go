package flow

import "fmt"

// DefinitionError reports an invalid graph at construction time. It is fatal:
// a Definition that fails to compile can never start a run.
type DefinitionError struct {
	Message string
}

func (e *DefinitionError) Error() string {
	return "graph definition: " + e.Message
}

// RoutingError reports that a conditional edge set's route function returned
// a key that was not declared in its mapping. It is fatal for the run and is
// surfaced to the caller verbatim; the Executor never guesses a branch.
type RoutingError struct {
	// Node is the node whose conditional edges were being evaluated.
	Node string

	// Key is the undeclared routing key the route function returned.
	Key string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing: node %q returned undeclared key %q", e.Node, e.Key)
}

// InfiniteLoopError reports that a run exceeded its visited-node budget.
// Conditional edges may point backward, so the graph is not guaranteed
// acyclic; the budget is a required safety net.
type InfiniteLoopError struct {
	// Node is the node about to execute when the budget ran out.
	Node string

	// Steps is the number of node executions performed.
	Steps int
}

func (e *InfiniteLoopError) Error() string {
	return fmt.Sprintf("infinite loop guard: %d node executions reached at %q", e.Steps, e.Node)
}

// CheckpointConflictError reports a second resume attempt on a checkpoint
// that has already been consumed. Only the first resume succeeds.
type CheckpointConflictError struct {
	CheckpointID string
}

func (e *CheckpointConflictError) Error() string {
	return "checkpoint already resumed: " + e.CheckpointID
}

// NodeError wraps an error returned from a node's own execution. Nodes are
// expected to recover locally into state fields; a NodeError therefore
// indicates a defect rather than a business outcome.
type NodeError struct {
	Node  string
	Cause error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.Node, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
