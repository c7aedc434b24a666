// Package emit provides pluggable observability for workflow execution.
package emit

// Standard event messages emitted by the executor. Emitters may switch on
// Msg to treat lifecycle events specially.
const (
	MsgRunStarted   = "run_started"
	MsgRunResumed   = "run_resumed"
	MsgNodeStart    = "node_start"
	MsgNodeComplete = "node_complete"
	MsgRunSuspended = "run_suspended"
	MsgRunCompleted = "run_completed"
	MsgRunFailed    = "run_failed"
)

// Event is a single observability record from a workflow run.
//
// The executor emits one event per node execution plus run lifecycle events
// (started, resumed, suspended, completed, failed). Emitters forward events
// to a backend: a log writer, an in-memory buffer, or an OpenTelemetry
// tracer.
type Event struct {
	// RunID identifies the workflow run that emitted this event.
	RunID string

	// Step is the sequential node-execution count within the run,
	// 1-indexed. Zero for run-level events emitted before any node runs.
	Step int

	// NodeID is the node this event concerns. Empty for run-level events.
	NodeID string

	// Msg names the event, usually one of the Msg constants above.
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "checkpoint_id": checkpoint created at suspension
	//   - "routing_key": conditional edge key taken
	//   - "error": failure details
	Meta map[string]any
}
