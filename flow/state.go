// Package flow provides the workflow orchestration engine: a directed graph
// of processing nodes driven over a shared state document, with conditional
// routing and a suspend/resume protocol for human-in-the-loop decisions.
package flow

import (
	"encoding/json"
	"fmt"
)

// DecisionField is the reserved state field under which Executor.Resume
// injects the externally supplied decision before re-entering the node that
// suspended. Nodes that suspend must check this field first and finish their
// work when it is present instead of suspending again.
const DecisionField = "human_decision"

// State is the mutable case record threaded through the graph.
//
// It is an append-only field set for the duration of a run: nodes may
// overwrite a field set earlier, but fields are never deleted. The Executor
// owns the document exclusively; each node receives a snapshot and returns a
// partial update, it never mutates the document in place.
//
// Values must be JSON-serializable (strings, numbers, booleans, nested maps)
// so that state can be checkpointed and deep-copied.
type State map[string]any

// Clone creates a deep copy of the state using a JSON round-trip.
//
// This works for any value that survives JSON marshaling. Numbers come back
// as float64, which is why the typed getters below normalize numeric access.
func (s State) Clone() (State, error) {
	if s == nil {
		return State{}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	var copied State
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if copied == nil {
		copied = State{}
	}
	return copied, nil
}

// Merge returns a new State with every field of updates overwriting the
// corresponding field of s. Fields absent from updates are untouched; no
// field is ever removed. The receiver is not modified.
func (s State) Merge(updates State) State {
	merged := make(State, len(s)+len(updates))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}

// GetString returns the named field as a string, or "" if it is absent or
// not a string.
func (s State) GetString(field string) string {
	v, _ := s[field].(string)
	return v
}

// GetBool returns the named field as a bool, or false if it is absent or
// not a bool.
func (s State) GetBool(field string) bool {
	v, _ := s[field].(bool)
	return v
}

// GetFloat returns the named field as a float64. Integer values are widened,
// since JSON round-trips turn all numbers into float64 anyway.
func (s State) GetFloat(field string) float64 {
	switch v := s[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// GetMap returns the named field as a nested map, or nil if it is absent or
// not a map.
func (s State) GetMap(field string) map[string]any {
	switch v := s[field].(type) {
	case map[string]any:
		return v
	case State:
		return v
	default:
		return nil
	}
}
