package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter writes events to an io.Writer, one event per line.
//
// Two output modes:
//   - Text (default): human-readable key=value pairs, e.g.
//     [node_complete] run=9f2c41 step=3 node=credit_check
//   - JSON: one JSON object per line, for log shippers.
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to the given writer. A nil
// writer defaults to os.Stdout.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes the event in the configured format. Write errors are
// swallowed: logging must never abort a run.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		line := struct {
			RunID  string         `json:"run_id"`
			Step   int            `json:"step,omitempty"`
			NodeID string         `json:"node_id,omitempty"`
			Msg    string         `json:"msg"`
			Meta   map[string]any `json:"meta,omitempty"`
		}{event.RunID, event.Step, event.NodeID, event.Msg, event.Meta}

		data, err := json.Marshal(line)
		if err != nil {
			return
		}
		_, _ = fmt.Fprintln(l.writer, string(data))
		return
	}

	_, _ = fmt.Fprintf(l.writer, "[%s] run=%s", event.Msg, event.RunID)
	if event.Step > 0 {
		_, _ = fmt.Fprintf(l.writer, " step=%d", event.Step)
	}
	if event.NodeID != "" {
		_, _ = fmt.Fprintf(l.writer, " node=%s", event.NodeID)
	}
	for k, v := range event.Meta {
		_, _ = fmt.Fprintf(l.writer, " %s=%v", k, v)
	}
	_, _ = fmt.Fprintln(l.writer)
}
