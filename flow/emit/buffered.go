package emit

import "sync"

// BufferedEmitter stores events in memory, keyed by run ID.
//
// Useful in tests and for post-run inspection of what a case did on its way
// through the graph. All events are held in memory; long-lived processes
// should Clear runs they are done with.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// NewBufferedEmitter creates an empty buffered emitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends the event to the run's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// History returns a copy of all events recorded for a run, in emission
// order.
func (b *BufferedEmitter) History(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[runID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Count returns how many events with the given message were recorded for a
// run.
func (b *BufferedEmitter) Count(runID, msg string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, e := range b.events[runID] {
		if e.Msg == msg {
			n++
		}
	}
	return n
}

// Clear drops the recorded history for a run.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, runID)
}
