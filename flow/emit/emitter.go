package emit

// Emitter receives observability events from workflow execution.
//
// Implementations must be safe for concurrent use, since independent runs
// execute in separate goroutines and share one emitter. They should be
// non-blocking and resilient: an emitter failure must never abort a run, so
// Emit reports nothing and must not panic.
type Emitter interface {
	Emit(event Event)
}

// MultiEmitter fans every event out to a set of emitters, e.g. a log writer
// plus an OpenTelemetry tracer.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that forwards to all of the given
// emitters in order. Nil entries are skipped.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	kept := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			kept = append(kept, e)
		}
	}
	return &MultiEmitter{emitters: kept}
}

// Emit forwards the event to every configured emitter.
func (m *MultiEmitter) Emit(event Event) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}
