package emit

// NullEmitter discards all events. Use it when observability output is not
// wanted; the executor treats it the same as any other emitter.
type NullEmitter struct{}

// NewNullEmitter creates an emitter that does nothing.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}
