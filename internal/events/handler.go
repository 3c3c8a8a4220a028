package events

// Handler is a component that receives events of one or more types.
// Implementations must report a non-empty, fixed set of supported types for
// their whole lifetime. Handlers are identified by interface identity inside
// the registry, so implementations should use pointer receivers.
type Handler interface {
	// Handle processes a single event. A returned error is isolated by the
	// bus: it is logged and counted but never interrupts sibling dispatch.
	Handle(event Event) error

	// SupportedTypes returns the event types this handler subscribes to.
	SupportedTypes() []EventType

	// Name identifies the handler in logs and error messages.
	Name() string
}

// FuncHandler adapts a plain function to the Handler interface. It is mainly
// useful for ad-hoc wiring and tests.
type FuncHandler struct {
	name  string
	types []EventType
	fn    func(Event) error
}

// NewFuncHandler creates a handler that invokes fn for every received event.
func NewFuncHandler(name string, types []EventType, fn func(Event) error) *FuncHandler {
	return &FuncHandler{
		name:  name,
		types: types,
		fn:    fn,
	}
}

// Handle invokes the wrapped function.
func (h *FuncHandler) Handle(event Event) error { return h.fn(event) }

// SupportedTypes returns a copy of the handler's subscribed types.
func (h *FuncHandler) SupportedTypes() []EventType {
	out := make([]EventType, len(h.types))
	copy(out, h.types)
	return out
}

// Name returns the handler's identifier.
func (h *FuncHandler) Name() string { return h.name }
