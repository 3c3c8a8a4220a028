package events

import (
	"go.uber.org/zap"
)

// Registry maps event types to the ordered list of handlers subscribed to
// them. It maintains a reverse index from handler to subscribed types so a
// handler can be removed from every sequence it appears in.
//
// Invariant: a handler appears in the sequence for type t if and only if t is
// in the reverse entry for that handler. The registry holds non-owning
// references; handler lifetime is the caller's concern.
//
// The registry is not safe for concurrent use. The backtesting core runs on
// a single control thread; callers that share a registry across goroutines
// must serialize access themselves.
type Registry struct {
	logger        *zap.Logger
	handlers      map[EventType][]Handler
	subscriptions map[Handler]map[EventType]struct{}
}

// NewRegistry creates an empty handler registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:        logger,
		handlers:      make(map[EventType][]Handler),
		subscriptions: make(map[Handler]map[EventType]struct{}),
	}
}

// Register subscribes a handler to every event type it supports. Registering
// a handler that is already registered first removes its previous
// subscriptions, so the registry always reflects the handler's current
// capability set and never holds duplicates.
//
// It returns a RegistrationError if the handler is nil, supports no event
// types, or names a type outside the closed taxonomy.
func (r *Registry) Register(handler Handler) error {
	if handler == nil {
		return &RegistrationError{
			EventType:   "unknown",
			HandlerName: "<nil>",
			Reason:      "handler is nil",
		}
	}

	types := handler.SupportedTypes()
	if len(types) == 0 {
		return &RegistrationError{
			EventType:   "none",
			HandlerName: handler.Name(),
			Reason:      "handler supports no event types",
		}
	}
	for _, t := range types {
		if !t.Valid() {
			return &RegistrationError{
				EventType:   t,
				HandlerName: handler.Name(),
				Reason:      "unknown event type",
			}
		}
	}

	// Re-registration replaces the previous capability set wholesale:
	// remove stale sequence memberships before appending the new ones.
	if _, registered := r.subscriptions[handler]; registered {
		r.removeFromSequences(handler)
	}

	subscribed := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		if _, dup := subscribed[t]; dup {
			continue
		}
		subscribed[t] = struct{}{}
		r.handlers[t] = append(r.handlers[t], handler)
		r.logger.Debug("handler registered for event type",
			zap.String("handler", handler.Name()),
			zap.String("event_type", string(t)),
		)
	}
	r.subscriptions[handler] = subscribed

	r.logger.Info("handler registered",
		zap.String("handler", handler.Name()),
		zap.Int("event_types", len(subscribed)),
	)
	return nil
}

// Unregister removes a handler from every event type it is subscribed to.
// Unregistering a handler that was never registered is a no-op.
func (r *Registry) Unregister(handler Handler) {
	if _, registered := r.subscriptions[handler]; !registered {
		name := "<nil>"
		if handler != nil {
			name = handler.Name()
		}
		r.logger.Warn("attempted to unregister an unknown handler",
			zap.String("handler", name),
		)
		return
	}

	r.removeFromSequences(handler)
	delete(r.subscriptions, handler)

	r.logger.Info("handler unregistered", zap.String("handler", handler.Name()))
}

// removeFromSequences removes the handler from the sequence of every event
// type named in its reverse entry.
func (r *Registry) removeFromSequences(handler Handler) {
	for t := range r.subscriptions[handler] {
		seq := r.handlers[t]
		for i, h := range seq {
			if h == handler {
				r.handlers[t] = append(seq[:i], seq[i+1:]...)
				break
			}
		}
		if len(r.handlers[t]) == 0 {
			delete(r.handlers, t)
		}
	}
}

// HandlersFor returns a snapshot copy of the handlers subscribed to an event
// type, in registration order. It returns a HandlerNotFoundError when no
// handlers are registered; callers that treat "no subscribers" as valid
// should match that error rather than propagate it.
func (r *Registry) HandlersFor(t EventType) ([]Handler, error) {
	seq := r.handlers[t]
	if len(seq) == 0 {
		return nil, &HandlerNotFoundError{EventType: t}
	}
	out := make([]Handler, len(seq))
	copy(out, seq)
	return out, nil
}

// HasHandlers reports whether any handler is subscribed to an event type.
func (r *Registry) HasHandlers(t EventType) bool {
	return len(r.handlers[t]) > 0
}

// HandlerCount returns the number of handlers subscribed to an event type.
func (r *Registry) HandlerCount(t EventType) int {
	return len(r.handlers[t])
}

// RegisteredTypes returns every event type that has at least one handler.
func (r *Registry) RegisteredTypes() []EventType {
	out := make([]EventType, 0, len(r.handlers))
	for _, t := range AllEventTypes() {
		if len(r.handlers[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Clear removes every registered handler.
func (r *Registry) Clear() {
	r.handlers = make(map[EventType][]Handler)
	r.subscriptions = make(map[Handler]map[EventType]struct{})
	r.logger.Info("handler registry cleared")
}
