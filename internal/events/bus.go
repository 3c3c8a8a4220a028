package events

import (
	"errors"

	"go.uber.org/zap"
)

// BusStats is a snapshot of the bus counters and history occupancy.
type BusStats struct {
	EventsPublished  int64 `json:"events_published"`
	HandlersExecuted int64 `json:"handlers_executed"`
	HandlerErrors    int64 `json:"handler_errors"`
	HistorySize      int   `json:"history_size"`
	MaxHistory       int   `json:"max_history"`
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithMaxHistory bounds the event history to the most recent n events.
// The oldest event is evicted first. n == 0 retains the full publish
// sequence unbounded.
func WithMaxHistory(n int) BusOption {
	return func(b *Bus) { b.maxHistory = n }
}

// WithMetrics mirrors the bus counters onto prometheus collectors.
func WithMetrics(m *BusMetrics) BusOption {
	return func(b *Bus) { b.metrics = m }
}

// Bus is a synchronous, in-process event bus. Publish invokes every handler
// subscribed to the event's type in registration order, on the caller's
// stack, before returning.
//
// Handlers may publish further events from inside Handle; such nested
// publishes run to full completion (including their own cascades) before the
// outer handler resumes, so history records the depth-first, left-to-right
// dispatch order. Cascades consume call-stack frames: a market bar typically
// triggers a handful of nested publishes, well within goroutine stack limits,
// but unbounded mutual recursion between handlers will eventually overflow.
//
// The bus is not safe for concurrent publishers. The backtesting core is
// single-threaded; multiple producer goroutines must funnel through a single
// caller to preserve the ordering and isolation guarantees. An internal lock
// is deliberately absent because a reentrant publish would deadlock on it.
type Bus struct {
	registry *Registry
	logger   *zap.Logger
	metrics  *BusMetrics

	maxHistory int
	history    []Event

	eventsPublished  int64
	handlersExecuted int64
	handlerErrors    int64
}

// NewBus creates an event bus backed by the given registry.
func NewBus(registry *Registry, logger *zap.Logger, opts ...BusOption) *Bus {
	b := &Bus{
		registry: registry,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	logger.Info("event bus initialized", zap.Int("max_history", b.maxHistory))
	return b
}

// Publish distributes an event to every handler registered for its type.
// A nil event is logged and ignored. Handler failures (returned errors and
// panics) are isolated: they are logged, counted, and never interrupt the
// remaining handlers. No error of any kind escapes Publish.
func (b *Bus) Publish(event Event) {
	if event == nil {
		b.logger.Warn("attempted to publish a nil event")
		return
	}

	b.eventsPublished++
	if b.metrics != nil {
		b.metrics.EventsPublished.Inc()
	}
	b.appendHistory(event)

	b.logger.Debug("publishing event",
		zap.String("event_type", string(event.GetType())),
		zap.Int64("seq", b.eventsPublished),
	)

	handlers, err := b.registry.HandlersFor(event.GetType())
	if err != nil {
		var notFound *HandlerNotFoundError
		if errors.As(err, &notFound) {
			// No subscribers is a normal outcome, not an error.
			b.logger.Debug("no handlers registered for event type",
				zap.String("event_type", string(event.GetType())),
			)
			return
		}
		b.logger.Error("handler lookup failed",
			zap.String("event_type", string(event.GetType())),
			zap.Error(err),
		)
		return
	}

	for _, handler := range handlers {
		b.dispatch(handler, event)
	}
}

// dispatch invokes one handler, isolating returned errors and panics.
func (b *Bus) dispatch(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerErrors++
			if b.metrics != nil {
				b.metrics.HandlerErrors.Inc()
			}
			b.logger.Error("handler panicked",
				zap.String("handler", handler.Name()),
				zap.String("event_type", string(event.GetType())),
				zap.Any("panic", r),
			)
		}
	}()

	if err := handler.Handle(event); err != nil {
		b.handlerErrors++
		if b.metrics != nil {
			b.metrics.HandlerErrors.Inc()
		}
		b.logger.Error("handler failed",
			zap.String("handler", handler.Name()),
			zap.String("event_type", string(event.GetType())),
			zap.Error(err),
		)
		return
	}

	b.handlersExecuted++
	if b.metrics != nil {
		b.metrics.HandlersExecuted.Inc()
	}
	b.logger.Debug("handler executed",
		zap.String("handler", handler.Name()),
		zap.String("event_type", string(event.GetType())),
	)
}

func (b *Bus) appendHistory(event Event) {
	b.history = append(b.history, event)
	if b.maxHistory > 0 && len(b.history) > b.maxHistory {
		// Shift in place so the backing array does not grow without bound.
		n := copy(b.history, b.history[len(b.history)-b.maxHistory:])
		b.history = b.history[:n]
	}
}

// History returns a copy of the retained events in publish order.
func (b *Bus) History() []Event {
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() BusStats {
	return BusStats{
		EventsPublished:  b.eventsPublished,
		HandlersExecuted: b.handlersExecuted,
		HandlerErrors:    b.handlerErrors,
		HistorySize:      len(b.history),
		MaxHistory:       b.maxHistory,
	}
}

// ClearHistory discards the retained event history.
func (b *Bus) ClearHistory() {
	b.history = nil
	b.logger.Debug("event history cleared")
}

// ResetStats zeroes the bus counters. History is untouched.
func (b *Bus) ResetStats() {
	b.eventsPublished = 0
	b.handlersExecuted = 0
	b.handlerErrors = 0
	b.logger.Debug("event bus stats reset")
}
