package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusMetrics exposes the bus counters as prometheus collectors so a long
// backtest can be observed while it runs.
type BusMetrics struct {
	EventsPublished  prometheus.Counter
	HandlersExecuted prometheus.Counter
	HandlerErrors    prometheus.Counter
}

// NewBusMetrics creates and registers the bus collectors with reg.
func NewBusMetrics(reg prometheus.Registerer) *BusMetrics {
	factory := promauto.With(reg)
	return &BusMetrics{
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "backtester",
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Total number of events published on the bus.",
		}),
		HandlersExecuted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "backtester",
			Subsystem: "bus",
			Name:      "handlers_executed_total",
			Help:      "Total number of successful handler invocations.",
		}),
		HandlerErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "backtester",
			Subsystem: "bus",
			Name:      "handler_errors_total",
			Help:      "Total number of handler invocations that failed or panicked.",
		}),
	}
}
