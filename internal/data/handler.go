// Package data provides market data handlers for the backtesting system.
// A handler advances one bar at a time and queues MarketEvents for the
// simulation driver to publish.
package data

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/strats-center/backtester/internal/events"
)

// Series is a single timestamped bar of market data.
type Series struct {
	Timestamp time.Time
	Bar       events.Bar
}

// Handler is the data source contract consumed by the simulation driver.
// UpdateBars advances the feed one step, queueing zero or more MarketEvents;
// it is an idempotent no-op once the feed is exhausted.
type Handler interface {
	UpdateBars()
	Exhausted() bool

	// Drain removes and returns the queued events in enqueue order.
	Drain() []*events.MarketEvent

	// LatestBars returns up to n of the most recently consumed bars.
	LatestBars(n int) []Series

	// LatestPrice returns the close of the most recent bar for a symbol.
	LatestPrice(symbol string) (decimal.Decimal, bool)
}

// HistoricCSV replays a pre-loaded series of bars for one symbol, one bar
// per UpdateBars call.
type HistoricCSV struct {
	logger *zap.Logger
	symbol string
	series []Series

	cursor    int
	exhausted bool
	latest    []Series
	queue     []*events.MarketEvent
}

// NewHistoricCSV creates a data handler over an already-loaded bar series.
func NewHistoricCSV(logger *zap.Logger, symbol string, series []Series) *HistoricCSV {
	logger.Info("historic data handler initialized",
		zap.String("symbol", symbol),
		zap.Int("bars", len(series)),
	)
	return &HistoricCSV{
		logger: logger,
		symbol: symbol,
		series: series,
	}
}

// UpdateBars consumes the next bar and queues a MarketEvent for it. Once the
// series is exhausted the call is a no-op.
func (h *HistoricCSV) UpdateBars() {
	if h.exhausted {
		return
	}
	if h.cursor >= len(h.series) {
		h.exhausted = true
		h.logger.Info("data feed exhausted",
			zap.String("symbol", h.symbol),
			zap.Int("bars", len(h.series)),
		)
		return
	}

	s := h.series[h.cursor]
	h.cursor++
	h.latest = append(h.latest, s)

	evt, err := events.NewMarketEvent(h.symbol, s.Timestamp, s.Bar)
	if err != nil {
		h.logger.Error("skipping invalid bar",
			zap.String("symbol", h.symbol),
			zap.Time("timestamp", s.Timestamp),
			zap.Error(err),
		)
		return
	}
	h.queue = append(h.queue, evt)
}

// Exhausted reports whether the feed has been fully consumed.
func (h *HistoricCSV) Exhausted() bool { return h.exhausted }

// Drain removes and returns the queued events in enqueue order.
func (h *HistoricCSV) Drain() []*events.MarketEvent {
	out := h.queue
	h.queue = nil
	return out
}

// LatestBars returns up to n of the most recently consumed bars, oldest
// first. Fewer than n are returned when not enough bars have been consumed.
func (h *HistoricCSV) LatestBars(n int) []Series {
	if n <= 0 || len(h.latest) == 0 {
		return nil
	}
	if n > len(h.latest) {
		n = len(h.latest)
	}
	out := make([]Series, n)
	copy(out, h.latest[len(h.latest)-n:])
	return out
}

// LatestPrice returns the close of the most recent bar for the handler's
// symbol, or false when no bar has been consumed yet or the symbol is not
// served by this handler.
func (h *HistoricCSV) LatestPrice(symbol string) (decimal.Decimal, bool) {
	if symbol != h.symbol || len(h.latest) == 0 {
		return decimal.Decimal{}, false
	}
	return h.latest[len(h.latest)-1].Bar.Close, true
}
