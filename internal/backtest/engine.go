// Package backtest drives the event loop of a simulated trading run and
// fills the orders it produces.
package backtest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/strats-center/backtester/internal/data"
	"github.com/strats-center/backtester/internal/events"
)

// State describes where the engine is in its lifecycle.
type State string

const (
	// StateIdle means Run has not been called yet.
	StateIdle State = "idle"
	// StateRunning means the engine is advancing the data feed.
	StateRunning State = "running"
	// StateFinished means the data feed was fully consumed.
	StateFinished State = "finished"
	// StateCancelled means the run was stopped before exhausting the feed.
	StateCancelled State = "cancelled"
)

// Finalizer receives exactly one callback after a run consumes the whole
// data feed. Cancelled runs do not finalize.
type Finalizer interface {
	Finalize()
}

// Engine drives the simulation: each cycle advances the data feed by one
// bar, then drains the produced market events into the bus, where the
// registered handler chain reacts synchronously. The run ends when the feed
// is exhausted and the local queue is empty.
type Engine struct {
	logger      *zap.Logger
	bus         Publisher
	dataHandler data.Handler
	finalizer   Finalizer

	state         State
	barsProcessed int
	eventsPub     int
}

// NewEngine creates a simulation engine. The finalizer may be nil.
func NewEngine(logger *zap.Logger, bus Publisher, dataHandler data.Handler, finalizer Finalizer) *Engine {
	return &Engine{
		logger:      logger,
		bus:         bus,
		dataHandler: dataHandler,
		finalizer:   finalizer,
		state:       StateIdle,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

// BarsProcessed returns the number of data feed cycles completed so far.
func (e *Engine) BarsProcessed() int { return e.barsProcessed }

// Run executes the simulation to completion. It returns the context error
// when cancelled mid-run; a cancelled run skips finalization so partial
// results are never reported as final.
func (e *Engine) Run(ctx context.Context) error {
	e.state = StateRunning
	started := time.Now().UTC()
	e.logger.Info("backtest starting")
	e.publishLifecycle(started, events.BacktestStarted, "backtest run starting")

	for !e.dataHandler.Exhausted() {
		select {
		case <-ctx.Done():
			e.state = StateCancelled
			e.logger.Warn("backtest cancelled",
				zap.Int("bars_processed", e.barsProcessed),
				zap.Error(ctx.Err()),
			)
			return ctx.Err()
		default:
		}

		e.dataHandler.UpdateBars()
		queued := e.dataHandler.Drain()
		if len(queued) == 0 {
			continue
		}

		e.barsProcessed++
		for _, market := range queued {
			e.bus.Publish(market)
			e.eventsPub++
		}
	}

	e.state = StateFinished
	e.publishLifecycle(time.Now().UTC(), events.BacktestFinished, "data feed exhausted")
	e.logger.Info("backtest finished",
		zap.Int("bars_processed", e.barsProcessed),
		zap.Int("market_events_published", e.eventsPub),
		zap.Duration("elapsed", time.Since(started)),
	)

	if e.finalizer != nil {
		e.finalizer.Finalize()
	}
	return nil
}

func (e *Engine) publishLifecycle(ts time.Time, action events.BacktestAction, message string) {
	event, err := events.NewBacktestEvent(ts, action, message)
	if err != nil {
		e.logger.Error("failed to build lifecycle event", zap.Error(err))
		return
	}
	e.bus.Publish(event)
}
