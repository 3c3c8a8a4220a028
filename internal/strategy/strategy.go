// Package strategy provides the strategy handler framework and concrete
// signal logic implementations.
package strategy

import (
	"go.uber.org/zap"

	"github.com/strats-center/backtester/internal/data"
	"github.com/strats-center/backtester/internal/events"
)

// defaultMaxHistory caps the per-symbol bar cache.
const defaultMaxHistory = 1000

// Publisher is the bus surface a strategy needs to emit signals.
type Publisher interface {
	Publish(event events.Event)
}

// Logic is the signal calculation a concrete strategy plugs into the
// handler framework. The boolean reports whether a signal was generated.
type Logic interface {
	CalculateSignal(event *events.MarketEvent, bars []data.Series) (events.SignalType, bool)
}

// Config configures a strategy handler.
type Config struct {
	Name       string
	Symbols    []string
	MaxHistory int // per-symbol bar cache size; defaults to 1000
}

// Strategy is an event handler that consumes market events for its symbols,
// maintains a rolling bar cache, and publishes the signals its Logic
// produces back through the bus.
type Strategy struct {
	logger *zap.Logger
	bus    Publisher
	logic  Logic

	name       string
	symbols    map[string]struct{}
	maxHistory int

	bars        map[string][]data.Series
	lastSignals map[string]*events.SignalEvent
	active      bool
}

// New creates a strategy handler around the given signal logic.
func New(logger *zap.Logger, bus Publisher, logic Logic, cfg Config) *Strategy {
	symbols := make(map[string]struct{}, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols[s] = struct{}{}
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}

	logger.Info("strategy initialized",
		zap.String("strategy", cfg.Name),
		zap.Strings("symbols", cfg.Symbols),
	)
	return &Strategy{
		logger:      logger,
		bus:         bus,
		logic:       logic,
		name:        cfg.Name,
		symbols:     symbols,
		maxHistory:  maxHistory,
		bars:        make(map[string][]data.Series),
		lastSignals: make(map[string]*events.SignalEvent),
		active:      true,
	}
}

// Name identifies the handler in logs and error messages.
func (s *Strategy) Name() string { return s.name }

// SupportedTypes returns the event types the strategy subscribes to.
func (s *Strategy) SupportedTypes() []events.EventType {
	return []events.EventType{events.EventTypeMarket}
}

// Handle processes a market event for one of the strategy's symbols,
// updating the bar cache and publishing a signal when the logic produces
// one. Events for other symbols, and all events while deactivated, are
// ignored.
func (s *Strategy) Handle(event events.Event) error {
	if !s.active {
		return nil
	}

	market, ok := event.(*events.MarketEvent)
	if !ok {
		s.logger.Warn("strategy received unsupported event",
			zap.String("strategy", s.name),
			zap.String("event_type", string(event.GetType())),
		)
		return nil
	}
	if _, watched := s.symbols[market.Symbol]; !watched {
		return nil
	}

	s.cacheBar(market)

	signalType, generated := s.logic.CalculateSignal(market, s.bars[market.Symbol])
	if !generated {
		return nil
	}

	signal, err := events.NewSignalEvent(market.Symbol, market.GetTimestamp(), signalType)
	if err != nil {
		return err
	}
	s.lastSignals[market.Symbol] = signal

	s.logger.Info("strategy emitting signal",
		zap.String("strategy", s.name),
		zap.String("symbol", market.Symbol),
		zap.String("signal", string(signalType)),
	)
	s.bus.Publish(signal)
	return nil
}

func (s *Strategy) cacheBar(market *events.MarketEvent) {
	cached := append(s.bars[market.Symbol], data.Series{
		Timestamp: market.GetTimestamp(),
		Bar:       market.Bar,
	})
	if len(cached) > s.maxHistory {
		cached = cached[len(cached)-s.maxHistory:]
	}
	s.bars[market.Symbol] = cached
}

// Bars returns up to n of the most recent cached bars for a symbol, oldest
// first.
func (s *Strategy) Bars(symbol string, n int) []data.Series {
	cached := s.bars[symbol]
	if n <= 0 || len(cached) == 0 {
		return nil
	}
	if n > len(cached) {
		n = len(cached)
	}
	out := make([]data.Series, n)
	copy(out, cached[len(cached)-n:])
	return out
}

// LastSignal returns the most recent signal emitted for a symbol, or nil.
func (s *Strategy) LastSignal(symbol string) *events.SignalEvent {
	return s.lastSignals[symbol]
}

// Reset clears the bar cache and signal history.
func (s *Strategy) Reset() {
	s.bars = make(map[string][]data.Series)
	s.lastSignals = make(map[string]*events.SignalEvent)
	s.logger.Info("strategy reset", zap.String("strategy", s.name))
}

// Activate resumes event processing.
func (s *Strategy) Activate() { s.active = true }

// Deactivate makes the strategy ignore events until reactivated.
func (s *Strategy) Deactivate() { s.active = false }

// IsActive reports whether the strategy is processing events.
func (s *Strategy) IsActive() bool { return s.active }
