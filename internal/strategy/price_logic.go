package strategy

import (
	"go.uber.org/zap"

	"github.com/strats-center/backtester/internal/data"
	"github.com/strats-center/backtester/internal/events"
)

// PriceLogic is a minimal open/close momentum rule: a green bar goes long,
// a red bar exits. Useful as a smoke-test strategy for the event pipeline.
type PriceLogic struct {
	logger *zap.Logger
}

// NewPriceLogic creates the open/close price logic.
func NewPriceLogic(logger *zap.Logger) *PriceLogic {
	return &PriceLogic{logger: logger}
}

// CalculateSignal returns LONG when the bar closed above its open, EXIT when
// it closed below, and no signal on an unchanged close.
func (l *PriceLogic) CalculateSignal(event *events.MarketEvent, _ []data.Series) (events.SignalType, bool) {
	open := event.Bar.Open
	closePrice := event.Bar.Close

	switch {
	case closePrice.GreaterThan(open):
		l.logger.Debug("bar closed up, going long",
			zap.String("symbol", event.Symbol),
			zap.String("open", open.String()),
			zap.String("close", closePrice.String()),
		)
		return events.SignalLong, true
	case closePrice.LessThan(open):
		l.logger.Debug("bar closed down, exiting",
			zap.String("symbol", event.Symbol),
			zap.String("open", open.String()),
			zap.String("close", closePrice.String()),
		)
		return events.SignalExit, true
	default:
		return "", false
	}
}
