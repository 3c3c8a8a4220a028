// Package sizing determines order quantities for trading signals.
package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/strats-center/backtester/internal/data"
	"github.com/strats-center/backtester/internal/events"
)

// dust is the quantity below which an order is not worth placing.
var dust = decimal.New(1, -8)

// PositionProvider exposes the current position for a symbol.
type PositionProvider interface {
	PositionSize(symbol string) decimal.Decimal
}

// Sizer computes the quantity for an order created from a signal. A zero
// result means no order should be placed.
type Sizer interface {
	Quantity(signal *events.SignalEvent, positions PositionProvider, dataHandler data.Handler) decimal.Decimal
}

// FixedQuantitySizer sizes every entry with the same fixed quantity. Exit
// signals are sized to close the full current position.
type FixedQuantitySizer struct {
	logger          *zap.Logger
	defaultQuantity decimal.Decimal
}

// NewFixedQuantitySizer creates a fixed-quantity sizer. The quantity must be
// positive.
func NewFixedQuantitySizer(logger *zap.Logger, quantity decimal.Decimal) (*FixedQuantitySizer, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("fixed quantity must be positive, got %s", quantity)
	}
	logger.Info("fixed quantity sizer initialized",
		zap.String("quantity", quantity.String()),
	)
	return &FixedQuantitySizer{
		logger:          logger,
		defaultQuantity: quantity,
	}, nil
}

// Quantity returns the fixed quantity for LONG/SHORT signals and the
// absolute current position for EXIT signals.
func (s *FixedQuantitySizer) Quantity(signal *events.SignalEvent, positions PositionProvider, _ data.Handler) decimal.Decimal {
	switch signal.Signal {
	case events.SignalExit:
		current := positions.PositionSize(signal.Symbol)
		qty := current.Abs()
		if qty.LessThan(dust) {
			s.logger.Debug("exit signal with no open position",
				zap.String("symbol", signal.Symbol),
			)
			return decimal.Zero
		}
		return qty

	case events.SignalLong, events.SignalShort:
		return s.defaultQuantity

	default:
		s.logger.Warn("unknown signal type, sizing to zero",
			zap.String("symbol", signal.Symbol),
			zap.String("signal", string(signal.Signal)),
		)
		return decimal.Zero
	}
}
