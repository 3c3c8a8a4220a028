// Package execution turns trading signals into orders.
package execution

import (
	"go.uber.org/zap"

	"github.com/shopspring/decimal"

	"github.com/strats-center/backtester/internal/data"
	"github.com/strats-center/backtester/internal/events"
	"github.com/strats-center/backtester/internal/sizing"
)

// dust is the quantity below which no order is created.
var dust = decimal.New(1, -8)

// Publisher is the bus surface the order manager needs.
type Publisher interface {
	Publish(event events.Event)
}

// OrderManager is an event handler that converts signal events into market
// orders. Direction is derived from the signal type and the current
// position; quantity comes from the configured sizer.
type OrderManager struct {
	logger      *zap.Logger
	bus         Publisher
	positions   sizing.PositionProvider
	dataHandler data.Handler
	sizer       sizing.Sizer
}

// NewOrderManager creates an order manager.
func NewOrderManager(logger *zap.Logger, bus Publisher, positions sizing.PositionProvider, dataHandler data.Handler, sizer sizing.Sizer) *OrderManager {
	logger.Info("order manager initialized")
	return &OrderManager{
		logger:      logger,
		bus:         bus,
		positions:   positions,
		dataHandler: dataHandler,
		sizer:       sizer,
	}
}

// Name identifies the handler in logs and error messages.
func (m *OrderManager) Name() string { return "order-manager" }

// SupportedTypes returns the event types the order manager subscribes to.
func (m *OrderManager) SupportedTypes() []events.EventType {
	return []events.EventType{events.EventTypeSignal}
}

// Handle converts a signal event into a market order and publishes it.
// Signals that require no order (already positioned, zero quantity) are
// dropped silently; unsupported event types are logged and ignored.
func (m *OrderManager) Handle(event events.Event) error {
	signal, ok := event.(*events.SignalEvent)
	if !ok {
		m.logger.Warn("order manager received unsupported event",
			zap.String("event_type", string(event.GetType())),
		)
		return nil
	}

	direction, ok := m.direction(signal)
	if !ok {
		return nil
	}

	quantity := m.sizer.Quantity(signal, m.positions, m.dataHandler)
	if quantity.LessThan(dust) {
		m.logger.Debug("sized quantity is zero, no order created",
			zap.String("symbol", signal.Symbol),
			zap.String("signal", string(signal.Signal)),
		)
		return nil
	}

	order, err := events.NewOrderEvent(signal.Symbol, signal.GetTimestamp(),
		events.OrderTypeMarket, direction, quantity, nil)
	if err != nil {
		return err
	}

	m.logger.Info("publishing order",
		zap.String("symbol", order.Symbol),
		zap.String("direction", string(order.Direction)),
		zap.String("quantity", order.Quantity.String()),
	)
	m.bus.Publish(order)
	return nil
}

// direction maps a signal type to an order direction given the current
// position. Reversals (LONG while short, SHORT while long) are not handled;
// they are logged and dropped.
func (m *OrderManager) direction(signal *events.SignalEvent) (events.Direction, bool) {
	current := m.positions.PositionSize(signal.Symbol)
	isLong := current.GreaterThan(dust)
	isShort := current.LessThan(dust.Neg())

	switch signal.Signal {
	case events.SignalLong:
		if isLong {
			m.logger.Debug("already long, signal dropped",
				zap.String("symbol", signal.Symbol),
			)
			return "", false
		}
		if isShort {
			m.logger.Warn("long signal while short, reversals are not handled",
				zap.String("symbol", signal.Symbol),
			)
			return "", false
		}
		return events.DirectionBuy, true

	case events.SignalShort:
		if isShort {
			m.logger.Debug("already short, signal dropped",
				zap.String("symbol", signal.Symbol),
			)
			return "", false
		}
		if isLong {
			m.logger.Warn("short signal while long, reversals are not handled",
				zap.String("symbol", signal.Symbol),
			)
			return "", false
		}
		return events.DirectionSell, true

	case events.SignalExit:
		if isLong {
			return events.DirectionSell, true
		}
		if isShort {
			return events.DirectionBuy, true
		}
		m.logger.Debug("exit signal while flat, signal dropped",
			zap.String("symbol", signal.Symbol),
		)
		return "", false
	}

	return "", false
}
