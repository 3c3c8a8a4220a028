package backtest

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/strats-center/backtester/internal/data"
	"github.com/strats-center/backtester/internal/events"
)

// exchangeName is the exchange reported on simulated fills.
const exchangeName = "SIMULATED"

// CommissionType selects how commission is charged on a fill.
type CommissionType string

const (
	// CommissionPercentage charges rate * fill cost.
	CommissionPercentage CommissionType = "percentage"
	// CommissionFixed charges a flat rate per fill.
	CommissionFixed CommissionType = "fixed"
)

// CommissionModel describes the commission charged by the simulated broker.
type CommissionModel struct {
	Type CommissionType
	Rate decimal.Decimal
}

// Publisher is the bus surface the broker needs to emit fills.
type Publisher interface {
	Publish(event events.Event)
}

// SimulatedBroker is an event handler that fills market orders at the latest
// known close price. Limit orders are not supported and are dropped with a
// warning.
type SimulatedBroker struct {
	logger      *zap.Logger
	bus         Publisher
	dataHandler data.Handler
	commission  CommissionModel
}

// NewSimulatedBroker creates a simulated broker with the given commission
// model.
func NewSimulatedBroker(logger *zap.Logger, bus Publisher, dataHandler data.Handler, commission CommissionModel) *SimulatedBroker {
	logger.Info("simulated broker initialized",
		zap.String("commission_type", string(commission.Type)),
		zap.String("commission_rate", commission.Rate.String()),
	)
	return &SimulatedBroker{
		logger:      logger,
		bus:         bus,
		dataHandler: dataHandler,
		commission:  commission,
	}
}

// Name identifies the handler in logs and error messages.
func (b *SimulatedBroker) Name() string { return "simulated-broker" }

// SupportedTypes returns the event types the broker subscribes to.
func (b *SimulatedBroker) SupportedTypes() []events.EventType {
	return []events.EventType{events.EventTypeOrder}
}

// Handle fills a market order at the latest close price and publishes the
// resulting fill event. Orders that cannot be filled produce an error event
// instead of failing the handler.
func (b *SimulatedBroker) Handle(event events.Event) error {
	order, ok := event.(*events.OrderEvent)
	if !ok {
		b.logger.Warn("broker received unsupported event",
			zap.String("event_type", string(event.GetType())),
		)
		return nil
	}

	if order.OrderType != events.OrderTypeMarket {
		b.logger.Warn("only market orders are supported, order dropped",
			zap.String("symbol", order.Symbol),
			zap.String("order_type", string(order.OrderType)),
		)
		return nil
	}

	price, ok := b.dataHandler.LatestPrice(order.Symbol)
	if !ok {
		b.logger.Error("no price available to fill order",
			zap.String("symbol", order.Symbol),
		)
		b.publishError(order, "no price available for symbol")
		return nil
	}

	fillCost := order.Quantity.Mul(price)
	commission := b.calculateCommission(fillCost)

	fill, err := events.NewFillEvent(order.Symbol, exchangeName, order.GetTimestamp(),
		order.Quantity, order.Direction, fillCost, commission)
	if err != nil {
		return err
	}

	b.logger.Info("order filled",
		zap.String("symbol", fill.Symbol),
		zap.String("direction", string(fill.Direction)),
		zap.String("quantity", fill.Quantity.String()),
		zap.String("price", price.String()),
		zap.String("fill_cost", fill.FillCost.String()),
		zap.String("commission", fill.Commission.String()),
	)
	b.bus.Publish(fill)
	return nil
}

func (b *SimulatedBroker) calculateCommission(fillCost decimal.Decimal) decimal.Decimal {
	switch b.commission.Type {
	case CommissionPercentage:
		return fillCost.Mul(b.commission.Rate)
	case CommissionFixed:
		return b.commission.Rate
	default:
		b.logger.Warn("unknown commission type, charging nothing",
			zap.String("commission_type", string(b.commission.Type)),
		)
		return decimal.Zero
	}
}

func (b *SimulatedBroker) publishError(order *events.OrderEvent, message string) {
	errEvent, err := events.NewErrorEvent(order.GetTimestamp(), b.Name(), "fill_failed", message,
		map[string]string{
			"symbol":    order.Symbol,
			"direction": string(order.Direction),
			"quantity":  order.Quantity.String(),
		})
	if err != nil {
		b.logger.Error("failed to build error event", zap.Error(err))
		return
	}
	b.bus.Publish(errEvent)
}
