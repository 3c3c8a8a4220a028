// Package portfolio tracks simulated cash and positions from fill events.
package portfolio

import (
	"go.uber.org/zap"

	"github.com/shopspring/decimal"

	"github.com/strats-center/backtester/internal/data"
	"github.com/strats-center/backtester/internal/events"
)

// dust is the position size below which a holding is treated as flat.
var dust = decimal.New(1, -8)

// Publisher is the bus surface the portfolio needs to emit snapshots.
type Publisher interface {
	Publish(event events.Event)
}

// Portfolio is an event handler that applies fills to a simulated ledger of
// cash and positions. After every fill it publishes a PortfolioEvent
// snapshot; at the end of a backtest it reports the final summary.
type Portfolio struct {
	logger      *zap.Logger
	bus         Publisher
	dataHandler data.Handler

	initialCapital decimal.Decimal
	cash           decimal.Decimal
	positions      map[string]decimal.Decimal
}

// New creates a portfolio with the given starting capital.
func New(logger *zap.Logger, bus Publisher, dataHandler data.Handler, initialCapital decimal.Decimal) *Portfolio {
	logger.Info("portfolio initialized",
		zap.String("initial_capital", initialCapital.String()),
	)
	return &Portfolio{
		logger:         logger,
		bus:            bus,
		dataHandler:    dataHandler,
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]decimal.Decimal),
	}
}

// Name identifies the handler in logs and error messages.
func (p *Portfolio) Name() string { return "portfolio" }

// SupportedTypes returns the event types the portfolio subscribes to.
func (p *Portfolio) SupportedTypes() []events.EventType {
	return []events.EventType{events.EventTypeFill}
}

// Handle applies a fill event to the ledger. Other event types are logged
// and ignored.
func (p *Portfolio) Handle(event events.Event) error {
	fill, ok := event.(*events.FillEvent)
	if !ok {
		p.logger.Warn("portfolio received unsupported event",
			zap.String("event_type", string(event.GetType())),
		)
		return nil
	}

	p.applyFill(fill)
	return nil
}

func (p *Portfolio) applyFill(fill *events.FillEvent) {
	switch fill.Direction {
	case events.DirectionBuy:
		p.positions[fill.Symbol] = p.positions[fill.Symbol].Add(fill.Quantity)
		p.cash = p.cash.Sub(fill.FillCost).Sub(fill.Commission)
	case events.DirectionSell:
		p.positions[fill.Symbol] = p.positions[fill.Symbol].Sub(fill.Quantity)
		p.cash = p.cash.Add(fill.FillCost).Sub(fill.Commission)
	default:
		p.logger.Warn("fill with unknown direction ignored",
			zap.String("symbol", fill.Symbol),
			zap.String("direction", string(fill.Direction)),
		)
		return
	}

	p.logger.Info("portfolio updated",
		zap.String("symbol", fill.Symbol),
		zap.String("direction", string(fill.Direction)),
		zap.String("quantity", fill.Quantity.String()),
		zap.String("fill_cost", fill.FillCost.String()),
		zap.String("commission", fill.Commission.String()),
		zap.String("cash", p.cash.String()),
	)

	p.publishSnapshot(fill)
}

// publishSnapshot emits a PortfolioEvent reflecting the post-fill state.
// Having no subscriber for it is a normal, benign condition.
func (p *Portfolio) publishSnapshot(fill *events.FillEvent) {
	snapshot, err := events.NewPortfolioEvent(fill.GetTimestamp(), p.totalValue(), p.cash, p.positions)
	if err != nil {
		p.logger.Error("failed to build portfolio snapshot", zap.Error(err))
		return
	}
	p.bus.Publish(snapshot)
}

// totalValue is cash plus the market value of open positions at the latest
// known prices.
func (p *Portfolio) totalValue() decimal.Decimal {
	total := p.cash
	for symbol, qty := range p.positions {
		if qty.Abs().LessThan(dust) {
			continue
		}
		price, ok := p.dataHandler.LatestPrice(symbol)
		if !ok {
			p.logger.Warn("no price available for open position",
				zap.String("symbol", symbol),
			)
			continue
		}
		total = total.Add(qty.Mul(price))
	}
	return total
}

// PositionSize returns the current position for a symbol; zero when flat.
func (p *Portfolio) PositionSize(symbol string) decimal.Decimal {
	return p.positions[symbol]
}

// Cash returns the currently available cash.
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// Finalize logs the end-of-backtest summary. The simulation driver calls it
// exactly once, after the data feed is exhausted.
func (p *Portfolio) Finalize() {
	holdings := decimal.Zero
	openPositions := 0
	for symbol, qty := range p.positions {
		if qty.Abs().LessThan(dust) {
			continue
		}
		openPositions++
		price, ok := p.dataHandler.LatestPrice(symbol)
		if !ok {
			p.logger.Warn("no final price for open position, valuing at zero",
				zap.String("symbol", symbol),
			)
			continue
		}
		value := qty.Mul(price)
		holdings = holdings.Add(value)
		p.logger.Info("open position",
			zap.String("symbol", symbol),
			zap.String("quantity", qty.String()),
			zap.String("last_price", price.String()),
			zap.String("market_value", value.String()),
		)
	}

	total := p.cash.Add(holdings)
	pnl := total.Sub(p.initialCapital)
	pnlPct := decimal.Zero
	if !p.initialCapital.IsZero() {
		pnlPct = pnl.Div(p.initialCapital).Mul(decimal.NewFromInt(100))
	}

	p.logger.Info("backtest summary",
		zap.String("initial_capital", p.initialCapital.String()),
		zap.String("final_cash", p.cash.String()),
		zap.String("holdings_value", holdings.String()),
		zap.String("total_value", total.String()),
		zap.String("pnl", pnl.String()),
		zap.String("pnl_pct", pnlPct.StringFixed(2)),
		zap.Int("open_positions", openPositions),
	)
}
