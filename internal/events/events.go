// Package events provides the event taxonomy, handler registry, and
// synchronous event bus that form the backbone of the backtesting system.
// Components never reference each other directly; they communicate only by
// publishing and receiving typed events through the bus.
package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies which variant of the event taxonomy an event is.
type EventType string

const (
	EventTypeMarket    EventType = "market"
	EventTypeSignal    EventType = "signal"
	EventTypeOrder     EventType = "order"
	EventTypeFill      EventType = "fill"
	EventTypePortfolio EventType = "portfolio"
	EventTypeBacktest  EventType = "backtest"
	EventTypeError     EventType = "error"
)

// AllEventTypes returns the closed set of event types.
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeMarket,
		EventTypeSignal,
		EventTypeOrder,
		EventTypeFill,
		EventTypePortfolio,
		EventTypeBacktest,
		EventTypeError,
	}
}

// Valid reports whether t is a member of the closed event type set.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeMarket, EventTypeSignal, EventTypeOrder, EventTypeFill,
		EventTypePortfolio, EventTypeBacktest, EventTypeError:
		return true
	}
	return false
}

// SignalType classifies a trading signal.
type SignalType string

const (
	SignalLong  SignalType = "LONG"
	SignalShort SignalType = "SHORT"
	SignalExit  SignalType = "EXIT"
)

// OrderType classifies how an order should be executed.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Direction is the side of an order or fill.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Event is the interface shared by every event variant. The set of
// implementations is closed: dispatch sites switch exhaustively on GetType.
type Event interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetID() string
}

// BaseEvent provides the discriminant, timestamp, and ID common to all events.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *BaseEvent) GetType() EventType      { return e.Type }
func (e *BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e *BaseEvent) GetID() string           { return e.ID }

func newBaseEvent(t EventType, ts time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: ts,
	}
}

// Bar holds OHLCV data for a single period.
type Bar struct {
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// MarketEvent indicates a new market data update for a symbol.
type MarketEvent struct {
	BaseEvent
	Symbol string `json:"symbol"`
	Bar    Bar    `json:"bar"`
}

// NewMarketEvent creates a MarketEvent, validating its constraints.
func NewMarketEvent(symbol string, ts time.Time, bar Bar) (*MarketEvent, error) {
	if err := validateSymbolAndTime(symbol, ts); err != nil {
		return nil, err
	}
	return &MarketEvent{
		BaseEvent: newBaseEvent(EventTypeMarket, ts),
		Symbol:    symbol,
		Bar:       bar,
	}, nil
}

// SignalEvent carries a signal emitted by a strategy.
type SignalEvent struct {
	BaseEvent
	Symbol string     `json:"symbol"`
	Signal SignalType `json:"signal"`
}

// NewSignalEvent creates a SignalEvent, validating its constraints.
func NewSignalEvent(symbol string, ts time.Time, signal SignalType) (*SignalEvent, error) {
	if err := validateSymbolAndTime(symbol, ts); err != nil {
		return nil, err
	}
	switch signal {
	case SignalLong, SignalShort, SignalExit:
	default:
		return nil, fmt.Errorf("invalid signal type %q", signal)
	}
	return &SignalEvent{
		BaseEvent: newBaseEvent(EventTypeSignal, ts),
		Symbol:    symbol,
		Signal:    signal,
	}, nil
}

// OrderEvent carries an order to be submitted to an execution system.
// Price is set only for limit orders.
type OrderEvent struct {
	BaseEvent
	Symbol    string           `json:"symbol"`
	OrderType OrderType        `json:"order_type"`
	Direction Direction        `json:"direction"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// NewOrderEvent creates an OrderEvent, validating its constraints.
func NewOrderEvent(symbol string, ts time.Time, orderType OrderType, direction Direction, quantity decimal.Decimal, price *decimal.Decimal) (*OrderEvent, error) {
	if err := validateSymbolAndTime(symbol, ts); err != nil {
		return nil, err
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("order quantity must be non-negative, got %s", quantity)
	}
	return &OrderEvent{
		BaseEvent: newBaseEvent(EventTypeOrder, ts),
		Symbol:    symbol,
		OrderType: orderType,
		Direction: direction,
		Quantity:  quantity,
		Price:     price,
	}, nil
}

// FillEvent encapsulates an order that has been executed.
type FillEvent struct {
	BaseEvent
	Symbol     string          `json:"symbol"`
	Exchange   string          `json:"exchange"`
	Quantity   decimal.Decimal `json:"quantity"`
	Direction  Direction       `json:"direction"`
	FillCost   decimal.Decimal `json:"fill_cost"`
	Commission decimal.Decimal `json:"commission"`
}

// NewFillEvent creates a FillEvent, validating its constraints.
func NewFillEvent(symbol, exchange string, ts time.Time, quantity decimal.Decimal, direction Direction, fillCost, commission decimal.Decimal) (*FillEvent, error) {
	if err := validateSymbolAndTime(symbol, ts); err != nil {
		return nil, err
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("fill quantity must be non-negative, got %s", quantity)
	}
	return &FillEvent{
		BaseEvent:  newBaseEvent(EventTypeFill, ts),
		Symbol:     symbol,
		Exchange:   exchange,
		Quantity:   quantity,
		Direction:  direction,
		FillCost:   fillCost,
		Commission: commission,
	}, nil
}

// PortfolioEvent is a snapshot of portfolio state after an update.
type PortfolioEvent struct {
	BaseEvent
	TotalValue decimal.Decimal            `json:"total_value"`
	Cash       decimal.Decimal            `json:"cash"`
	Positions  map[string]decimal.Decimal `json:"positions"`
}

// NewPortfolioEvent creates a PortfolioEvent snapshot.
func NewPortfolioEvent(ts time.Time, totalValue, cash decimal.Decimal, positions map[string]decimal.Decimal) (*PortfolioEvent, error) {
	if ts.IsZero() {
		return nil, fmt.Errorf("event timestamp must be set")
	}
	snapshot := make(map[string]decimal.Decimal, len(positions))
	for symbol, qty := range positions {
		snapshot[symbol] = qty
	}
	return &PortfolioEvent{
		BaseEvent:  newBaseEvent(EventTypePortfolio, ts),
		TotalValue: totalValue,
		Cash:       cash,
		Positions:  snapshot,
	}, nil
}

// BacktestAction identifies a backtest lifecycle transition.
type BacktestAction string

const (
	BacktestStarted  BacktestAction = "started"
	BacktestFinished BacktestAction = "finished"
)

// BacktestEvent marks a backtest lifecycle transition.
type BacktestEvent struct {
	BaseEvent
	Action  BacktestAction `json:"action"`
	Message string         `json:"message,omitempty"`
}

// NewBacktestEvent creates a BacktestEvent.
func NewBacktestEvent(ts time.Time, action BacktestAction, message string) (*BacktestEvent, error) {
	if ts.IsZero() {
		return nil, fmt.Errorf("event timestamp must be set")
	}
	return &BacktestEvent{
		BaseEvent: newBaseEvent(EventTypeBacktest, ts),
		Action:    action,
		Message:   message,
	}, nil
}

// ErrorEvent reports a non-fatal failure from a component.
type ErrorEvent struct {
	BaseEvent
	Source  string            `json:"source"`
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewErrorEvent creates an ErrorEvent.
func NewErrorEvent(ts time.Time, source, kind, message string, details map[string]string) (*ErrorEvent, error) {
	if ts.IsZero() {
		return nil, fmt.Errorf("event timestamp must be set")
	}
	return &ErrorEvent{
		BaseEvent: newBaseEvent(EventTypeError, ts),
		Source:    source,
		Kind:      kind,
		Message:   message,
		Details:   details,
	}, nil
}

func validateSymbolAndTime(symbol string, ts time.Time) error {
	if symbol == "" {
		return fmt.Errorf("event symbol must be non-empty")
	}
	if ts.IsZero() {
		return fmt.Errorf("event timestamp must be set")
	}
	return nil
}
