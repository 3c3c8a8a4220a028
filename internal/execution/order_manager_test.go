package execution

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/strats-center/backtester/internal/events"
	"github.com/strats-center/backtester/internal/sizing"
)

// capturingBus records every event published through it.
type capturingBus struct {
	published []events.Event
}

func (b *capturingBus) Publish(event events.Event) {
	b.published = append(b.published, event)
}

// stubPositions returns a fixed position for every symbol.
type stubPositions struct {
	position decimal.Decimal
}

func (s *stubPositions) PositionSize(string) decimal.Decimal { return s.position }

func newTestManager(t *testing.T, position string) (*OrderManager, *capturingBus) {
	t.Helper()
	bus := &capturingBus{}
	sizer, err := sizing.NewFixedQuantitySizer(zap.NewNop(), decimal.NewFromInt(1))
	require.NoError(t, err)
	positions := &stubPositions{position: decimal.RequireFromString(position)}
	m := NewOrderManager(zap.NewNop(), bus, positions, nil, sizer)
	return m, bus
}

func signalEvent(t *testing.T, signalType events.SignalType) *events.SignalEvent {
	t.Helper()
	s, err := events.NewSignalEvent("BTCUSDT", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), signalType)
	require.NoError(t, err)
	return s
}

func TestLongSignalWhileFlatCreatesBuyOrder(t *testing.T) {
	m, bus := newTestManager(t, "0")

	require.NoError(t, m.Handle(signalEvent(t, events.SignalLong)))

	require.Len(t, bus.published, 1)
	order, ok := bus.published[0].(*events.OrderEvent)
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", order.Symbol)
	assert.Equal(t, events.OrderTypeMarket, order.OrderType)
	assert.Equal(t, events.DirectionBuy, order.Direction)
	assert.True(t, order.Quantity.Equal(decimal.NewFromInt(1)))
	assert.Nil(t, order.Price)
}

func TestShortSignalWhileFlatCreatesSellOrder(t *testing.T) {
	m, bus := newTestManager(t, "0")

	require.NoError(t, m.Handle(signalEvent(t, events.SignalShort)))

	require.Len(t, bus.published, 1)
	order := bus.published[0].(*events.OrderEvent)
	assert.Equal(t, events.DirectionSell, order.Direction)
}

func TestLongSignalWhileLongIsDropped(t *testing.T) {
	m, bus := newTestManager(t, "1")

	require.NoError(t, m.Handle(signalEvent(t, events.SignalLong)))
	assert.Empty(t, bus.published)
}

func TestReversalSignalsAreDropped(t *testing.T) {
	longWhileShort, bus := newTestManager(t, "-1")
	require.NoError(t, longWhileShort.Handle(signalEvent(t, events.SignalLong)))
	assert.Empty(t, bus.published)

	shortWhileLong, bus2 := newTestManager(t, "1")
	require.NoError(t, shortWhileLong.Handle(signalEvent(t, events.SignalShort)))
	assert.Empty(t, bus2.published)
}

func TestExitSignalClosesLongWithSell(t *testing.T) {
	m, bus := newTestManager(t, "2.5")

	require.NoError(t, m.Handle(signalEvent(t, events.SignalExit)))

	require.Len(t, bus.published, 1)
	order := bus.published[0].(*events.OrderEvent)
	assert.Equal(t, events.DirectionSell, order.Direction)
	assert.True(t, order.Quantity.Equal(decimal.RequireFromString("2.5")))
}

func TestExitSignalClosesShortWithBuy(t *testing.T) {
	m, bus := newTestManager(t, "-3")

	require.NoError(t, m.Handle(signalEvent(t, events.SignalExit)))

	require.Len(t, bus.published, 1)
	order := bus.published[0].(*events.OrderEvent)
	assert.Equal(t, events.DirectionBuy, order.Direction)
	assert.True(t, order.Quantity.Equal(decimal.NewFromInt(3)))
}

func TestExitSignalWhileFlatIsDropped(t *testing.T) {
	m, bus := newTestManager(t, "0")

	require.NoError(t, m.Handle(signalEvent(t, events.SignalExit)))
	assert.Empty(t, bus.published)
}

func TestUnsupportedEventsAreIgnored(t *testing.T) {
	m, bus := newTestManager(t, "0")

	market, err := events.NewMarketEvent("BTCUSDT", time.Now(), events.Bar{
		Open:  decimal.NewFromInt(100),
		Close: decimal.NewFromInt(101),
	})
	require.NoError(t, err)

	require.NoError(t, m.Handle(market))
	assert.Empty(t, bus.published)
}

func TestSupportedTypes(t *testing.T) {
	m, _ := newTestManager(t, "0")
	assert.Equal(t, []events.EventType{events.EventTypeSignal}, m.SupportedTypes())
	assert.Equal(t, "order-manager", m.Name())
}
