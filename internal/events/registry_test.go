package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingHandler collects every event it receives. Its supported type set
// can be swapped between registrations to exercise re-registration.
type recordingHandler struct {
	name     string
	types    []EventType
	received []Event
}

func (h *recordingHandler) Handle(event Event) error {
	h.received = append(h.received, event)
	return nil
}

func (h *recordingHandler) SupportedTypes() []EventType { return h.types }
func (h *recordingHandler) Name() string                { return h.name }

func newRecordingHandler(name string, types ...EventType) *recordingHandler {
	return &recordingHandler{name: name, types: types}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	h := newRecordingHandler("strategy", EventTypeMarket)

	require.NoError(t, r.Register(h))

	handlers, err := r.HandlersFor(EventTypeMarket)
	require.NoError(t, err)
	require.Len(t, handlers, 1)
	assert.Same(t, h, handlers[0].(*recordingHandler))

	assert.True(t, r.HasHandlers(EventTypeMarket))
	assert.Equal(t, 1, r.HandlerCount(EventTypeMarket))
	assert.Equal(t, []EventType{EventTypeMarket}, r.RegisteredTypes())
}

func TestRegistryRegisterNilHandler(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	err := r.Register(nil)
	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, EventType("unknown"), regErr.EventType)
}

func TestRegistryRegisterEmptyCapabilitySet(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	err := r.Register(newRecordingHandler("empty"))
	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, EventType("none"), regErr.EventType)
	assert.Equal(t, "empty", regErr.HandlerName)
}

func TestRegistryRegisterUnknownEventType(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	err := r.Register(newRecordingHandler("bogus", EventType("heartbeat")))
	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, EventType("heartbeat"), regErr.EventType)

	// A failed registration must leave the registry untouched.
	assert.False(t, r.HasHandlers(EventType("heartbeat")))
	assert.Empty(t, r.RegisteredTypes())
}

func TestRegistryDuplicateRegistrationIsIdempotent(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	h := newRecordingHandler("strategy", EventTypeMarket)

	require.NoError(t, r.Register(h))
	require.NoError(t, r.Register(h))

	assert.Equal(t, 1, r.HandlerCount(EventTypeMarket))
}

func TestRegistryReRegistrationReplacesCapabilitySet(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	h := newRecordingHandler("chameleon", EventTypeMarket, EventTypeSignal)

	require.NoError(t, r.Register(h))
	require.Equal(t, 1, r.HandlerCount(EventTypeMarket))
	require.Equal(t, 1, r.HandlerCount(EventTypeSignal))

	// Shrink the capability set and register again: the stale market
	// subscription must be reconciled away, not left dangling.
	h.types = []EventType{EventTypeSignal}
	require.NoError(t, r.Register(h))

	assert.Equal(t, 0, r.HandlerCount(EventTypeMarket))
	assert.Equal(t, 1, r.HandlerCount(EventTypeSignal))
	assert.Equal(t, []EventType{EventTypeSignal}, r.RegisteredTypes())
}

func TestRegistryDuplicateTypesInCapabilitySet(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	h := newRecordingHandler("noisy", EventTypeFill, EventTypeFill)

	require.NoError(t, r.Register(h))
	assert.Equal(t, 1, r.HandlerCount(EventTypeFill))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := newRecordingHandler("a", EventTypeMarket, EventTypeFill)
	b := newRecordingHandler("b", EventTypeMarket)

	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	r.Unregister(a)

	assert.Equal(t, 1, r.HandlerCount(EventTypeMarket))
	assert.Equal(t, 0, r.HandlerCount(EventTypeFill))

	handlers, err := r.HandlersFor(EventTypeMarket)
	require.NoError(t, err)
	assert.Equal(t, "b", handlers[0].Name())
}

func TestRegistryUnregisterUnknownHandlerIsNoOp(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	assert.NotPanics(t, func() {
		r.Unregister(newRecordingHandler("stranger", EventTypeMarket))
		r.Unregister(nil)
	})
}

func TestRegistryHandlersForEmpty(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	_, err := r.HandlersFor(EventTypeOrder)
	var notFound *HandlerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, EventTypeOrder, notFound.EventType)
}

func TestRegistryHandlersForReturnsSnapshot(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := newRecordingHandler("a", EventTypeMarket)
	b := newRecordingHandler("b", EventTypeMarket)
	require.NoError(t, r.Register(a))

	snapshot, err := r.HandlersFor(EventTypeMarket)
	require.NoError(t, err)

	// Mutating the registry after the snapshot must not affect it.
	require.NoError(t, r.Register(b))
	assert.Len(t, snapshot, 1)
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	names := []string{"first", "second", "third"}
	for _, name := range names {
		require.NoError(t, r.Register(newRecordingHandler(name, EventTypeMarket)))
	}

	handlers, err := r.HandlersFor(EventTypeMarket)
	require.NoError(t, err)
	for i, h := range handlers {
		assert.Equal(t, names[i], h.Name())
	}
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(newRecordingHandler("a", EventTypeMarket)))
	require.NoError(t, r.Register(newRecordingHandler("b", EventTypeFill)))

	r.Clear()

	assert.Empty(t, r.RegisteredTypes())
	_, err := r.HandlersFor(EventTypeMarket)
	assert.True(t, errors.As(err, new(*HandlerNotFoundError)))
}
