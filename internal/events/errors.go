package events

import "fmt"

// HandlerNotFoundError reports that no handlers are registered for an event
// type. Callers that treat "no subscribers" as a valid state should match it
// with errors.As; the bus swallows it during publish.
type HandlerNotFoundError struct {
	EventType EventType
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no handlers registered for event type %q", e.EventType)
}

// RegistrationError reports a malformed handler registration. This is a
// caller bug and is expected to abort startup wiring.
type RegistrationError struct {
	EventType   EventType
	HandlerName string
	Reason      string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register handler %q for event type %q: %s",
		e.HandlerName, e.EventType, e.Reason)
}
