package events

import (
	"time"

	"github.com/spec-kit/opsboard/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request.created"
	EventRequestOwnerAssigned EventType = "request.owner_assigned"
	EventRequestStatusChanged EventType = "request.status_changed"
	EventRequestClosed        EventType = "request.closed"
)

// AllEventTypes lists every type a subscriber may want.
var AllEventTypes = []EventType{
	EventRequestCreated,
	EventRequestOwnerAssigned,
	EventRequestStatusChanged,
	EventRequestClosed,
}

// Event represents a committed audit entry on its way to subscribers.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	RequestID string        `json:"requestId"`
	ActorID   string        `json:"actorId"`
	Timestamp time.Time     `json:"timestamp"`
	Payload   ChangePayload `json:"payload"`
}

// ChangePayload carries the before and after values of the change, when any.
type ChangePayload struct {
	From *string `json:"from,omitempty"`
	To   *string `json:"to,omitempty"`
}

// TypeFor maps an audit event type to its feed type.
func TypeFor(t domain.RequestEventType) EventType {
	switch t {
	case domain.EventCreated:
		return EventRequestCreated
	case domain.EventOwnerAssigned:
		return EventRequestOwnerAssigned
	case domain.EventStatusChanged:
		return EventRequestStatusChanged
	case domain.EventClosed:
		return EventRequestClosed
	default:
		return EventType("request." + string(t))
	}
}

// FromAudit converts a stored audit event into a feed event.
func FromAudit(e domain.RequestEvent) Event {
	return Event{
		ID:        e.ID,
		Type:      TypeFor(e.Type),
		RequestID: e.RequestID,
		ActorID:   e.PerformedByID,
		Timestamp: e.CreatedAt,
		Payload:   ChangePayload{From: e.FromValue, To: e.ToValue},
	}
}
