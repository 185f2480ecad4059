package domain

import "time"

// RequestEventType captures what changed in an audit entry.
type RequestEventType string

const (
	EventCreated       RequestEventType = "CREATED"
	EventOwnerAssigned RequestEventType = "OWNER_ASSIGNED"
	EventStatusChanged RequestEventType = "STATUS_CHANGED"
	EventClosed        RequestEventType = "CLOSED"
)

// RequestEvent is an immutable audit trail entry.
type RequestEvent struct {
	ID            string
	RequestID     string
	Type          RequestEventType
	FromValue     *string
	ToValue       *string
	PerformedByID string
	CreatedAt     time.Time
}

// RequestHistory is a request with its people resolved and its full audit trail.
type RequestHistory struct {
	Request    Request
	Owner      UserRef
	CreatedBy  UserRef
	Events     []RequestEvent
	Performers map[string]UserRef
}
