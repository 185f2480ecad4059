// Package lifecycle decides request mutations. Every operation takes a snapshot and
// returns the next snapshot plus the audit events describing the change; nothing here
// performs I/O or keeps a reference to its input.
package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/opsboard/internal/domain"
)

// Decision is the outcome of a legal mutation. The caller persists Request and
// Events in one transaction.
type Decision struct {
	Request domain.Request
	Events  []domain.RequestEvent
}

// Engine applies the request state machine.
type Engine struct {
	now   func() time.Time
	newID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides how request and event ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine builds an engine using wall-clock time and random UUIDs unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create opens a new request owned by owner. owner is the result of looking up
// in.OwnerID; nil means the lookup found nothing.
func (e *Engine) Create(in CreateInput, owner *domain.User, createdByID string) (Decision, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return Decision{}, err
	}
	if !usableOwner(owner, in.OwnerID) {
		return Decision{}, &RuleError{Code: CodeInvalidOwner, OwnerID: in.OwnerID}
	}

	now := e.stampAfter(time.Time{})
	req := domain.Request{
		ID:          e.newID(),
		Type:        in.Type,
		Description: in.Description,
		Urgency:     in.Urgency,
		Location:    in.Location,
		RequestedBy: in.RequestedBy,
		Status:      domain.RequestStatusNew,
		OwnerID:     owner.ID,
		CreatedByID: createdByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return e.decide(req, createdByID, now,
		change{kind: domain.EventCreated},
		change{kind: domain.EventOwnerAssigned, to: ptr(owner.ID)},
	), nil
}

// AssignOwner hands req to the user newOwnerID. newOwner is the result of looking
// that id up; nil means the lookup found nothing. A DONE request cannot be reassigned.
func (e *Engine) AssignOwner(req domain.Request, newOwnerID string, newOwner *domain.User, performedByID string) (Decision, error) {
	if req.Status.Terminal() {
		return Decision{}, &RuleError{Code: CodeCannotAssignDone, From: req.Status}
	}
	if newOwnerID == "" || !usableOwner(newOwner, newOwnerID) {
		return Decision{}, &RuleError{Code: CodeInvalidOwner, OwnerID: newOwnerID}
	}

	now := e.stampAfter(req.LastEventAt)
	previous := req.OwnerID
	next := req
	next.OwnerID = newOwner.ID
	next.UpdatedAt = now
	return e.decide(next, performedByID, now,
		change{kind: domain.EventOwnerAssigned, from: ptr(previous), to: ptr(newOwner.ID)},
	), nil
}

// ChangeStatus moves req to status to along the transition table.
func (e *Engine) ChangeStatus(req domain.Request, to domain.RequestStatus, performedByID string) (Decision, error) {
	from := req.Status
	if !CanTransition(from, to) {
		return Decision{}, &RuleError{Code: CodeInvalidTransition, From: from, To: to}
	}

	now := e.stampAfter(req.LastEventAt)
	next := req
	next.Status = to
	next.UpdatedAt = now

	changes := []change{{kind: domain.EventStatusChanged, from: ptr(string(from)), to: ptr(string(to))}}
	if to == domain.RequestStatusDone {
		closedAt := now
		next.ClosedAt = &closedAt
		changes = append(changes, change{kind: domain.EventClosed})
	}
	return e.decide(next, performedByID, now, changes...), nil
}

// Close is ChangeStatus to DONE.
func (e *Engine) Close(req domain.Request, performedByID string) (Decision, error) {
	return e.ChangeStatus(req, domain.RequestStatusDone, performedByID)
}

type change struct {
	kind domain.RequestEventType
	from *string
	to   *string
}

// decide records changes against next, stamping them one microsecond apart from at
// so they stay strictly ordered at storage precision.
func (e *Engine) decide(next domain.Request, performedByID string, at time.Time, changes ...change) Decision {
	out := make([]domain.RequestEvent, 0, len(changes))
	for i, c := range changes {
		out = append(out, domain.RequestEvent{
			ID:            e.newID(),
			RequestID:     next.ID,
			Type:          c.kind,
			FromValue:     c.from,
			ToValue:       c.to,
			PerformedByID: performedByID,
			CreatedAt:     at.Add(time.Duration(i) * time.Microsecond),
		})
	}
	if len(out) > 0 {
		next.LastEventAt = out[len(out)-1].CreatedAt
	}
	return Decision{Request: next, Events: out}
}

// stampAfter reads the clock, truncated to storage precision, and never returns a
// time at or before last. A stalled or rewound clock still yields strictly
// increasing event times for one request.
func (e *Engine) stampAfter(last time.Time) time.Time {
	now := e.now().UTC().Truncate(time.Microsecond)
	if last.IsZero() {
		return now
	}
	if floor := last.UTC().Add(time.Microsecond); now.Before(floor) {
		return floor
	}
	return now
}

func usableOwner(owner *domain.User, requestedID string) bool {
	return owner != nil && owner.IsActive && sameID(owner.ID, requestedID)
}

// sameID compares ids in canonical UUID form, falling back to exact match.
func sameID(a, b string) bool {
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return ua == ub
}

func ptr(s string) *string {
	return &s
}
