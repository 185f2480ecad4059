package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/opsboard/internal/domain"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventRequestClosed, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventRequestClosed, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventRequestCreated, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventRequestClosed})
	if err == nil {
		t.Fatalf("expected handler error to surface")
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestFromAudit(t *testing.T) {
	from, to := "NEW", "IN_PROGRESS"
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ev := FromAudit(domain.RequestEvent{
		ID:            "ev-1",
		RequestID:     "req-1",
		Type:          domain.EventStatusChanged,
		FromValue:     &from,
		ToValue:       &to,
		PerformedByID: "user-1",
		CreatedAt:     at,
	})
	if ev.Type != EventRequestStatusChanged || ev.RequestID != "req-1" || ev.ActorID != "user-1" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if *ev.Payload.From != "NEW" || *ev.Payload.To != "IN_PROGRESS" || !ev.Timestamp.Equal(at) {
		t.Fatalf("unexpected payload %+v", ev.Payload)
	}
	for _, audit := range []domain.RequestEventType{domain.EventCreated, domain.EventOwnerAssigned, domain.EventClosed} {
		if got := TypeFor(audit); got == "" {
			t.Fatalf("no feed type for %s", audit)
		}
	}
}
