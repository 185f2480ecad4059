package lifecycle

import (
	"fmt"
	"slices"

	"github.com/spec-kit/opsboard/internal/domain"
)

// ReplayState is the request state implied by its audit trail.
type ReplayState struct {
	Status  domain.RequestStatus
	OwnerID string
	Closed  bool
}

// Replay folds events in createdAt order (stable for equal timestamps) and returns
// the resulting status and owner. It fails when the trail does not start with
// CREATED or contains a status change that the transition table forbids.
func Replay(events []domain.RequestEvent) (ReplayState, error) {
	if len(events) == 0 {
		return ReplayState{}, fmt.Errorf("replay: no events")
	}
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b domain.RequestEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	var state ReplayState
	for i, ev := range ordered {
		if i == 0 {
			if ev.Type != domain.EventCreated {
				return ReplayState{}, fmt.Errorf("replay: first event is %s, want %s", ev.Type, domain.EventCreated)
			}
			state.Status = domain.RequestStatusNew
			continue
		}
		switch ev.Type {
		case domain.EventCreated:
			return ReplayState{}, fmt.Errorf("replay: duplicate %s event %s", ev.Type, ev.ID)
		case domain.EventOwnerAssigned:
			if ev.ToValue == nil {
				return ReplayState{}, fmt.Errorf("replay: %s event %s has no target owner", ev.Type, ev.ID)
			}
			if state.Closed {
				return ReplayState{}, fmt.Errorf("replay: owner assigned after close in event %s", ev.ID)
			}
			state.OwnerID = *ev.ToValue
		case domain.EventStatusChanged:
			if ev.ToValue == nil {
				return ReplayState{}, fmt.Errorf("replay: %s event %s has no target status", ev.Type, ev.ID)
			}
			to := domain.RequestStatus(*ev.ToValue)
			if !CanTransition(state.Status, to) {
				return ReplayState{}, fmt.Errorf("replay: illegal transition %s -> %s in event %s", state.Status, to, ev.ID)
			}
			state.Status = to
		case domain.EventClosed:
			if state.Status != domain.RequestStatusDone {
				return ReplayState{}, fmt.Errorf("replay: %s event %s while status is %s", ev.Type, ev.ID, state.Status)
			}
			state.Closed = true
		default:
			return ReplayState{}, fmt.Errorf("replay: unknown event type %q", ev.Type)
		}
	}
	return state, nil
}
