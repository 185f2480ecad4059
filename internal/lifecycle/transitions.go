package lifecycle

import "github.com/spec-kit/opsboard/internal/domain"

var allowedTransitions = map[domain.RequestStatus][]domain.RequestStatus{
	domain.RequestStatusNew:        {domain.RequestStatusInProgress, domain.RequestStatusWaiting},
	domain.RequestStatusInProgress: {domain.RequestStatusWaiting, domain.RequestStatusDone},
	domain.RequestStatusWaiting:    {domain.RequestStatusInProgress, domain.RequestStatusDone},
	domain.RequestStatusDone:       {},
}

// CanTransition reports whether current -> next is an edge of the status table.
// Self-transitions are never edges.
func CanTransition(current, next domain.RequestStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from current in one step.
func NextStatuses(current domain.RequestStatus) []domain.RequestStatus {
	next := allowedTransitions[current]
	out := make([]domain.RequestStatus, len(next))
	copy(out, next)
	return out
}
