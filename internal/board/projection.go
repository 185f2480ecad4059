// Package board builds the display order of active requests.
package board

import (
	"slices"

	"github.com/spec-kit/opsboard/internal/domain"
)

// Compare orders a before b by urgency rank, then by createdAt (oldest first).
// It returns 0 only when both keys are equal.
func Compare(a, b domain.Request) int {
	if ra, rb := a.Urgency.Rank(), b.Urgency.Rank(); ra != rb {
		return ra - rb
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

// Project returns the requests that are not DONE in board order. Ties keep their
// input order. The input slice is left untouched.
func Project(requests []domain.Request) []domain.Request {
	active := make([]domain.Request, 0, len(requests))
	for _, r := range requests {
		if r.Status.Terminal() {
			continue
		}
		active = append(active, r)
	}
	slices.SortStableFunc(active, Compare)
	return active
}

// ProjectItems is Project for requests already joined with their owners.
func ProjectItems(items []domain.RequestView) []domain.RequestView {
	active := make([]domain.RequestView, 0, len(items))
	for _, item := range items {
		if item.Status.Terminal() {
			continue
		}
		active = append(active, item)
	}
	slices.SortStableFunc(active, func(a, b domain.RequestView) int {
		return Compare(a.Request, b.Request)
	})
	return active
}
