package board

import (
	"testing"
	"time"

	"github.com/spec-kit/opsboard/internal/domain"
)

var t0 = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func req(id string, urgency domain.Urgency, minute int, status domain.RequestStatus) domain.Request {
	return domain.Request{
		ID:        id,
		Urgency:   urgency,
		Status:    status,
		CreatedAt: t0.Add(time.Duration(minute) * time.Minute),
	}
}

func ids(requests []domain.Request) []string {
	out := make([]string, 0, len(requests))
	for _, r := range requests {
		out = append(out, r.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProjectOrdersByUrgencyThenAge(t *testing.T) {
	input := []domain.Request{
		req("today-10", domain.UrgencyToday, 10, domain.RequestStatusNew),
		req("now-20", domain.UrgencyNow, 20, domain.RequestStatusInProgress),
		req("now-5", domain.UrgencyNow, 5, domain.RequestStatusWaiting),
		req("done-now-1", domain.UrgencyNow, 1, domain.RequestStatusDone),
	}
	got := ids(Project(input))
	want := []string{"now-5", "now-20", "today-10"}
	if !equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if input[0].ID != "today-10" || len(input) != 4 {
		t.Fatalf("input slice was modified")
	}
}

func TestProjectKeepsInputOrderOnFullTies(t *testing.T) {
	input := []domain.Request{
		req("b", domain.UrgencyLow, 3, domain.RequestStatusNew),
		req("a", domain.UrgencyLow, 3, domain.RequestStatusNew),
		req("c", domain.UrgencyLow, 3, domain.RequestStatusNew),
		req("first", domain.UrgencyLow, 1, domain.RequestStatusNew),
	}
	got := ids(Project(input))
	want := []string{"first", "b", "a", "c"}
	if !equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestCompareIsTotalOnDistinctKeys(t *testing.T) {
	items := []domain.Request{
		req("1", domain.UrgencyNow, 1, domain.RequestStatusNew),
		req("2", domain.UrgencyNow, 2, domain.RequestStatusNew),
		req("3", domain.UrgencyToday, 1, domain.RequestStatusNew),
		req("4", domain.UrgencyLow, 0, domain.RequestStatusNew),
	}
	for i, a := range items {
		for j, b := range items {
			ab, ba := Compare(a, b), Compare(b, a)
			if i == j {
				if ab != 0 {
					t.Fatalf("%s compared to itself = %d", a.ID, ab)
				}
				continue
			}
			if ab == 0 || (ab < 0) == (ba < 0) {
				t.Fatalf("compare(%s,%s)=%d compare(%s,%s)=%d is not antisymmetric", a.ID, b.ID, ab, b.ID, a.ID, ba)
			}
		}
	}
}

func TestProjectEmpty(t *testing.T) {
	if got := Project(nil); len(got) != 0 {
		t.Fatalf("expected empty board, got %v", got)
	}
	allDone := []domain.Request{req("x", domain.UrgencyNow, 0, domain.RequestStatusDone)}
	if got := Project(allDone); len(got) != 0 {
		t.Fatalf("DONE requests must be dropped, got %v", ids(got))
	}
}

func TestProjectItemsUsesSameOrder(t *testing.T) {
	items := []domain.RequestView{
		{Request: req("low", domain.UrgencyLow, 0, domain.RequestStatusNew), Owner: domain.UserRef{ID: "u1"}},
		{Request: req("done", domain.UrgencyNow, 0, domain.RequestStatusDone)},
		{Request: req("now", domain.UrgencyNow, 9, domain.RequestStatusNew), Owner: domain.UserRef{ID: "u2"}},
	}
	got := ProjectItems(items)
	if len(got) != 2 || got[0].ID != "now" || got[1].ID != "low" {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[0].Owner.ID != "u2" {
		t.Fatalf("owner lost during projection")
	}
}
