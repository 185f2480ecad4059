package domain

import "testing"

func TestUrgencyRank(t *testing.T) {
	cases := []struct {
		urgency Urgency
		rank    int
	}{
		{UrgencyNow, 0},
		{UrgencyToday, 1},
		{UrgencyLow, 2},
		{Urgency("SOMEDAY"), 3},
	}
	for _, tc := range cases {
		if got := tc.urgency.Rank(); got != tc.rank {
			t.Fatalf("%s rank = %d, want %d", tc.urgency, got, tc.rank)
		}
	}
	if Urgency("SOMEDAY").Valid() {
		t.Fatalf("unknown urgency must not be valid")
	}
}

func TestEnumsValid(t *testing.T) {
	for _, rt := range RequestTypes {
		if !rt.Valid() {
			t.Fatalf("%s should be valid", rt)
		}
	}
	if RequestType("CATERING").Valid() {
		t.Fatalf("unknown type accepted")
	}
	for _, s := range RequestStatuses {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
		if s.Terminal() != (s == RequestStatusDone) {
			t.Fatalf("only DONE is terminal, got %s terminal=%v", s, s.Terminal())
		}
	}
}

func TestUserRefNil(t *testing.T) {
	var u *User
	if ref := u.Ref(); ref.ID != "" || ref.Name != "" {
		t.Fatalf("nil user ref should be empty, got %+v", ref)
	}
}
