package loanapp

import "testing"

func TestTransitionTableExhaustive(t *testing.T) {
	expected := map[Status]map[Status]bool{
		StatusReceived: {StatusVerified: true, StatusRejected: true},
		StatusVerified: {StatusAssigned: true, StatusRejected: true},
		StatusAssigned: {StatusAnalyzed: true, StatusRejected: true},
		StatusAnalyzed: {StatusApproved: true, StatusRejected: true},
		StatusApproved: {StatusArchived: true},
		StatusRejected: {StatusArchived: true},
		StatusArchived: {},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := expected[from][to]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestArchivedIsTerminal(t *testing.T) {
	if len(AllowedNextStates(StatusArchived)) != 0 {
		t.Fatalf("archived must have no outbound transitions")
	}
	for _, to := range allStatuses {
		if CanTransition(StatusArchived, to) {
			t.Fatalf("archived -> %s must not be allowed", to)
		}
	}
}

func TestAllowedNextStatesReturnsCopy(t *testing.T) {
	first := AllowedNextStates(StatusReceived)
	first[0] = StatusArchived

	second := AllowedNextStates(StatusReceived)
	if second[0] != StatusVerified {
		t.Fatalf("transition table was mutated through AllowedNextStates")
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range allStatuses {
		parsed, err := ParseStatus(string(s))
		if err != nil || parsed != s {
			t.Fatalf("ParseStatus(%q) = %v, %v", s, parsed, err)
		}
	}
	if _, err := ParseStatus("pending"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
