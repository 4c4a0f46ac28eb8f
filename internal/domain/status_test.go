package domain

import "testing"

var allStatuses = []EventStatus{
	StatusPlanned, StatusAssigned, StatusDispatched, StatusInTransit,
	StatusCompleted, StatusCancelled, StatusDelayed,
}

func TestTransitionTableClosure(t *testing.T) {
	allowed := map[EventStatus]map[EventStatus]bool{
		StatusPlanned:    {StatusAssigned: true, StatusCancelled: true},
		StatusAssigned:   {StatusDispatched: true, StatusCancelled: true, StatusDelayed: true},
		StatusDispatched: {StatusInTransit: true, StatusDelayed: true, StatusCancelled: true},
		StatusInTransit:  {StatusCompleted: true, StatusDelayed: true, StatusCancelled: true},
		StatusDelayed:    {StatusDispatched: true, StatusInTransit: true, StatusCancelled: true, StatusCompleted: true},
		StatusCompleted:  {},
		StatusCancelled:  {},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			got := CanTransition(from, to)
			want := allowed[from][to]
			if got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, from := range []EventStatus{StatusCompleted, StatusCancelled} {
		for _, to := range allStatuses {
			if CanTransition(from, to) {
				t.Errorf("terminal state %s allows transition to %s", from, to)
			}
		}
	}
}

func TestDeriveEventStatusFirstArrival(t *testing.T) {
	stops := []*StopProgress{
		{Sequence: 0, Status: StopArrived},
		{Sequence: 1, Status: StopPending},
		{Sequence: 2, Status: StopPending},
	}

	for _, from := range []EventStatus{StatusAssigned, StatusDispatched} {
		got, changed := DeriveEventStatus(from, stops)
		if !changed || got != StatusInTransit {
			t.Errorf("DeriveEventStatus(%s) = (%s, %v), want (in_transit, true)", from, got, changed)
		}
	}

	// A planned event has no driver out on the road; arrivals do not advance it.
	got, changed := DeriveEventStatus(StatusPlanned, stops)
	if changed || got != StatusPlanned {
		t.Errorf("DeriveEventStatus(planned) = (%s, %v), want (planned, false)", got, changed)
	}
}

func TestDeriveEventStatusAllTerminal(t *testing.T) {
	stops := []*StopProgress{
		{Sequence: 0, Status: StopCompleted},
		{Sequence: 1, Status: StopSkipped},
		{Sequence: 2, Status: StopException},
	}

	got, changed := DeriveEventStatus(StatusInTransit, stops)
	if !changed || got != StatusCompleted {
		t.Fatalf("DeriveEventStatus(in_transit) = (%s, %v), want (completed, true)", got, changed)
	}
}

func TestDeriveEventStatusNeverLeavesTerminal(t *testing.T) {
	stops := []*StopProgress{
		{Sequence: 0, Status: StopArrived},
	}

	for _, terminal := range []EventStatus{StatusCompleted, StatusCancelled} {
		got, changed := DeriveEventStatus(terminal, stops)
		if changed || got != terminal {
			t.Errorf("DeriveEventStatus(%s) = (%s, %v), want no change", terminal, got, changed)
		}
	}
}

func TestDeriveEventStatusNoStops(t *testing.T) {
	got, changed := DeriveEventStatus(StatusAssigned, nil)
	if changed || got != StatusAssigned {
		t.Fatalf("DeriveEventStatus with no stops = (%s, %v), want no change", got, changed)
	}
}
