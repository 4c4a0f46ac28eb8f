package domain

// transitions is the table of client-requestable status changes.
// Terminal states (completed, cancelled) have no outgoing transitions.
var transitions = map[EventStatus][]EventStatus{
	StatusPlanned:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusDispatched, StatusCancelled, StatusDelayed},
	StatusDispatched: {StatusInTransit, StatusDelayed, StatusCancelled},
	StatusInTransit:  {StatusCompleted, StatusDelayed, StatusCancelled},
	StatusDelayed:    {StatusDispatched, StatusInTransit, StatusCancelled, StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func ValidEventStatus(s EventStatus) bool {
	_, ok := transitions[s]
	return ok
}

// TerminalEvent reports whether an event status admits no further changes,
// client-requested or cascaded.
func TerminalEvent(s EventStatus) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether the explicit transition from -> to is legal.
func CanTransition(from, to EventStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// DeriveEventStatus applies the cascade rule: recompute an event's status from
// the current state of its stops. It returns the derived status and whether it
// differs from the current one. Cascaded changes never leave a terminal state.
//
// A stop reaching arrived (or beyond) while the event is still assigned or
// dispatched advances the event to in_transit. Whether "first arrival" means
// lowest sequence or first chronologically is moot here: any stop leaving
// pending is evidence the truck is on the road.
func DeriveEventStatus(current EventStatus, stops []*StopProgress) (EventStatus, bool) {
	if TerminalEvent(current) || len(stops) == 0 {
		return current, false
	}

	allTerminal := true
	anyStarted := false
	for _, sp := range stops {
		if !TerminalStop(sp.Status) {
			allTerminal = false
		}
		if sp.Status != StopPending {
			anyStarted = true
		}
	}

	if allTerminal {
		return StatusCompleted, current != StatusCompleted
	}

	if anyStarted && (current == StatusAssigned || current == StatusDispatched) {
		return StatusInTransit, true
	}

	return current, false
}
