package domain

import (
	"time"

	"github.com/google/uuid"
)

type StopStatus string

const (
	StopPending   StopStatus = "pending"
	StopArrived   StopStatus = "arrived"
	StopCompleted StopStatus = "completed"
	StopSkipped   StopStatus = "skipped"
	StopException StopStatus = "exception"
)

// SkipReasonCancelled marks stops closed out because their event was cancelled.
const SkipReasonCancelled = "dispatch_cancelled"

// StopProgress is the execution record for one planned stop within a dispatch
// event. Records are bulk-created from the route's stop templates when the
// event is created and only ever deleted together with the event.
type StopProgress struct {
	StopProgressID  uuid.UUID
	DispatchEventID uuid.UUID
	RouteStopID     uuid.UUID
	Sequence        int

	PlannedETA string // HH:MM, copied from the template
	PlannedETD string // HH:MM

	ActualArrivalTime   *time.Time
	ActualDepartureTime *time.Time

	Status       StopStatus
	OnTimeStatus *OnTimeStatus // computed, never client-settable
	ServiceTime  *int          // minutes at stop, derived from actual arrival/departure

	Latitude  *float64
	Longitude *float64
	Odometer  *float64
	FuelUsed  *float64

	Notes           string
	ExceptionReason string
	SkipReason      string

	RequiresAttention bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func ValidStopStatus(s StopStatus) bool {
	switch s {
	case StopPending, StopArrived, StopCompleted, StopSkipped, StopException:
		return true
	}
	return false
}

// TerminalStop reports whether a stop has reached a final per-stop state.
func TerminalStop(s StopStatus) bool {
	return s == StopCompleted || s == StopSkipped || s == StopException
}

// StopsFromTemplates builds the initial pending StopProgress set for a new
// dispatch event, preserving template sequence order.
func StopsFromTemplates(eventID uuid.UUID, templates []*RouteStopTemplate, now time.Time) []*StopProgress {
	stops := make([]*StopProgress, 0, len(templates))
	for _, tpl := range templates {
		stops = append(stops, &StopProgress{
			StopProgressID:  uuid.New(),
			DispatchEventID: eventID,
			RouteStopID:     tpl.RouteStopID,
			Sequence:        tpl.Sequence,
			PlannedETA:      tpl.PlannedETA,
			PlannedETD:      tpl.PlannedETD,
			Status:          StopPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return stops
}
