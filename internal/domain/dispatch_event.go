package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	StatusPlanned    EventStatus = "planned"
	StatusAssigned   EventStatus = "assigned"
	StatusDispatched EventStatus = "dispatched"
	StatusInTransit  EventStatus = "in_transit"
	StatusCompleted  EventStatus = "completed"
	StatusCancelled  EventStatus = "cancelled"
	StatusDelayed    EventStatus = "delayed"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DispatchEvent is one dated execution instance of a route template.
// It owns its StopProgress records exclusively; the route it references
// is never mutated through this engine.
type DispatchEvent struct {
	DispatchEventID uuid.UUID
	RouteID         uuid.UUID
	TerminalID      string // denormalized from the route at creation for scoping
	ExecutionDate   time.Time
	Status          EventStatus
	Priority        Priority

	AssignedDriverID  string
	AssignedTruckID   string
	AssignedSubUnitID string

	PlannedDepartureTime    string // HH:MM, copied from the route at creation
	ActualDepartureTime     *time.Time
	EstimatedReturnTime     *time.Time
	ActualReturnTime        *time.Time
	EstimatedCompletionTime *time.Time
	ActualCompletionTime    *time.Time
	EstimatedDelayMinutes   *int

	CancellationReason string
	CancellationNotes  string
	DispatchNotes      string
	OperationalNotes   string

	// Aggregates maintained by the engine, never patched by clients.
	TotalMiles        float64
	TotalServiceTime  int // minutes
	FuelUsed          float64
	OnTimePerformance *int // 0-100

	LastLocationUpdate *time.Time
	LastGeotabSync     *time.Time

	// Version guards event writes against concurrent cascades.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeDate strips the time-of-day component so (routeID, executionDate)
// uniqueness compares calendar days, not instants.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
