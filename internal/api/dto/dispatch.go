// Package dto defines the JSON wire shapes for the dispatch API.
// Dates are YYYY-MM-DD strings, timestamps RFC 3339.
package dto

import "time"

type CreateDispatchEventRequest struct {
	RouteID       string `json:"route_id"`
	TerminalID    string `json:"terminal_id,omitempty"`
	ExecutionDate string `json:"execution_date"`
	Priority      string `json:"priority,omitempty"`
}

type TransitionStatusRequest struct {
	Status                string `json:"status"`
	CancellationReason    string `json:"cancellation_reason,omitempty"`
	CancellationNotes     string `json:"cancellation_notes,omitempty"`
	EstimatedDelayMinutes *int   `json:"estimated_delay_minutes,omitempty"`
}

type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

type AssignTruckRequest struct {
	TruckID   string `json:"truck_id,omitempty"`
	SubUnitID string `json:"sub_unit_id,omitempty"`
}

// UpdateStopRequest is a partial patch; absent fields are left unchanged.
type UpdateStopRequest struct {
	Status              *string    `json:"status,omitempty"`
	ActualArrivalTime   *time.Time `json:"actual_arrival_time,omitempty"`
	ActualDepartureTime *time.Time `json:"actual_departure_time,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
	ExceptionReason     *string    `json:"exception_reason,omitempty"`
	SkipReason          *string    `json:"skip_reason,omitempty"`
	Latitude            *float64   `json:"latitude,omitempty"`
	Longitude           *float64   `json:"longitude,omitempty"`
	Odometer            *float64   `json:"odometer,omitempty"`
	FuelUsed            *float64   `json:"fuel_used,omitempty"`
	RequiresAttention   *bool      `json:"requires_attention,omitempty"`
}

type DispatchEventResponse struct {
	DispatchEventID string `json:"dispatch_event_id"`
	RouteID         string `json:"route_id"`
	TerminalID      string `json:"terminal_id"`
	ExecutionDate   string `json:"execution_date"`
	Status          string `json:"status"`
	Priority        string `json:"priority"`

	AssignedDriverID  string `json:"assigned_driver_id,omitempty"`
	AssignedTruckID   string `json:"assigned_truck_id,omitempty"`
	AssignedSubUnitID string `json:"assigned_sub_unit_id,omitempty"`

	PlannedDepartureTime  string     `json:"planned_departure_time"`
	ActualDepartureTime   *time.Time `json:"actual_departure_time,omitempty"`
	EstimatedReturnTime   *time.Time `json:"estimated_return_time,omitempty"`
	ActualReturnTime      *time.Time `json:"actual_return_time,omitempty"`
	ActualCompletionTime  *time.Time `json:"actual_completion_time,omitempty"`
	EstimatedDelayMinutes *int       `json:"estimated_delay_minutes,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`
	CancellationNotes  string `json:"cancellation_notes,omitempty"`
	DispatchNotes      string `json:"dispatch_notes,omitempty"`
	OperationalNotes   string `json:"operational_notes,omitempty"`

	TotalMiles        float64 `json:"total_miles"`
	TotalServiceTime  int     `json:"total_service_time"`
	FuelUsed          float64 `json:"fuel_used"`
	OnTimePerformance *int    `json:"on_time_performance,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Stops []StopProgressResponse `json:"stops,omitempty"`
}

type StopProgressResponse struct {
	StopProgressID  string `json:"stop_progress_id"`
	DispatchEventID string `json:"dispatch_event_id"`
	RouteStopID     string `json:"route_stop_id"`
	Sequence        int    `json:"sequence"`

	PlannedETA string `json:"planned_eta"`
	PlannedETD string `json:"planned_etd"`

	ActualArrivalTime   *time.Time `json:"actual_arrival_time,omitempty"`
	ActualDepartureTime *time.Time `json:"actual_departure_time,omitempty"`

	Status       string  `json:"status"`
	OnTimeStatus *string `json:"on_time_status,omitempty"`
	ServiceTime  *int    `json:"service_time,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Odometer  *float64 `json:"odometer,omitempty"`
	FuelUsed  *float64 `json:"fuel_used,omitempty"`

	Notes           string `json:"notes,omitempty"`
	ExceptionReason string `json:"exception_reason,omitempty"`
	SkipReason      string `json:"skip_reason,omitempty"`

	RequiresAttention bool `json:"requires_attention"`

	UpdatedAt time.Time `json:"updated_at"`
}

type ListDispatchEventsResponse struct {
	Events []DispatchEventResponse `json:"events"`
}

type UpdateStopResponse struct {
	Stop  StopProgressResponse   `json:"stop"`
	Event *DispatchEventResponse `json:"event,omitempty"`
}
