package handlers

import (
	"net/http"

	"dispatch-engine/internal/api/dto"
	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

const dateLayout = "2006-01-02"

// actorFrom extracts the acting identity from trusted gateway headers.
// An empty role carries no capabilities, so unauthenticated requests can
// still perform the ungated operations.
func actorFrom(r *http.Request) ports.Actor {
	return ports.Actor{
		ID:   r.Header.Get("X-Actor-ID"),
		Role: r.Header.Get("X-Actor-Role"),
	}
}

func eventToResponse(ev *domain.DispatchEvent) dto.DispatchEventResponse {
	return dto.DispatchEventResponse{
		DispatchEventID: ev.DispatchEventID.String(),
		RouteID:         ev.RouteID.String(),
		TerminalID:      ev.TerminalID,
		ExecutionDate:   ev.ExecutionDate.Format(dateLayout),
		Status:          string(ev.Status),
		Priority:        string(ev.Priority),

		AssignedDriverID:  ev.AssignedDriverID,
		AssignedTruckID:   ev.AssignedTruckID,
		AssignedSubUnitID: ev.AssignedSubUnitID,

		PlannedDepartureTime:  ev.PlannedDepartureTime,
		ActualDepartureTime:   ev.ActualDepartureTime,
		EstimatedReturnTime:   ev.EstimatedReturnTime,
		ActualReturnTime:      ev.ActualReturnTime,
		ActualCompletionTime:  ev.ActualCompletionTime,
		EstimatedDelayMinutes: ev.EstimatedDelayMinutes,

		CancellationReason: ev.CancellationReason,
		CancellationNotes:  ev.CancellationNotes,
		DispatchNotes:      ev.DispatchNotes,
		OperationalNotes:   ev.OperationalNotes,

		TotalMiles:        ev.TotalMiles,
		TotalServiceTime:  ev.TotalServiceTime,
		FuelUsed:          ev.FuelUsed,
		OnTimePerformance: ev.OnTimePerformance,

		Version:   ev.Version,
		CreatedAt: ev.CreatedAt,
		UpdatedAt: ev.UpdatedAt,
	}
}

func stopToResponse(sp *domain.StopProgress) dto.StopProgressResponse {
	var onTime *string
	if sp.OnTimeStatus != nil {
		s := string(*sp.OnTimeStatus)
		onTime = &s
	}

	return dto.StopProgressResponse{
		StopProgressID:  sp.StopProgressID.String(),
		DispatchEventID: sp.DispatchEventID.String(),
		RouteStopID:     sp.RouteStopID.String(),
		Sequence:        sp.Sequence,

		PlannedETA: sp.PlannedETA,
		PlannedETD: sp.PlannedETD,

		ActualArrivalTime:   sp.ActualArrivalTime,
		ActualDepartureTime: sp.ActualDepartureTime,

		Status:       string(sp.Status),
		OnTimeStatus: onTime,
		ServiceTime:  sp.ServiceTime,

		Latitude:  sp.Latitude,
		Longitude: sp.Longitude,
		Odometer:  sp.Odometer,
		FuelUsed:  sp.FuelUsed,

		Notes:           sp.Notes,
		ExceptionReason: sp.ExceptionReason,
		SkipReason:      sp.SkipReason,

		RequiresAttention: sp.RequiresAttention,

		UpdatedAt: sp.UpdatedAt,
	}
}

func stopsToResponse(stops []*domain.StopProgress) []dto.StopProgressResponse {
	out := make([]dto.StopProgressResponse, 0, len(stops))
	for _, sp := range stops {
		out = append(out, stopToResponse(sp))
	}
	return out
}
