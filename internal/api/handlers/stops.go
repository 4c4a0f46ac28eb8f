package handlers

import (
	"net/http"

	"dispatch-engine/internal/api/dto"
	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/services"
)

// UpdateStop applies a partial stop-progress patch. The response carries the
// parent event only when the cascade changed it, so drivers' apps can refresh
// their route view without an extra round trip.
func (h *DispatchEventHandler) UpdateStop(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	stopID, ok := pathUUID(w, r, "stopID")
	if !ok {
		return
	}

	var req dto.UpdateStopRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "invalid json body")
		return
	}

	patch := services.StopPatch{
		ActualArrivalTime:   req.ActualArrivalTime,
		ActualDepartureTime: req.ActualDepartureTime,
		Notes:               req.Notes,
		ExceptionReason:     req.ExceptionReason,
		SkipReason:          req.SkipReason,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		Odometer:            req.Odometer,
		FuelUsed:            req.FuelUsed,
		RequiresAttention:   req.RequiresAttention,
	}
	if req.Status != nil {
		status := domain.StopStatus(*req.Status)
		patch.Status = &status
	}

	sp, ev, err := h.Svc.UpdateStop(r.Context(), eventID, stopID, patch, actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.UpdateStopResponse{Stop: stopToResponse(sp)}
	if ev != nil {
		evRes := eventToResponse(ev)
		res.Event = &evRes
	}
	writeJSON(w, r, http.StatusOK, res)
}
