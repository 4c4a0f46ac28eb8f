package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dispatch-engine/internal/api/dto"
	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
	"dispatch-engine/internal/services"
)

// DispatchEventHandler exposes the dispatch lifecycle over HTTP.
type DispatchEventHandler struct {
	Svc *services.DispatchService
}

func (h *DispatchEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDispatchEventRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "invalid json body")
		return
	}

	routeID, err := uuid.Parse(req.RouteID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "route_id must be a uuid")
		return
	}

	date, err := time.Parse(dateLayout, req.ExecutionDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "execution_date must be YYYY-MM-DD")
		return
	}

	ev, stops, err := h.Svc.CreateDispatchEvent(r.Context(), services.CreateDispatchRequest{
		RouteID:       routeID,
		TerminalID:    req.TerminalID,
		ExecutionDate: date,
		Priority:      domain.Priority(req.Priority),
		Actor:         actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := eventToResponse(ev)
	res.Stops = stopsToResponse(stops)
	writeJSON(w, r, http.StatusCreated, res)
}

func (h *DispatchEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	if r.URL.Query().Get("expand") == "stops" {
		ev, stops, err := h.Svc.GetDispatchEventWithStops(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		res := eventToResponse(ev)
		res.Stops = stopsToResponse(stops)
		writeJSON(w, r, http.StatusOK, res)
		return
	}

	ev, err := h.Svc.GetDispatchEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, eventToResponse(ev))
}

func (h *DispatchEventHandler) ListForTerminal(w http.ResponseWriter, r *http.Request) {
	terminalID := chi.URLParam(r, "terminalID")

	filter := ports.DispatchFilter{
		Status:   domain.EventStatus(r.URL.Query().Get("status")),
		DriverID: r.URL.Query().Get("driver_id"),
	}
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "VALIDATION", "date must be YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}

	events, err := h.Svc.ListDispatchEventsForTerminal(r.Context(), terminalID, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.ListDispatchEventsResponse{
		Events: make([]dto.DispatchEventResponse, 0, len(events)),
	}
	for _, ev := range events {
		res.Events = append(res.Events, eventToResponse(ev))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *DispatchEventHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	var req dto.TransitionStatusRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "invalid json body")
		return
	}

	ev, err := h.Svc.TransitionStatus(r.Context(), id, domain.EventStatus(req.Status), services.TransitionOptions{
		CancellationReason:    req.CancellationReason,
		CancellationNotes:     req.CancellationNotes,
		EstimatedDelayMinutes: req.EstimatedDelayMinutes,
		Actor:                 actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, eventToResponse(ev))
}

func (h *DispatchEventHandler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	var req dto.AssignDriverRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "invalid json body")
		return
	}

	ev, err := h.Svc.AssignDriver(r.Context(), id, req.DriverID, actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, eventToResponse(ev))
}

func (h *DispatchEventHandler) AssignTruck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	var req dto.AssignTruckRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "invalid json body")
		return
	}

	ev, err := h.Svc.AssignTruck(r.Context(), id, req.TruckID, req.SubUnitID, actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, eventToResponse(ev))
}

func (h *DispatchEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	if err := h.Svc.DeleteDispatchEvent(r.Context(), id, actorFrom(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", param+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}
