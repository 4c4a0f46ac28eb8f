package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"dispatch-engine/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, r, status, map[string]string{"error": code, "message": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP. Anything not in
// the map is a dependency or internal failure and stays opaque to the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRouteNotFound):
		writeError(w, r, http.StatusNotFound, "ROUTE_NOT_FOUND", "route does not exist")
	case errors.Is(err, domain.ErrDispatchNotFound):
		writeError(w, r, http.StatusNotFound, "DISPATCH_NOT_FOUND", "dispatch event does not exist")
	case errors.Is(err, domain.ErrStopNotFound):
		writeError(w, r, http.StatusNotFound, "STOP_NOT_FOUND", "stop does not exist for this dispatch event")
	case errors.Is(err, domain.ErrDuplicateDispatch):
		writeError(w, r, http.StatusConflict, "DUPLICATE_DISPATCH", "a dispatch event already exists for this route and date")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, r, http.StatusBadRequest, "INVALID_STATUS_TRANSITION", "requested status transition is not allowed")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, domain.ErrDriverUnavailable):
		writeError(w, r, http.StatusPreconditionFailed, "DRIVER_UNAVAILABLE", "driver is not available on the execution date")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "role is not permitted to perform this operation")
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, r, http.StatusConflict, "CONFLICT", "the event was modified concurrently, retry the request")
	default:
		log.Printf("request failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

// decodeStrict decodes exactly one JSON object, rejecting unknown fields and
// trailing content.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}
