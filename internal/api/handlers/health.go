package handlers

import (
	"net/http"
	"time"
)

// Health provides a minimal liveness check endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, r, http.StatusOK, res)
}
