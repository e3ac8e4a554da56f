package handlers

import (
	"net/http"
)

// HealthHandler reports service liveness
type HealthHandler struct {
	appName string
}

// NewHealthHandler creates a health handler
func NewHealthHandler(appName string) *HealthHandler {
	return &HealthHandler{appName: appName}
}

// Health returns a static OK payload
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": h.appName,
	})
}
