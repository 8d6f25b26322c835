package handler

import (
	"encoding/json"
	"net/http"

	"keywatch/internal/dto"
	"keywatch/internal/logger"
)

// StatusSource provides the live occupancy and alarm status.
type StatusSource interface {
	Status() dto.StatusResponse
}

// StatusHandler serves GET /api/status.
func StatusHandler(source StatusSource, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, source.Status())
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}
