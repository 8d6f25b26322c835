package handler

import (
	"net/http"
	"strconv"
	"time"

	"keywatch/internal/dto"
	"keywatch/internal/logger"
	"keywatch/internal/model"
	"keywatch/internal/repository"
)

const maxAlarmLimit = 500

// GetAlarmsHandler lists journalled alarm events. Query parameters: limit,
// kind and since (RFC 3339).
func GetAlarmsHandler(alarmRepo repository.AlarmRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseAlarmFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		events, err := alarmRepo.GetRecent(filter)
		if err != nil {
			logger.Error("Error reading alarm journal: %v", err)
			http.Error(w, "Failed to read alarms", http.StatusInternalServerError)
			return
		}
		counts, err := alarmRepo.CountByKind()
		if err != nil {
			logger.Error("Error counting alarms: %v", err)
			http.Error(w, "Failed to read alarms", http.StatusInternalServerError)
			return
		}

		if events == nil {
			events = []model.AlarmEvent{}
		}
		writeJSON(w, logger, http.StatusOK, dto.AlarmsResponse{Events: events, Counts: counts})
	}
}

// ClearAlarmsHandler empties the alarm journal.
func ClearAlarmsHandler(alarmRepo repository.AlarmRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := alarmRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing alarm journal: %v", err)
			http.Error(w, "Failed to clear alarms", http.StatusInternalServerError)
			return
		}
		logger.Info("Alarm journal cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseAlarmFilter(r *http.Request) (*dto.AlarmFilter, error) {
	q := r.URL.Query()
	filter := &dto.AlarmFilter{
		Kind:  q.Get("kind"),
		Limit: atoiDefault(q.Get("limit"), 50),
	}
	if filter.Limit > maxAlarmLimit {
		filter.Limit = maxAlarmLimit
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, err
		}
		filter.Since = t
	}
	return filter, nil
}

// atoiDefault parses a positive integer, falling back to def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
