package route

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"keywatch/internal/config"
	"keywatch/internal/dto"
	"keywatch/internal/logger"
	"keywatch/internal/metrics"
	"keywatch/internal/model"
)

type fakeManager struct {
	status dto.StatusResponse
}

func (m *fakeManager) Status() dto.StatusResponse { return m.status }
func (m *fakeManager) ViewerCount() int            { return 2 }

type fakeHub struct{}

func (fakeHub) Register(client *websocket.Conn)   { client.Close() }
func (fakeHub) Unregister(client *websocket.Conn) {}

type fakeAlarmRepo struct {
	events     []model.AlarmEvent
	lastFilter *dto.AlarmFilter
	cleared    bool
}

func (r *fakeAlarmRepo) InsertBatch(events []model.AlarmEvent) error { return nil }

func (r *fakeAlarmRepo) GetRecent(filter *dto.AlarmFilter) ([]model.AlarmEvent, error) {
	r.lastFilter = filter
	if filter != nil && filter.Limit < len(r.events) {
		return r.events[:filter.Limit], nil
	}
	return r.events, nil
}

func (r *fakeAlarmRepo) CountByKind() (map[model.AlarmKind]int, error) {
	return map[model.AlarmKind]int{model.AlarmSounded: len(r.events)}, nil
}

func (r *fakeAlarmRepo) DeleteAll() error {
	r.cleared = true
	return nil
}

func newTestRouter(t *testing.T, token string) (http.Handler, *fakeAlarmRepo, *logger.Logger) {
	t.Helper()
	cfg := &config.Config{APIToken: token, LogDir: filepath.Join(t.TempDir(), "logs")}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	manager := &fakeManager{status: dto.StatusResponse{
		Zones: []dto.ZoneStatus{
			{Index: 0, Label: "Box 1", Occupied: true},
			{Index: 1, Label: "Box 2"},
		},
		Alarm: dto.AlarmStatus{State: "idle", ThresholdSeconds: 5},
	}}

	episode := uuid.New()
	repo := &fakeAlarmRepo{}
	for i := 0; i < 3; i++ {
		repo.events = append(repo.events, model.AlarmEvent{
			ID: uuid.New(), EpisodeID: episode, Kind: model.AlarmSounded, At: time.Now(),
		})
	}

	return SetupRoutes(manager, fakeHub{}, repo, metrics.New(nil), cfg, log), repo, log
}

func do(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ========================================
// API Tests
// ========================================

func TestRoutes_Status(t *testing.T) {
	h, _, _ := newTestRouter(t, "")

	rec := do(h, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	var status dto.StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(status.Zones) != 2 || !status.Zones[0].Occupied || status.Alarm.State != "idle" {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestRoutes_TokenRequired(t *testing.T) {
	h, _, _ := newTestRouter(t, "secret")

	if rec := do(h, http.MethodGet, "/api/status", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/status", "secret"); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/logs/info", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for logs without token, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("Expected metrics to stay public, got %d", rec.Code)
	}
}

func TestRoutes_Alarms(t *testing.T) {
	h, repo, _ := newTestRouter(t, "")

	rec := do(h, http.MethodGet, "/api/alarms?limit=2&kind=sounded", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp dto.AlarmsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Errorf("Expected 2 events, got %d", len(resp.Events))
	}
	if resp.Counts[model.AlarmSounded] != 3 {
		t.Errorf("Expected 3 sounded in counts, got %v", resp.Counts)
	}
	if repo.lastFilter == nil || repo.lastFilter.Kind != "sounded" || repo.lastFilter.Limit != 2 {
		t.Errorf("Unexpected filter %+v", repo.lastFilter)
	}
}

func TestRoutes_AlarmsBadSince(t *testing.T) {
	h, _, _ := newTestRouter(t, "")

	if rec := do(h, http.MethodGet, "/api/alarms?since=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed since, got %d", rec.Code)
	}
}

func TestRoutes_ClearAlarms(t *testing.T) {
	h, repo, _ := newTestRouter(t, "")

	if rec := do(h, http.MethodDelete, "/api/alarms", ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if !repo.cleared {
		t.Error("Expected journal to be cleared")
	}
}

// ========================================
// Log Endpoint Tests
// ========================================

func TestRoutes_Logs(t *testing.T) {
	h, _, log := newTestRouter(t, "")
	log.Warning("camera frame skipped")

	rec := do(h, http.MethodGet, "/logs/warning", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "camera frame skipped") {
		t.Errorf("Expected log entry in body, got %q", rec.Body.String())
	}

	if rec := do(h, http.MethodPost, "/logs/warning/clear", ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 on clear, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/logs/debug", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown level, got %d", rec.Code)
	}
}

func TestRoutes_MetricsReportsViewers(t *testing.T) {
	h, _, _ := newTestRouter(t, "")

	rec := do(h, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), "keywatch_viewers 2") {
		t.Errorf("Expected viewers gauge in scrape")
	}
}
