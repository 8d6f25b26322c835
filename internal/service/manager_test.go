package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"keywatch/internal/config"
	"keywatch/internal/dto"
	"keywatch/internal/logger"
	"keywatch/internal/metrics"
	"keywatch/internal/model"
	"keywatch/internal/service/alert"
	"keywatch/internal/service/capture"
	"keywatch/internal/service/occupancy"
	"keywatch/internal/service/storage"
	"keywatch/internal/service/websocket"
	"keywatch/internal/service/zone"
)

type testFrame struct{}

func (testFrame) Size() (int, int) { return 640, 480 }

type nopSounder struct{}

func (nopSounder) Play() error { return nil }
func (nopSounder) Stop() error { return nil }

type fixture struct {
	manager    *Manager[testFrame]
	monitor    *occupancy.Monitor
	geometry   *zone.Geometry
	controller *alert.Controller
	buffer     *storage.BufferService
	metrics    *metrics.Metrics
	hub        *websocket.HubService
	encoded    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		ZoneCount:          4,
		ZoneSpacing:        10,
		AlertThreshold:     5 * time.Second,
		AlertTick:          time.Second,
		AlarmBufferLimit:   100,
		AlarmFlushInterval: 10,
	}
	log := logger.NewNop()

	f := &fixture{
		monitor:  occupancy.New(cfg.ZoneCount),
		geometry: zone.NewGeometry(cfg.ZoneCount, cfg.ZoneSpacing),
		buffer:   storage.NewBufferService(cfg, log, nil),
		hub:      websocket.NewHubService(log),
	}
	f.controller = alert.NewController(f.monitor, nopSounder{}, cfg, log)
	f.metrics = metrics.New(func() capture.Stats { return capture.Stats{Processed: 7, Skipped: 1} })

	f.manager = NewManager(Deps[testFrame]{
		Monitor:    f.monitor,
		Geometry:   f.geometry,
		Controller: f.controller,
		Countdown:  capture.NewCountdown(60*time.Second, time.Now()),
		Stats:      func() capture.Stats { return capture.Stats{Processed: 7, Skipped: 1} },
		Hub:        f.hub,
		Buffer:     f.buffer,
		Metrics:    f.metrics,
		Encode: func(testFrame) ([]byte, error) {
			f.encoded++
			return []byte{0xff, 0xd8}, nil
		},
	}, 2, log)
	return f
}

func gauge(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					if m.GetCounter() != nil {
						return m.GetCounter().GetValue()
					}
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("Metric %s{%s=%q} not found", name, label, value)
	return 0
}

func TestManager_StatusReflectsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.geometry.For(640, 480)
	if err := f.monitor.Update(occupancy.State{false, true, false, false}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	status := f.manager.Status()

	if len(status.Zones) != 4 {
		t.Fatalf("Expected 4 zones, got %d", len(status.Zones))
	}
	if !status.Zones[1].Occupied || status.Zones[0].Occupied {
		t.Errorf("Unexpected occupancy in %+v", status.Zones)
	}
	if status.Zones[0].Label != "Box 1" || status.Zones[0].Width != 150 {
		t.Errorf("Unexpected zone 0 %+v", status.Zones[0])
	}
	if status.AllEmpty {
		t.Error("Expected AllEmpty false")
	}
	if status.Alarm.State != "idle" || status.Alarm.ThresholdSeconds != 5 {
		t.Errorf("Unexpected alarm status %+v", status.Alarm)
	}
	if status.Frames.Processed != 7 || status.Frames.Skipped != 1 {
		t.Errorf("Unexpected frame stats %+v", status.Frames)
	}
	if status.Countdown < 0 || status.Countdown > 60 {
		t.Errorf("Countdown out of range: %d", status.Countdown)
	}
}

func TestManager_StatusBeforeFirstFrame(t *testing.T) {
	f := newFixture(t)

	status := f.manager.Status()
	if len(status.Zones) != 0 || !status.AllEmpty {
		t.Errorf("Expected no zones and all empty before the first frame, got %+v", status)
	}
}

func TestManager_ControllerEventsAreJournalled(t *testing.T) {
	f := newFixture(t)
	start := time.Now()
	f.controller.Reset(start)

	f.controller.Tick(start.Add(5 * time.Second))

	if f.buffer.Len() != 1 {
		t.Fatalf("Expected 1 buffered alarm event, got %d", f.buffer.Len())
	}
	if v := gauge(t, f.metrics.Registry(), "keywatch_alarm_events_total", "kind", "sounded"); v != 1 {
		t.Errorf("Expected 1 sounded alarm counted, got %v", v)
	}
}

func TestManager_PlaybackErrorInDetail(t *testing.T) {
	f := newFixture(t)

	f.manager.HandleAlarmEvent(alert.Event{
		Kind:      model.AlarmPlaybackFailed,
		At:        time.Now(),
		EpisodeID: uuid.New(),
		Err:       errors.New("no device"),
	})

	if f.buffer.Len() != 1 {
		t.Fatalf("Expected 1 buffered alarm event, got %d", f.buffer.Len())
	}
	if v := gauge(t, f.metrics.Registry(), "keywatch_alarm_events_total", "kind", "playback_failed"); v != 1 {
		t.Errorf("Expected 1 failed playback counted, got %v", v)
	}
}

func TestManager_OccupancyMetricsOnChange(t *testing.T) {
	f := newFixture(t)

	f.manager.OnOccupancy(occupancy.State{true, false, false, true}, true)

	if v := gauge(t, f.metrics.Registry(), "keywatch_zone_occupied", "zone", "4"); v != 1 {
		t.Errorf("Expected zone 4 occupied, got %v", v)
	}
}

func TestManager_NoEncodingWithoutViewers(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.manager.OnFrame(testFrame{}, capture.Overlay{})
	}
	if f.encoded != 0 {
		t.Errorf("Expected no frames encoded without viewers, got %d", f.encoded)
	}
}

func connectViewer(t *testing.T, hub *websocket.HubService) *gorillaws.Conn {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		cancel()
		server.Close()
	})

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Viewer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestManager_StreamsEveryNthFrameToViewers(t *testing.T) {
	f := newFixture(t)
	conn := connectViewer(t, f.hub)

	for i := 0; i < 4; i++ {
		f.manager.OnFrame(testFrame{}, capture.Overlay{})
	}

	if f.encoded != 2 {
		t.Errorf("Expected every second frame encoded, got %d encodings", f.encoded)
	}

	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage %d failed: %v", i, err)
		}
		var msg dto.FrameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Invalid JSON %q: %v", data, err)
		}
		if msg.Type != dto.MessageFrame || msg.Image != "/9g=" {
			t.Errorf("Unexpected frame message %+v", msg)
		}
	}
}
