package service

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"

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

// FrameEncoder turns an annotated frame into JPEG bytes.
type FrameEncoder[F capture.Frame] func(frame F) ([]byte, error)

// Deps are the services the manager fans events out to and reads status from.
type Deps[F capture.Frame] struct {
	Monitor    *occupancy.Monitor
	Geometry   *zone.Geometry
	Controller *alert.Controller
	Countdown  *capture.Countdown
	Stats      func() capture.Stats
	Hub        *websocket.HubService
	Buffer     *storage.BufferService
	Metrics    *metrics.Metrics
	Encode     FrameEncoder[F]
}

// Manager observes the capture loop and the alert controller and forwards
// what they report to viewers, the alarm journal and metrics.
type Manager[F capture.Frame] struct {
	deps        Deps[F]
	logger      *logger.Logger
	streamEvery int
	now         func() time.Time

	frameCounter   int
	frameCounterMu sync.Mutex
}

// NewManager wires the manager. streamEvery is the frame interval for viewer
// snapshots, 0 disables streaming.
func NewManager[F capture.Frame](deps Deps[F], streamEvery int, logger *logger.Logger) *Manager[F] {
	m := &Manager[F]{
		deps:        deps,
		logger:      logger,
		streamEvery: streamEvery,
		now:         time.Now,
	}
	if deps.Controller != nil {
		deps.Controller.AddListener(m.HandleAlarmEvent)
	}
	logger.Info("🎬 Manager started - streaming every %d frame(s)", streamEvery)
	return m
}

// OnOccupancy publishes occupancy changes.
func (m *Manager[F]) OnOccupancy(state occupancy.State, changed bool) {
	if !changed {
		return
	}
	if m.deps.Metrics != nil {
		m.deps.Metrics.SetOccupancy(state)
	}
	if m.deps.Hub == nil {
		return
	}

	err := m.deps.Hub.BroadcastJSON(dto.OccupancyMessage{
		Type:      dto.MessageOccupancy,
		Occupancy: state,
		Occupied:  state.Occupied(),
		AllEmpty:  state.AllEmpty(),
		At:        m.now(),
	})
	if err != nil {
		m.logger.Error("Failed to encode occupancy message: %v", err)
	}
}

// OnFrame sends every Nth annotated frame to connected viewers.
func (m *Manager[F]) OnFrame(frame F, overlay capture.Overlay) {
	if m.streamEvery <= 0 || m.deps.Hub == nil || m.deps.Encode == nil {
		return
	}
	if m.deps.Hub.GetClientCount() == 0 {
		return
	}

	m.frameCounterMu.Lock()
	m.frameCounter++
	due := m.frameCounter%m.streamEvery == 0
	if due {
		m.frameCounter = 0
	}
	m.frameCounterMu.Unlock()
	if !due {
		return
	}

	image, err := m.deps.Encode(frame)
	if err != nil {
		m.logger.Warning("Failed to encode frame for viewers: %v", err)
		return
	}

	err = m.deps.Hub.BroadcastJSON(dto.FrameMessage{
		Type:  dto.MessageFrame,
		Image: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		m.logger.Error("Failed to encode frame message: %v", err)
		return
	}
	if m.deps.Metrics != nil {
		m.deps.Metrics.IncFramesStreamed()
	}
}

// HandleAlarmEvent journals, counts and broadcasts a controller event.
func (m *Manager[F]) HandleAlarmEvent(ev alert.Event) {
	detail := ""
	if ev.Err != nil {
		detail = ev.Err.Error()
	}

	if m.deps.Buffer != nil {
		m.deps.Buffer.Add(model.AlarmEvent{
			ID:        uuid.New(),
			EpisodeID: ev.EpisodeID,
			Kind:      ev.Kind,
			At:        ev.At,
			EmptyFor:  ev.EmptyFor,
			Detail:    detail,
		})
	}

	if m.deps.Metrics != nil {
		m.deps.Metrics.IncAlarm(ev.Kind)
		m.deps.Metrics.SetAlarmActive(ev.Kind != model.AlarmSilenced)
	}

	if m.deps.Hub != nil {
		err := m.deps.Hub.BroadcastJSON(dto.AlarmMessage{
			Type:            dto.MessageAlarm,
			Kind:            string(ev.Kind),
			EpisodeID:       ev.EpisodeID.String(),
			At:              ev.At,
			EmptyForSeconds: ev.EmptyFor.Seconds(),
			Error:           detail,
		})
		if err != nil {
			m.logger.Error("Failed to encode alarm message: %v", err)
		}
	}
}

// Status assembles the current zones, occupancy and alarm state.
func (m *Manager[F]) Status() dto.StatusResponse {
	now := m.now()
	state := m.deps.Monitor.Snapshot()
	zones := m.deps.Geometry.Current()

	resp := dto.StatusResponse{
		Zones:    make([]dto.ZoneStatus, 0, len(zones)),
		AllEmpty: state.AllEmpty(),
		At:       now,
	}

	for i, z := range zones {
		resp.Zones = append(resp.Zones, dto.ZoneStatus{
			Index:    z.Index,
			Label:    z.Label,
			X:        z.Rect.Min.X,
			Y:        z.Rect.Min.Y,
			Width:    max(z.Rect.Dx(), 0),
			Height:   max(z.Rect.Dy(), 0),
			Occupied: i < len(state) && state[i],
		})
	}

	if m.deps.Controller != nil {
		alarm := m.deps.Controller.State()
		resp.Alarm = dto.AlarmStatus{
			State:            alarm.State.String(),
			LastTrigger:      alarm.LastTrigger,
			EpisodeID:        alarm.EpisodeID.String(),
			Sounded:          alarm.Sounded,
			ThresholdSeconds: m.deps.Controller.Threshold().Seconds(),
		}
		if !alarm.EmptySince.IsZero() {
			since := alarm.EmptySince
			resp.Alarm.EmptySince = &since
		}
	}

	if m.deps.Countdown != nil {
		resp.Countdown = m.deps.Countdown.Remaining(now)
	}
	if m.deps.Stats != nil {
		stats := m.deps.Stats()
		resp.Frames = dto.FrameStats{Processed: stats.Processed, Skipped: stats.Skipped}
	}
	if m.deps.Hub != nil {
		resp.Viewers = m.deps.Hub.GetClientCount()
	}

	return resp
}

// ViewerCount returns the number of connected viewers.
func (m *Manager[F]) ViewerCount() int {
	if m.deps.Hub == nil {
		return 0
	}
	return m.deps.Hub.GetClientCount()
}

func (m *Manager[F]) GetWebsocketService() *websocket.HubService {
	return m.deps.Hub
}

func (m *Manager[F]) GetBufferService() *storage.BufferService {
	return m.deps.Buffer
}
