package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keywatch/internal/model"
	"keywatch/internal/service/capture"
)

// Metrics holds Prometheus collectors for the key slot monitor.
type Metrics struct {
	registry      *prometheus.Registry
	zoneOccupied  *prometheus.GaugeVec
	alarmActive   prometheus.Gauge
	alarmsTotal   *prometheus.CounterVec
	viewers       prometheus.Gauge
	frameMessages prometheus.Counter
}

// New creates and registers the collectors. stats is sampled on every scrape
// for frame counters and may be nil.
func New(stats func() capture.Stats) *Metrics {
	registry := prometheus.NewRegistry()

	zoneOccupied := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "keywatch_zone_occupied",
		Help: "1 when a key is detected in the zone, 0 otherwise",
	}, []string{"zone"})
	alarmActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "keywatch_alarm_active",
		Help: "1 while the empty-slots alarm is sounding",
	})
	alarmsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keywatch_alarm_events_total",
		Help: "Alarm events by kind",
	}, []string{"kind"})
	viewers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "keywatch_viewers",
		Help: "Connected websocket viewers",
	})
	frameMessages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keywatch_frames_streamed_total",
		Help: "Annotated frames pushed to viewers",
	})

	registry.MustRegister(zoneOccupied, alarmActive, alarmsTotal, viewers, frameMessages)

	if stats != nil {
		registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "keywatch_frames_processed_total",
				Help: "Frames classified by the capture loop",
			}, func() float64 { return float64(stats().Processed) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "keywatch_frames_skipped_total",
				Help: "Frames skipped after a read or detection failure",
			}, func() float64 { return float64(stats().Skipped) }),
		)
	}

	// Known kinds start at zero so rate() works from the first scrape.
	for _, kind := range []model.AlarmKind{model.AlarmSounded, model.AlarmSilenced, model.AlarmPlaybackFailed} {
		alarmsTotal.WithLabelValues(string(kind))
	}

	return &Metrics{
		registry:      registry,
		zoneOccupied:  zoneOccupied,
		alarmActive:   alarmActive,
		alarmsTotal:   alarmsTotal,
		viewers:       viewers,
		frameMessages: frameMessages,
	}
}

// SetOccupancy publishes one gauge per zone, labelled from 1.
func (m *Metrics) SetOccupancy(occupancy []bool) {
	for i, occupied := range occupancy {
		v := 0.0
		if occupied {
			v = 1
		}
		m.zoneOccupied.WithLabelValues(strconv.Itoa(i + 1)).Set(v)
	}
}

// SetAlarmActive sets the alarm gauge.
func (m *Metrics) SetAlarmActive(active bool) {
	if active {
		m.alarmActive.Set(1)
		return
	}
	m.alarmActive.Set(0)
}

// IncAlarm counts an alarm event.
func (m *Metrics) IncAlarm(kind model.AlarmKind) {
	m.alarmsTotal.WithLabelValues(string(kind)).Inc()
}

// SetViewers sets the connected viewers gauge.
func (m *Metrics) SetViewers(n int) {
	m.viewers.Set(float64(n))
}

// IncFramesStreamed counts a frame pushed to viewers.
func (m *Metrics) IncFramesStreamed() {
	m.frameMessages.Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
