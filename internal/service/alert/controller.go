// Package alert decides when to start, repeat and silence the empty-slots
// alarm. It polls the occupancy monitor on its own ticker, independent of the
// camera frame rate.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"keywatch/internal/config"
	"keywatch/internal/logger"
	"keywatch/internal/model"
	"keywatch/internal/service/occupancy"
)

// State of the alarm state machine.
type State int

const (
	StateIdle State = iota
	StateAlarming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAlarming:
		return "alarming"
	default:
		return "unknown"
	}
}

// Sounder plays and silences the alert. Play must start playback and return
// without waiting for the sound to finish.
type Sounder interface {
	Play() error
	Stop() error
}

// OccupancyReader is the read side of the occupancy monitor.
type OccupancyReader interface {
	Snapshot() occupancy.State
}

// AlarmState is the controller's view of the alarm.
type AlarmState struct {
	State       State
	LastTrigger time.Time
	// EmptySince is the start of the current all-empty episode, zero while
	// any zone is occupied.
	EmptySince time.Time
	EpisodeID  uuid.UUID
	Sounded    int
}

// Event is emitted for every alarm delivery, failed delivery and silencing.
type Event struct {
	Kind      model.AlarmKind
	At        time.Time
	EpisodeID uuid.UUID
	EmptyFor  time.Duration
	Err       error
}

// Listener receives controller events on the controller goroutine. It must
// not block.
type Listener func(Event)

// Controller runs the debounced alarm. One threshold serves both as grace
// period before the first alert of an episode and as repeat interval.
type Controller struct {
	reader    OccupancyReader
	sounder   Sounder
	threshold time.Duration
	tick      time.Duration
	logger    *logger.Logger
	now       func() time.Time

	mu        sync.Mutex
	alarm     AlarmState
	listeners []Listener
}

// NewController creates a controller reading from reader and driving sounder.
// The first empty episode starts now.
func NewController(reader OccupancyReader, sounder Sounder, cfg *config.Config, logger *logger.Logger) *Controller {
	c := &Controller{
		reader:    reader,
		sounder:   sounder,
		threshold: cfg.AlertThreshold,
		tick:      cfg.AlertTick,
		logger:    logger,
		now:       time.Now,
	}
	c.Reset(c.now())
	return c
}

// AddListener registers l for future events.
func (c *Controller) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Reset returns the controller to idle and treats now as the start of an
// empty episode and as the last trigger.
func (c *Controller) Reset(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alarm = AlarmState{
		State:       StateIdle,
		LastTrigger: now,
		EmptySince:  now,
		EpisodeID:   uuid.New(),
	}
}

// State returns a copy of the current alarm state.
func (c *Controller) State() AlarmState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alarm
}

// Threshold returns the grace and repeat interval.
func (c *Controller) Threshold() time.Duration {
	return c.threshold
}

// Run evaluates the state machine every tick until ctx is done, then
// silences any sounding alarm. Each tick is evaluated at its scheduled time
// (start + n*tick), so wake-up latency never shifts the alert cadence.
func (c *Controller) Run(ctx context.Context) {
	start := c.now()
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	c.Reset(start)
	c.logger.Info("🔔 Alert controller started - threshold %s, tick %s", c.threshold, c.tick)

	var ticks int64
	for {
		select {
		case <-ctx.Done():
			c.shutdown(c.now())
			c.logger.Info("🔔 Alert controller stopped")
			return
		case <-ticker.C:
			ticks++
			c.Tick(start.Add(time.Duration(ticks) * c.tick))
		}
	}
}

type action int

const (
	actionNone action = iota
	actionSound
	actionSilence
)

// Tick evaluates one step of the state machine against the current snapshot.
func (c *Controller) Tick(now time.Time) {
	allEmpty := c.reader.Snapshot().AllEmpty()

	c.mu.Lock()
	act := actionNone
	a := &c.alarm
	ev := Event{At: now, EpisodeID: a.EpisodeID}

	switch {
	case !allEmpty:
		if a.State == StateAlarming {
			act = actionSilence
			ev.Kind = model.AlarmSilenced
			ev.EmptyFor = now.Sub(a.EmptySince)
		}
		a.State = StateIdle
		a.EmptySince = time.Time{}

	case a.EmptySince.IsZero():
		// First empty poll after occupancy: a new episode with its own grace period.
		a.EmptySince = now
		a.EpisodeID = uuid.New()
		ev.EpisodeID = a.EpisodeID

	case a.State == StateIdle && now.Sub(a.EmptySince) >= c.threshold,
		a.State == StateAlarming && now.Sub(a.LastTrigger) >= c.threshold:
		act = actionSound
		ev.Kind = model.AlarmSounded
		ev.EmptyFor = now.Sub(a.EmptySince)
		// Advanced even if playback fails, so a dead device is retried on the
		// repeat cadence and not every tick.
		a.LastTrigger = now
		a.State = StateAlarming
		a.Sounded++
	}

	listeners := c.listeners
	c.mu.Unlock()

	switch act {
	case actionSound:
		if err := c.sounder.Play(); err != nil {
			c.logger.Warning("Alert playback failed: %v", err)
			ev.Kind = model.AlarmPlaybackFailed
			ev.Err = err
		} else {
			c.logger.Info("🚨 All slots empty for %s - alert sounded", ev.EmptyFor.Truncate(time.Second))
		}
	case actionSilence:
		if err := c.sounder.Stop(); err != nil {
			c.logger.Warning("Failed to stop alert: %v", err)
		}
		c.logger.Info("✅ Slot occupied - alert silenced")
	default:
		return
	}

	for _, l := range listeners {
		l(ev)
	}
}

func (c *Controller) shutdown(now time.Time) {
	c.mu.Lock()
	wasAlarming := c.alarm.State == StateAlarming
	ev := Event{Kind: model.AlarmSilenced, At: now, EpisodeID: c.alarm.EpisodeID, EmptyFor: now.Sub(c.alarm.EmptySince)}
	c.alarm.State = StateIdle
	listeners := c.listeners
	c.mu.Unlock()

	if !wasAlarming {
		return
	}
	if err := c.sounder.Stop(); err != nil {
		c.logger.Warning("Failed to stop alert on shutdown: %v", err)
	}
	for _, l := range listeners {
		l(ev)
	}
}
