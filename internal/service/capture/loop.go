// Package capture runs the per-frame pipeline: read a frame, detect coloured
// regions, classify them into zones, publish occupancy and render the overlay.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"keywatch/internal/logger"
	"keywatch/internal/model"
	"keywatch/internal/service/occupancy"
	"keywatch/internal/service/zone"
)

var (
	// ErrFrameUnavailable is a transient read failure; the frame is skipped.
	ErrFrameUnavailable = errors.New("frame unavailable")
	// ErrSourceClosed ends the loop.
	ErrSourceClosed = errors.New("frame source closed")
)

// Frame is anything with pixel dimensions.
type Frame interface {
	Size() (width, height int)
}

// Source yields frames. A returned frame is only valid until the next call.
type Source[F Frame] interface {
	Next() (F, error)
}

// Detector extracts coloured regions from a frame.
type Detector[F Frame] interface {
	Detect(frame F) ([]model.Region, error)
}

// Overlay is what the display draws on top of a frame.
type Overlay struct {
	Zones     []model.Zone
	Occupancy occupancy.State
	Countdown int
}

// Display renders a frame with its overlay and reports whether the user asked
// to quit.
type Display[F Frame] interface {
	Show(frame F, overlay Overlay) (quit bool, err error)
}

// Observer is notified after every processed frame. Implementations must not
// block the loop.
type Observer[F Frame] interface {
	OnOccupancy(state occupancy.State, changed bool)
	OnFrame(frame F, overlay Overlay)
}

// OccupancyWriter is the write side of the occupancy monitor.
type OccupancyWriter interface {
	Update(occupancy.State) error
}

// Stats counts loop activity.
type Stats struct {
	Processed uint64 `json:"processed"`
	Skipped   uint64 `json:"skipped"`
}

// Loop is the capture/render loop.
type Loop[F Frame] struct {
	source    Source[F]
	detector  Detector[F]
	display   Display[F]
	geometry  *zone.Geometry
	monitor   OccupancyWriter
	countdown *Countdown
	observers []Observer[F]
	logger    *logger.Logger
	now       func() time.Time

	retryDelay time.Duration
	last       occupancy.State

	processed atomic.Uint64
	skipped   atomic.Uint64
}

// NewLoop wires a capture loop.
func NewLoop[F Frame](source Source[F], detector Detector[F], display Display[F], geometry *zone.Geometry, monitor OccupancyWriter, countdown *Countdown, logger *logger.Logger) *Loop[F] {
	return &Loop[F]{
		source:     source,
		detector:   detector,
		display:    display,
		geometry:   geometry,
		monitor:    monitor,
		countdown:  countdown,
		logger:     logger,
		now:        time.Now,
		retryDelay: 50 * time.Millisecond,
	}
}

// AddObserver registers o. Call before Run.
func (l *Loop[F]) AddObserver(o Observer[F]) {
	l.observers = append(l.observers, o)
}

// Stats returns processed and skipped frame counts.
func (l *Loop[F]) Stats() Stats {
	return Stats{Processed: l.processed.Load(), Skipped: l.skipped.Load()}
}

// Run processes frames until the display asks to quit, the source closes or
// ctx is done. It returns an error only for contract violations.
func (l *Loop[F]) Run(ctx context.Context) error {
	l.logger.Info("🎥 Capture loop started")
	defer l.logger.Info("🎥 Capture loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		quit, err := l.Step()
		switch {
		case err == nil:
		case errors.Is(err, ErrSourceClosed):
			l.logger.Info("Frame source closed")
			return nil
		case errors.Is(err, occupancy.ErrContractViolation):
			return err
		default:
			l.skipped.Add(1)
			l.logger.Warning("Skipping frame: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.retryDelay):
			}
			continue
		}

		if quit {
			l.logger.Info("Quit requested")
			return nil
		}
	}
}

// Step processes one frame. Errors other than contract violations and
// ErrSourceClosed mean the frame was skipped.
func (l *Loop[F]) Step() (quit bool, err error) {
	frame, err := l.source.Next()
	if err != nil {
		return false, err
	}

	width, height := frame.Size()
	zones := l.geometry.For(width, height)

	regions, err := l.detector.Detect(frame)
	if err != nil {
		return false, fmt.Errorf("detect: %w", err)
	}

	state := occupancy.State(zone.Classify(regions, zones))
	if err := l.monitor.Update(state); err != nil {
		return false, err
	}
	l.processed.Add(1)

	changed := !state.Equal(l.last)
	if changed {
		l.logger.Debug("Occupancy changed: %v", []bool(state))
		l.last = state
	}

	overlay := Overlay{
		Zones:     zones,
		Occupancy: state,
		Countdown: l.countdown.Remaining(l.now()),
	}

	for _, o := range l.observers {
		o.OnOccupancy(state, changed)
	}

	quit, err = l.display.Show(frame, overlay)
	if err != nil {
		// Rendering is display-only, occupancy was already published.
		l.logger.Warning("Failed to render frame: %v", err)
	}

	for _, o := range l.observers {
		o.OnFrame(frame, overlay)
	}

	return quit, nil
}
