package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"keywatch/internal/logger"
	"keywatch/internal/model"
	"keywatch/internal/service/occupancy"
	"keywatch/internal/service/zone"
)

type fakeFrame struct {
	width, height int
	regions       []model.Region
	detectErr     error
}

func (f *fakeFrame) Size() (int, int) { return f.width, f.height }

type fakeSource struct {
	frames []*fakeFrame
	errs   []error
	pos    int
}

func (s *fakeSource) Next() (*fakeFrame, error) {
	if s.pos >= len(s.frames) {
		return nil, ErrSourceClosed
	}
	i := s.pos
	s.pos++
	if s.errs != nil && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.frames[i], nil
}

type fakeDetector struct{}

func (fakeDetector) Detect(f *fakeFrame) ([]model.Region, error) {
	return f.regions, f.detectErr
}

type fakeDisplay struct {
	shown  []Overlay
	quitAt int
}

func (d *fakeDisplay) Show(_ *fakeFrame, o Overlay) (bool, error) {
	d.shown = append(d.shown, o)
	return d.quitAt > 0 && len(d.shown) >= d.quitAt, nil
}

type recordingObserver struct {
	states  []occupancy.State
	changes int
	frames  int
}

func (r *recordingObserver) OnOccupancy(s occupancy.State, changed bool) {
	r.states = append(r.states, s)
	if changed {
		r.changes++
	}
}

func (r *recordingObserver) OnFrame(*fakeFrame, Overlay) { r.frames++ }

func frameWith(regions ...model.Region) *fakeFrame {
	return &fakeFrame{width: 640, height: 480, regions: regions}
}

// inZone returns a small region centred in zone i of the 640x480 reference layout.
func inZone(i int) model.Region {
	return model.NewRegion(i*160+70, 235, 10, 10)
}

func newTestLoop(src *fakeSource, display *fakeDisplay, monitor OccupancyWriter) *Loop[*fakeFrame] {
	l := NewLoop[*fakeFrame](src, fakeDetector{}, display, zone.NewGeometry(4, 10), monitor, NewCountdown(60*time.Second, time.Now()), logger.NewNop())
	l.retryDelay = time.Millisecond
	return l
}

func TestLoop_PublishesOccupancy(t *testing.T) {
	src := &fakeSource{frames: []*fakeFrame{
		frameWith(),
		frameWith(inZone(1)),
		frameWith(inZone(1)),
		frameWith(inZone(0), inZone(3)),
	}}
	display := &fakeDisplay{}
	monitor := occupancy.New(4)
	obs := &recordingObserver{}

	l := newTestLoop(src, display, monitor)
	l.AddObserver(obs)

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := monitor.Snapshot(); !got.Equal(occupancy.State{true, false, false, true}) {
		t.Errorf("Final occupancy %v", got)
	}
	if monitor.Version() != 4 {
		t.Errorf("Expected 4 updates, got %d", monitor.Version())
	}
	if len(display.shown) != 4 || obs.frames != 4 {
		t.Errorf("Expected 4 rendered frames, got %d/%d", len(display.shown), obs.frames)
	}
	// first frame differs from the nil initial state, third repeats the second
	if obs.changes != 3 {
		t.Errorf("Expected 3 occupancy changes, got %d", obs.changes)
	}
	if len(display.shown[1].Zones) != 4 || !display.shown[1].Occupancy.Equal(occupancy.State{false, true, false, false}) {
		t.Errorf("Unexpected overlay %+v", display.shown[1])
	}
	if stats := l.Stats(); stats.Processed != 4 || stats.Skipped != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestLoop_SkipsTransientFailures(t *testing.T) {
	src := &fakeSource{
		frames: []*fakeFrame{frameWith(inZone(2)), nil, {width: 640, height: 480, detectErr: errors.New("bad frame")}, frameWith()},
		errs:   []error{nil, ErrFrameUnavailable, nil, nil},
	}
	display := &fakeDisplay{}
	monitor := occupancy.New(4)

	l := newTestLoop(src, display, monitor)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats := l.Stats(); stats.Processed != 2 || stats.Skipped != 2 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if monitor.Version() != 2 {
		t.Errorf("Skipped frames must not update occupancy, version %d", monitor.Version())
	}
}

func TestLoop_QuitFromDisplay(t *testing.T) {
	src := &fakeSource{frames: []*fakeFrame{frameWith(), frameWith(), frameWith(), frameWith()}}
	display := &fakeDisplay{quitAt: 2}

	l := newTestLoop(src, display, occupancy.New(4))
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(display.shown) != 2 {
		t.Errorf("Expected loop to stop after 2 frames, got %d", len(display.shown))
	}
}

func TestLoop_ContractViolationIsFatal(t *testing.T) {
	src := &fakeSource{frames: []*fakeFrame{frameWith(inZone(0))}}
	monitor := occupancy.New(3) // geometry produces 4 zones

	l := newTestLoop(src, &fakeDisplay{}, monitor)
	err := l.Run(context.Background())
	if !errors.Is(err, occupancy.ErrContractViolation) {
		t.Fatalf("Expected contract violation, got %v", err)
	}
	if monitor.Version() != 0 {
		t.Error("Monitor must keep its prior state")
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	src := &fakeSource{frames: []*fakeFrame{frameWith()}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := newTestLoop(src, &fakeDisplay{}, occupancy.New(4))
	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if src.pos != 0 {
		t.Error("No frame should be read after cancellation")
	}
}

func TestCountdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCountdown(60*time.Second, start)

	tests := []struct {
		offset   time.Duration
		expected int
	}{
		{0, 60},
		{999 * time.Millisecond, 60},
		{time.Second, 59},
		{59 * time.Second, 1},
		{60 * time.Second, 0},
		{61 * time.Second, 60},
		{62 * time.Second, 59},
		{-time.Second, 60},
	}
	for _, tt := range tests {
		if got := c.Remaining(start.Add(tt.offset)); got != tt.expected {
			t.Errorf("Remaining(+%s) = %d, expected %d", tt.offset, got, tt.expected)
		}
	}

	if NewCountdown(0, start).Remaining(start) != 0 {
		t.Error("Zero period should display 0")
	}
}
