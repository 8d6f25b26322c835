package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"keywatch/internal/config"
	"keywatch/internal/dto"
	"keywatch/internal/logger"
	"keywatch/internal/model"
)

type fakeRepo struct {
	mu        sync.Mutex
	saved     []model.AlarmEvent
	insertErr error
}

func (r *fakeRepo) InsertBatch(events []model.AlarmEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.saved = append(r.saved, events...)
	return nil
}

func (r *fakeRepo) GetRecent(filter *dto.AlarmFilter) ([]model.AlarmEvent, error) {
	return nil, nil
}

func (r *fakeRepo) CountByKind() (map[model.AlarmKind]int, error) {
	return nil, nil
}

func (r *fakeRepo) DeleteAll() error {
	return nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func newEvent() model.AlarmEvent {
	return model.AlarmEvent{ID: uuid.New(), EpisodeID: uuid.New(), Kind: model.AlarmSounded, At: time.Now()}
}

func newService(repo *fakeRepo, limit, flushSeconds int) *BufferService {
	cfg := &config.Config{AlarmBufferLimit: limit, AlarmFlushInterval: flushSeconds}
	return NewBufferService(cfg, logger.NewNop(), repo)
}

func TestBufferService_FlushWritesAndClears(t *testing.T) {
	repo := &fakeRepo{}
	s := newService(repo, 10, 10)

	s.Add(newEvent())
	s.Add(newEvent())
	s.FlushEvents()

	if repo.count() != 2 {
		t.Errorf("Expected 2 saved events, got %d", repo.count())
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty buffer after flush, got %d", s.Len())
	}
}

func TestBufferService_DropsBeyondLimit(t *testing.T) {
	repo := &fakeRepo{}
	s := newService(repo, 3, 10)

	for i := 0; i < 5; i++ {
		s.Add(newEvent())
	}
	if s.Len() != 3 {
		t.Errorf("Expected buffer capped at 3, got %d", s.Len())
	}

	s.FlushEvents()
	s.Add(newEvent())
	if s.Len() != 1 {
		t.Errorf("Expected buffer to accept events after flush, got %d", s.Len())
	}
}

func TestBufferService_KeepsEventsOnError(t *testing.T) {
	repo := &fakeRepo{insertErr: errors.New("disk full")}
	s := newService(repo, 10, 10)

	s.Add(newEvent())
	s.FlushEvents()
	if s.Len() != 1 {
		t.Fatalf("Expected event kept after failed flush, got %d", s.Len())
	}

	repo.mu.Lock()
	repo.insertErr = nil
	repo.mu.Unlock()

	s.FlushEvents()
	if repo.count() != 1 || s.Len() != 0 {
		t.Errorf("Expected retry to save the event, saved=%d buffered=%d", repo.count(), s.Len())
	}
}

func TestBufferService_RunFlushesOnShutdown(t *testing.T) {
	repo := &fakeRepo{}
	s := newService(repo, 10, 3600)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.Add(newEvent())
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if repo.count() != 1 {
		t.Errorf("Expected final flush to save 1 event, got %d", repo.count())
	}
}
