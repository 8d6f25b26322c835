package storage

import (
	"context"
	"sync"
	"time"

	"keywatch/internal/config"
	"keywatch/internal/logger"
	"keywatch/internal/model"
	"keywatch/internal/repository"
)

// BufferService buffers alarm events in memory and periodically flushes them
// to the journal repository.
type BufferService struct {
	events        []model.AlarmEvent
	limit         int
	flushInterval time.Duration
	dropped       int
	mu            sync.Mutex
	logger        *logger.Logger
	alarmRepo     repository.AlarmRepository
}

// NewBufferService creates a new BufferService writing to alarmRepo.
func NewBufferService(cfg *config.Config, logger *logger.Logger, alarmRepo repository.AlarmRepository) *BufferService {
	return &BufferService{
		events:        make([]model.AlarmEvent, 0, cfg.AlarmBufferLimit),
		limit:         cfg.AlarmBufferLimit,
		flushInterval: time.Duration(cfg.AlarmFlushInterval) * time.Second,
		logger:        logger,
		alarmRepo:     alarmRepo,
	}
}

// Run flushes on a ticker until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushEvents()
			return
		case <-ticker.C:
			s.FlushEvents()
		}
	}
}

// Add appends an event to the buffer. Events beyond the limit are dropped
// until the next flush.
func (s *BufferService) Add(event model.AlarmEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit > 0 && len(s.events) >= s.limit {
		s.dropped++
		return
	}
	s.events = append(s.events, event)
	s.logger.Debug("Alarm buffer size: %d/%d", len(s.events), s.limit)
}

// Len returns the number of buffered events.
func (s *BufferService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// FlushEvents writes buffered events to the repository and resets the buffer.
// On a write error the events stay buffered for the next attempt.
func (s *BufferService) FlushEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dropped > 0 {
		s.logger.Warning("Alarm buffer full, dropped %d events", s.dropped)
		s.dropped = 0
	}
	if len(s.events) == 0 {
		return
	}

	if err := s.alarmRepo.InsertBatch(s.events); err != nil {
		s.logger.Error("Error saving alarm events to database: %v", err)
		return
	}

	s.logger.Info("Flushed %d alarm events to database", len(s.events))
	s.events = s.events[:0]
}
