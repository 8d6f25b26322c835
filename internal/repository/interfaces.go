package repository

import (
	"keywatch/internal/dto"
	"keywatch/internal/model"
)

// AlarmRepository defines the interface for alarm journal operations.
type AlarmRepository interface {
	// Create operations
	InsertBatch(events []model.AlarmEvent) error

	// Read operations
	GetRecent(filter *dto.AlarmFilter) ([]model.AlarmEvent, error)
	CountByKind() (map[model.AlarmKind]int, error)

	// Delete operations
	DeleteAll() error
}
