package sqlite

import (
	"fmt"
	"strings"
	"time"

	"keywatch/internal/dto"
	"keywatch/internal/model"
)

const defaultRecentLimit = 50

// AlarmRepository implements repository.AlarmRepository for SQLite.
type AlarmRepository struct {
	db *DB
}

// NewAlarmRepository creates a new SQLite alarm repository.
func NewAlarmRepository(db *DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

// InsertBatch adds multiple alarm events in a single transaction.
func (r *AlarmRepository) InsertBatch(events []model.AlarmEvent) error {
	if len(events) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO alarm_events (id, episode_id, kind, at, empty_for_ms, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.ID.String(), ev.EpisodeID.String(), string(ev.Kind),
			ev.At.UTC(), ev.EmptyFor.Milliseconds(), ev.Detail); err != nil {
			return fmt.Errorf("failed to insert alarm event: %w", err)
		}
	}

	return tx.Commit()
}

// GetRecent returns events newest first, narrowed by the optional filter.
func (r *AlarmRepository) GetRecent(filter *dto.AlarmFilter) ([]model.AlarmEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT id, episode_id, kind, at, empty_for_ms, detail FROM alarm_events`
	var conditions []string
	var args []interface{}
	limit := defaultRecentLimit

	if filter != nil {
		if filter.Kind != "" {
			conditions = append(conditions, "kind = ?")
			args = append(args, filter.Kind)
		}
		if !filter.Since.IsZero() {
			conditions = append(conditions, "at >= ?")
			args = append(args, filter.Since.UTC())
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY at DESC, created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarm events: %w", err)
	}
	defer rows.Close()

	var events []model.AlarmEvent
	for rows.Next() {
		var ev model.AlarmEvent
		var kind string
		var emptyForMs int64
		if err := rows.Scan(&ev.ID, &ev.EpisodeID, &kind, &ev.At, &emptyForMs, &ev.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan alarm event: %w", err)
		}
		ev.Kind = model.AlarmKind(kind)
		ev.EmptyFor = time.Duration(emptyForMs) * time.Millisecond
		events = append(events, ev)
	}

	return events, rows.Err()
}

// CountByKind returns the number of journalled events per kind.
func (r *AlarmRepository) CountByKind() (map[model.AlarmKind]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT kind, COUNT(*) FROM alarm_events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count alarm events: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.AlarmKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[model.AlarmKind(kind)] = n
	}

	return counts, rows.Err()
}

// DeleteAll removes every journalled event.
func (r *AlarmRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM alarm_events`); err != nil {
		return fmt.Errorf("failed to delete alarm events: %w", err)
	}
	return nil
}
