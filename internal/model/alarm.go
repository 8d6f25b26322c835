package model

import (
	"time"

	"github.com/google/uuid"
)

// AlarmKind classifies an alarm journal entry.
type AlarmKind string

const (
	AlarmSounded        AlarmKind = "sounded"
	AlarmSilenced       AlarmKind = "silenced"
	AlarmPlaybackFailed AlarmKind = "playback_failed"
)

// AlarmEvent is one entry of the alarm journal. Events of the same empty
// episode share an EpisodeID.
type AlarmEvent struct {
	ID        uuid.UUID     `json:"id"`
	EpisodeID uuid.UUID     `json:"episode_id"`
	Kind      AlarmKind     `json:"kind"`
	At        time.Time     `json:"at"`
	EmptyFor  time.Duration `json:"empty_for_ns"`
	Detail    string        `json:"detail,omitempty"`
}
