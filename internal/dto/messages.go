package dto

import "time"

// Message types pushed to websocket viewers.
const (
	MessageOccupancy = "occupancy"
	MessageAlarm     = "alarm"
	MessageFrame     = "frame"
)

// OccupancyMessage is broadcast whenever the occupancy vector changes.
type OccupancyMessage struct {
	Type      string    `json:"type"`
	Occupancy []bool    `json:"occupancy"`
	Occupied  int       `json:"occupied"`
	AllEmpty  bool      `json:"all_empty"`
	At        time.Time `json:"at"`
}

// AlarmMessage is broadcast for every alarm event.
type AlarmMessage struct {
	Type            string    `json:"type"`
	Kind            string    `json:"kind"`
	EpisodeID       string    `json:"episode_id"`
	At              time.Time `json:"at"`
	EmptyForSeconds float64   `json:"empty_for_seconds"`
	Error           string    `json:"error,omitempty"`
}

// FrameMessage carries an annotated JPEG frame, base64 encoded.
type FrameMessage struct {
	Type  string `json:"type"`
	Image string `json:"image"`
}
