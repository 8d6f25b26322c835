package dto

import (
	"time"

	"keywatch/internal/model"
)

// ZoneStatus describes one slot in the status response.
type ZoneStatus struct {
	Index    int    `json:"index"`
	Label    string `json:"label"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Occupied bool   `json:"occupied"`
}

// AlarmStatus is the alert controller state as served by the API.
type AlarmStatus struct {
	State            string     `json:"state"`
	LastTrigger      time.Time  `json:"last_trigger"`
	EmptySince       *time.Time `json:"empty_since,omitempty"`
	EpisodeID        string     `json:"episode_id"`
	Sounded          int        `json:"sounded"`
	ThresholdSeconds float64    `json:"threshold_seconds"`
}

// FrameStats counts processed and skipped frames.
type FrameStats struct {
	Processed uint64 `json:"processed"`
	Skipped   uint64 `json:"skipped"`
}

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Zones     []ZoneStatus `json:"zones"`
	AllEmpty  bool         `json:"all_empty"`
	Alarm     AlarmStatus  `json:"alarm"`
	Countdown int          `json:"countdown"`
	Frames    FrameStats   `json:"frames"`
	Viewers   int          `json:"viewers"`
	At        time.Time    `json:"at"`
}

// AlarmFilter narrows the alarm journal listing.
type AlarmFilter struct {
	Kind  string
	Since time.Time
	Limit int
}

// AlarmsResponse is the payload of GET /api/alarms.
type AlarmsResponse struct {
	Events []model.AlarmEvent      `json:"events"`
	Counts map[model.AlarmKind]int `json:"counts"`
}
