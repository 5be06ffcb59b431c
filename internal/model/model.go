package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists every struct that maps to a journal table.
var DatabaseModels = []interface{}{
	&Session{},
	&Transition{},
}

// Session is one coordinator lifetime.
type Session struct {
	ID        string     `json:"id" gorm:"primarykey;size:36"`
	StartedAt time.Time  `json:"startedAt" gorm:"index:idx_session_started_at"`
	EndedAt   *time.Time `json:"endedAt"`
	Source    string     `json:"source" gorm:"size:256"`
	Markers   int        `json:"markers"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Transition is one visual change applied to a marker.
type Transition struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time" gorm:"index:idx_transition_time"`
	SessionID   string    `json:"sessionId" gorm:"size:36;index:idx_transition_session_id"`
	Session     Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	MarkerIndex int       `json:"markerIndex" gorm:"index:idx_transition_marker_index"`

	Cause      string                      `json:"cause" gorm:"size:32;index:idx_transition_cause"`
	State      string                      `json:"state" gorm:"size:32"`
	GroupState string                      `json:"groupState" gorm:"size:32"`
	ZIndex     int                         `json:"zIndex"`
	LabelClass string                      `json:"labelClass" gorm:"size:128"`
	Flags      datatypes.JSONSlice[string] `json:"flags"`
	Position   datatypes.JSON              `json:"position"` // GeoJSON point
}

func (*Transition) TableName() string {
	return "transitions"
}
