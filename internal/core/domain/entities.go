package domain

import (
	"time"
)

// Mark is a user-created point annotation with an attached text note.
type Mark struct {
	Key        string     `json:"key"`
	Coordinate Coordinate `json:"coordinate"`
	Message    string     `json:"message"`
	Distance   *float64   `json:"distance,omitempty"` // computed field
	CreatedAt  time.Time  `json:"created_at"`
}

// PendingMark is the mark being composed while the creation dialog is open.
type PendingMark struct {
	Coordinate Coordinate `json:"coordinate"`
	Message    string     `json:"message"`
}

// MaxMessageLength bounds the note attached to a mark, in runes.
const MaxMessageLength = 1000
