package domain

import (
	"time"

	"github.com/google/uuid"
)

// Game is one timed challenge instance scoped to a room. At most one game per
// room has a null EndedAt; EndedAt transitions null -> set exactly once.
type Game struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomID          uuid.UUID  `json:"roomId" gorm:"type:uuid;not null;index"`
	QuestionID      uuid.UUID  `json:"questionId" gorm:"type:uuid;not null"`
	Difficulty      string     `json:"difficulty" gorm:"not null"`
	StartedAt       time.Time  `json:"startedAt" gorm:"not null"`
	DurationSeconds int        `json:"durationSeconds" gorm:"not null;default:300"`
	EndedAt         *time.Time `json:"endedAt"`
	WinnerID        *uuid.UUID `json:"winnerId" gorm:"type:uuid"`

	Room     *Room     `json:"room,omitempty" gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (g *Game) Ended() bool {
	return g.EndedAt != nil
}

// Deadline is the soft expiry derived from the server-issued start time.
func (g *Game) Deadline() time.Time {
	return g.StartedAt.Add(time.Duration(g.DurationSeconds) * time.Second)
}

// EndTrigger identifies which path requested game finalization.
type EndTrigger string

const (
	TriggerFirstCorrect EndTrigger = "first_correct"
	TriggerAllSubmitted EndTrigger = "all_submitted"
	TriggerHostEnd      EndTrigger = "host_end"
	TriggerTimeout      EndTrigger = "timeout"
)
