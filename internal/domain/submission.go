package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Submission is a user's latest graded attempt for a game. One row per
// (game, user): resubmission before a correct answer overwrites in place.
type Submission struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	GameID        uuid.UUID      `json:"gameId" gorm:"type:uuid;not null;index:idx_submissions_game_user,unique"`
	UserID        uuid.UUID      `json:"userId" gorm:"type:uuid;not null;index:idx_submissions_game_user,unique"`
	QuestionID    uuid.UUID      `json:"questionId" gorm:"type:uuid;not null"`
	Code          string         `json:"code" gorm:"not null"`
	Language      string         `json:"language" gorm:"not null;default:'javascript'"`
	IsCorrect     bool           `json:"isCorrect" gorm:"not null;default:false"`
	Feedback      string         `json:"feedback"`
	ExecutionTime int            `json:"executionTime"`
	TestResults   datatypes.JSON `json:"testResults"`
	SubmittedAt   time.Time      `json:"submittedAt" gorm:"not null"`

	Game *Game `json:"game,omitempty" gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
