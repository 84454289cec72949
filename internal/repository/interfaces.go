package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	GetByJoinCode(ctx context.Context, code string) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context) ([]*domain.Room, error)
}

type GameRepository interface {
	Create(ctx context.Context, game *domain.Game) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Game, error)
	ActiveByRoomID(ctx context.Context, roomID uuid.UUID) (*domain.Game, error)
	ListUnfinished(ctx context.Context) ([]*domain.Game, error)

	// Finalize is the exactly-once end-of-game primitive: it sets endedAt and
	// winnerId only when endedAt is still null and reports whether this call
	// performed the write. Losing the race is a normal outcome, not an error.
	Finalize(ctx context.Context, gameID uuid.UUID, winnerID *uuid.UUID, endedAt time.Time) (bool, error)
}

type SubmissionRepository interface {
	Upsert(ctx context.Context, submission *domain.Submission) error
	GetByGameAndUser(ctx context.Context, gameID, userID uuid.UUID) (*domain.Submission, error)
	ListByGameID(ctx context.Context, gameID uuid.UUID) ([]*domain.Submission, error)
	FirstCorrect(ctx context.Context, gameID uuid.UUID) (*domain.Submission, error)
	DistinctSubmitters(ctx context.Context, gameID uuid.UUID) ([]uuid.UUID, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, question *domain.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error)
	GetAll(ctx context.Context) ([]*domain.Question, error)
	RandomByDifficulty(ctx context.Context, difficulty string) (*domain.Question, error)
}

type Repositories struct {
	User       UserRepository
	Session    SessionRepository
	Room       RoomRepository
	Game       GameRepository
	Submission SubmissionRepository
	Question   QuestionRepository
}
