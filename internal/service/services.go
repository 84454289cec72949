package service

import (
	"github.com/sam/code-clash/internal/config"
	"github.com/sam/code-clash/internal/leaderboard"
	"github.com/sam/code-clash/internal/repository"
)

// Services bundles the coordinators behind a single constructor. They share
// one roomLocks instance so every check-then-act on a room takes the same
// mutex regardless of which coordinator runs it.
type Services struct {
	Auth       *AuthService
	Room       *RoomService
	Game       *GameService
	Submission *SubmissionService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, broadcaster Broadcaster, grader Grader, lb *leaderboard.Cache) *Services {
	locks := newRoomLocks()

	games := NewGameService(repos.Game, repos.Room, repos.Question, repos.Submission, locks, broadcaster, lb)

	return &Services{
		Auth:       NewAuthService(repos.User, repos.Session, cfg),
		Room:       NewRoomService(repos.Room, repos.Game, locks, broadcaster),
		Game:       games,
		Submission: NewSubmissionService(repos.Submission, repos.Room, repos.Question, games, grader, cfg.ExecutorTimeout, locks, broadcaster, lb),
	}
}
