package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/leaderboard"
	"github.com/sam/code-clash/internal/repository"
	"github.com/sam/code-clash/internal/ws"
	"gorm.io/gorm"
)

// finalizeRetries bounds retries of the conditional end-of-game update on
// transient store errors. Losing the race is not retried: it is success.
const finalizeRetries = 3

// expiryGrace absorbs client clock skew before the server-side timer forces
// the timeout finalize.
const expiryGrace = 2 * time.Second

// GameService is the game lifecycle coordinator: it starts games, owns the
// exactly-once finalize transition, and resolves winners.
type GameService struct {
	gameRepo       repository.GameRepository
	roomRepo       repository.RoomRepository
	questionRepo   repository.QuestionRepository
	submissionRepo repository.SubmissionRepository
	locks          *roomLocks
	broadcaster    Broadcaster
	leaderboard    *leaderboard.Cache

	timersMu sync.Mutex
	timers   map[uuid.UUID]*time.Timer
}

func NewGameService(
	gameRepo repository.GameRepository,
	roomRepo repository.RoomRepository,
	questionRepo repository.QuestionRepository,
	submissionRepo repository.SubmissionRepository,
	locks *roomLocks,
	broadcaster Broadcaster,
	lb *leaderboard.Cache,
) *GameService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &GameService{
		gameRepo:       gameRepo,
		roomRepo:       roomRepo,
		questionRepo:   questionRepo,
		submissionRepo: submissionRepo,
		locks:          locks,
		broadcaster:    broadcaster,
		leaderboard:    lb,
		timers:         make(map[uuid.UUID]*time.Timer),
	}
}

type StartGameInput struct {
	RoomID          uuid.UUID
	HostID          uuid.UUID
	Difficulty      string
	DurationSeconds int
}

// StartGame creates the room's single active game. The returned game carries
// the server-issued startedAt that every client countdown derives from.
func (s *GameService) StartGame(ctx context.Context, input StartGameInput) (*domain.Game, error) {
	unlock := s.locks.Lock(input.RoomID)
	defer unlock()

	room, err := s.roomRepo.GetByID(ctx, input.RoomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	if room.HostID != input.HostID {
		return nil, domain.ErrNotHost
	}
	if !room.IsActive {
		return nil, domain.ErrRoomInactive
	}
	if room.ParticipantCount() < domain.MinPlayers {
		return nil, domain.ErrNotEnoughPlayers
	}

	if _, err := s.gameRepo.ActiveByRoomID(ctx, input.RoomID); err == nil {
		return nil, domain.ErrGameInProgress
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	question, err := s.questionRepo.RandomByDifficulty(ctx, input.Difficulty)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoQuestions
		}
		return nil, err
	}

	game := &domain.Game{
		ID:              uuid.New(),
		RoomID:          room.ID,
		QuestionID:      question.ID,
		Difficulty:      input.Difficulty,
		StartedAt:       time.Now(),
		DurationSeconds: input.DurationSeconds,
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, err
	}

	s.armExpiryTimer(game)

	s.broadcaster.Publish(room.ID.String(), ws.EventGameStarted, ws.GameStartedPayload{
		RoomID:          room.ID,
		GameID:          game.ID,
		QuestionID:      question.ID,
		Difficulty:      game.Difficulty,
		DurationSeconds: game.DurationSeconds,
		StartedAt:       game.StartedAt,
	})

	return game, nil
}

// EndGame is the host's explicit end of the room's active game. It takes the
// room lock so the end serializes with submissions still being graded.
func (s *GameService) EndGame(ctx context.Context, roomID, requesterID uuid.UUID) (*FinalizeResult, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	if room.HostID != requesterID {
		return nil, domain.ErrNotHost
	}

	game, err := s.gameRepo.ActiveByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoActiveGame
		}
		return nil, err
	}

	return s.FinalizeGame(ctx, game.ID, domain.TriggerHostEnd)
}

type FinalizeResult struct {
	GameID     uuid.UUID
	WinnerID   *uuid.UUID
	WinnerName string
	EndedAt    time.Time
	// Applied reports whether this call performed the write. False means the
	// game was already finalized; the recorded winner is returned either way.
	Applied bool
}

// FinalizeGame is the exactly-once ACTIVE -> ENDED transition. Every trigger
// funnels through here; the store's conditional update arbitrates races and
// losers return the recorded result without re-broadcasting.
func (s *GameService) FinalizeGame(ctx context.Context, gameID uuid.UUID, trigger domain.EndTrigger) (*FinalizeResult, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGameNotFound
		}
		return nil, err
	}

	if game.Ended() {
		return s.recordedResult(ctx, game)
	}

	winnerID, winnerName, err := s.resolveWinner(ctx, gameID)
	if err != nil {
		return nil, err
	}

	endedAt := time.Now()
	var applied bool
	for attempt := 0; ; attempt++ {
		applied, err = s.gameRepo.Finalize(ctx, gameID, winnerID, endedAt)
		if err == nil {
			break
		}
		if attempt >= finalizeRetries {
			return nil, err
		}
		log.Printf("finalize retry %d for game %s: %v", attempt+1, gameID, err)
	}

	s.cancelExpiryTimer(gameID)

	if !applied {
		// Lost the race to another trigger; report its result.
		game, err = s.gameRepo.GetByID(ctx, gameID)
		if err != nil {
			return nil, err
		}
		return s.recordedResult(ctx, game)
	}

	s.leaderboard.Clear(ctx, gameID)

	if trigger == domain.TriggerTimeout {
		s.broadcaster.Publish(game.RoomID.String(), ws.EventTimeExpired, ws.TimeExpiredPayload{
			RoomID: game.RoomID,
			GameID: game.ID,
		})
	}
	s.broadcaster.Publish(game.RoomID.String(), ws.EventWinnerAnnounced, ws.WinnerAnnouncedPayload{
		RoomID:     game.RoomID,
		GameID:     game.ID,
		WinnerID:   winnerID,
		WinnerName: winnerName,
	})

	return &FinalizeResult{
		GameID:     gameID,
		WinnerID:   winnerID,
		WinnerName: winnerName,
		EndedAt:    endedAt,
		Applied:    true,
	}, nil
}

// resolveWinner applies the canonical rule: earliest correct submission wins,
// nobody wins when nobody was correct.
func (s *GameService) resolveWinner(ctx context.Context, gameID uuid.UUID) (*uuid.UUID, string, error) {
	first, err := s.submissionRepo.FirstCorrect(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}
	name := ""
	if first.User != nil {
		name = first.User.Username
	}
	return &first.UserID, name, nil
}

func (s *GameService) recordedResult(ctx context.Context, game *domain.Game) (*FinalizeResult, error) {
	result := &FinalizeResult{
		GameID:   game.ID,
		WinnerID: game.WinnerID,
	}
	if game.EndedAt != nil {
		result.EndedAt = *game.EndedAt
	}
	if game.WinnerID != nil {
		if first, err := s.submissionRepo.FirstCorrect(ctx, game.ID); err == nil && first.User != nil {
			result.WinnerName = first.User.Username
		}
	}
	return result, nil
}

// ResolveAfterSubmission runs the finalize checks that follow every recorded
// submission: first-correct, then all-participants-submitted. A nil result
// means the game continues.
func (s *GameService) ResolveAfterSubmission(ctx context.Context, game *domain.Game, room *domain.Room, submission *domain.Submission) (*FinalizeResult, error) {
	if submission.IsCorrect {
		first, err := s.submissionRepo.FirstCorrect(ctx, game.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if first != nil && first.UserID == submission.UserID {
			return s.FinalizeGame(ctx, game.ID, domain.TriggerFirstCorrect)
		}
	}

	submitters, err := s.submissionRepo.DistinctSubmitters(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	submitted := make(map[uuid.UUID]bool, len(submitters))
	for _, id := range submitters {
		submitted[id] = true
	}

	for _, p := range room.ParticipantList() {
		if !submitted[p.ID] {
			return nil, nil
		}
	}

	return s.FinalizeGame(ctx, game.ID, domain.TriggerAllSubmitted)
}

// ExpireGame is the duration-timeout path. Any caller may invoke it once the
// deadline has passed; early calls are rejected, late duplicates are no-ops.
func (s *GameService) ExpireGame(ctx context.Context, gameID uuid.UUID) (*FinalizeResult, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGameNotFound
		}
		return nil, err
	}

	if game.Ended() {
		return s.recordedResult(ctx, game)
	}
	if time.Now().Before(game.Deadline()) {
		return nil, domain.ErrGameInProgress
	}

	return s.FinalizeGame(ctx, gameID, domain.TriggerTimeout)
}

// ResumeTimers re-arms expiry timers for games that were still running when
// the process last stopped. Overdue games finalize immediately.
func (s *GameService) ResumeTimers(ctx context.Context) error {
	games, err := s.gameRepo.ListUnfinished(ctx)
	if err != nil {
		return err
	}
	for _, game := range games {
		s.armExpiryTimer(game)
	}
	return nil
}

func (s *GameService) armExpiryTimer(game *domain.Game) {
	duration := time.Until(game.Deadline()) + expiryGrace
	gameID := game.ID

	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	s.timers[gameID] = time.AfterFunc(duration, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.FinalizeGame(ctx, gameID, domain.TriggerTimeout); err != nil {
			log.Printf("expiry finalize failed for game %s: %v", gameID, err)
		}
	})
}

func (s *GameService) cancelExpiryTimer(gameID uuid.UUID) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[gameID]; ok {
		timer.Stop()
		delete(s.timers, gameID)
	}
}

// StopTimers cancels all pending expiry timers during shutdown.
func (s *GameService) StopTimers() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

type GameResults struct {
	Game        *domain.Game         `json:"game"`
	Question    *domain.Question     `json:"question"`
	Submissions []*domain.Submission `json:"submissions"`
	WinnerName  string               `json:"winnerName,omitempty"`
}

// Results assembles the authoritative post-game view clients fetch after a
// terminal broadcast.
func (s *GameService) Results(ctx context.Context, gameID uuid.UUID) (*GameResults, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGameNotFound
		}
		return nil, err
	}

	submissions, err := s.submissionRepo.ListByGameID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	results := &GameResults{
		Game:        game,
		Question:    game.Question,
		Submissions: submissions,
	}
	if game.WinnerID != nil {
		for _, sub := range submissions {
			if sub.UserID == *game.WinnerID && sub.User != nil {
				results.WinnerName = sub.User.Username
				break
			}
		}
	}

	return results, nil
}

// ActiveGame returns the room's in-progress game, if any.
func (s *GameService) ActiveGame(ctx context.Context, roomID uuid.UUID) (*domain.Game, error) {
	game, err := s.gameRepo.ActiveByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoActiveGame
		}
		return nil, err
	}
	return game, nil
}
