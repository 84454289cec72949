package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/grading"
	"github.com/sam/code-clash/internal/leaderboard"
	"github.com/sam/code-clash/internal/repository"
	"github.com/sam/code-clash/internal/ws"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Grader runs code against a question's test cases. The production
// implementation is the grading.Client; tests substitute their own.
type Grader interface {
	Run(ctx context.Context, code, language string, cases []domain.TestCase) (*grading.Result, error)
}

// SubmissionService grades and records attempts, then drives the end-of-game
// checks that follow each one.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	roomRepo       repository.RoomRepository
	questionRepo   repository.QuestionRepository
	games          *GameService
	grader         Grader
	gradingTimeout time.Duration
	locks          *roomLocks
	broadcaster    Broadcaster
	leaderboard    *leaderboard.Cache
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	roomRepo repository.RoomRepository,
	questionRepo repository.QuestionRepository,
	games *GameService,
	grader Grader,
	gradingTimeout time.Duration,
	locks *roomLocks,
	broadcaster Broadcaster,
	lb *leaderboard.Cache,
) *SubmissionService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &SubmissionService{
		submissionRepo: submissionRepo,
		roomRepo:       roomRepo,
		questionRepo:   questionRepo,
		games:          games,
		grader:         grader,
		gradingTimeout: gradingTimeout,
		locks:          locks,
		broadcaster:    broadcaster,
		leaderboard:    lb,
	}
}

type SubmitInput struct {
	User       domain.Identity
	RoomID     *uuid.UUID
	QuestionID *uuid.UUID
	Code       string
	Language   string
	// Disqualified marks an attempt invalidated client-side (tab switch,
	// paste detection). It is recorded without grading.
	Disqualified bool
}

type SubmitResult struct {
	Submission *domain.Submission `json:"submission"`
	GameEnded  bool               `json:"gameEnded"`
	WinnerID   *uuid.UUID         `json:"winnerId,omitempty"`
	WinnerName string             `json:"winnerName,omitempty"`
}

// Submit grades an attempt. With only a question id it is a practice run and
// nothing is persisted; with a room id it is a competitive submission that
// feeds the game's finalize checks.
func (s *SubmissionService) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if input.RoomID == nil {
		if input.QuestionID == nil {
			return nil, domain.ErrQuestionNotFound
		}
		return s.practiceSubmit(ctx, input)
	}
	return s.competitiveSubmit(ctx, input)
}

func (s *SubmissionService) practiceSubmit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	question, err := s.questionRepo.GetByID(ctx, *input.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, err
	}

	result := s.grade(ctx, input.Code, input.Language, question.TestCaseList())

	submission := &domain.Submission{
		ID:            uuid.New(),
		UserID:        input.User.ID,
		QuestionID:    question.ID,
		Code:          input.Code,
		Language:      input.Language,
		IsCorrect:     result.IsCorrect,
		Feedback:      result.Feedback,
		ExecutionTime: result.ExecutionTime,
		SubmittedAt:   time.Now(),
	}
	submission.TestResults = marshalTestResults(result.TestResults)

	return &SubmitResult{Submission: submission}, nil
}

func (s *SubmissionService) competitiveSubmit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	roomID := *input.RoomID
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	if !room.IsActive {
		return nil, domain.ErrRoomInactive
	}
	if !room.HasParticipant(input.User.ID) {
		return nil, domain.ErrUnauthorized
	}

	game, err := s.games.ActiveGame(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if time.Now().After(game.Deadline()) {
		return nil, domain.ErrGameEnded
	}

	existing, err := s.submissionRepo.GetByGameAndUser(ctx, game.ID, input.User.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsCorrect {
		return nil, domain.ErrAlreadySolved
	}

	question, err := s.questionRepo.GetByID(ctx, game.QuestionID)
	if err != nil {
		return nil, err
	}

	var result *grading.Result
	if input.Disqualified {
		result = &grading.Result{IsCorrect: false, Feedback: "disqualified"}
	} else {
		result = s.grade(ctx, input.Code, input.Language, question.TestCaseList())
	}

	// Grading can outlast the game: the expiry timer and host end do not
	// wait for in-flight graders. Re-check before persisting so the attempt
	// never lands in an ended game.
	current, err := s.games.ActiveGame(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveGame) {
			return nil, domain.ErrGameEnded
		}
		return nil, err
	}
	if current.ID != game.ID {
		return nil, domain.ErrGameEnded
	}

	submission := &domain.Submission{
		ID:            uuid.New(),
		GameID:        game.ID,
		UserID:        input.User.ID,
		QuestionID:    question.ID,
		Code:          input.Code,
		Language:      input.Language,
		IsCorrect:     result.IsCorrect,
		Feedback:      result.Feedback,
		ExecutionTime: result.ExecutionTime,
		SubmittedAt:   time.Now(),
	}
	submission.TestResults = marshalTestResults(result.TestResults)

	if err := s.submissionRepo.Upsert(ctx, submission); err != nil {
		return nil, err
	}

	s.leaderboard.Record(ctx, game.ID, leaderboard.Entry{
		UserID:      input.User.ID,
		Username:    input.User.Username,
		IsCorrect:   submission.IsCorrect,
		ExecutionMs: submission.ExecutionTime,
		SubmittedAt: submission.SubmittedAt,
	})

	s.broadcaster.Publish(room.ID.String(), ws.EventSubmissionUpdate, ws.SubmissionUpdatePayload{
		RoomID:    room.ID,
		GameID:    game.ID,
		UserID:    input.User.ID,
		Username:  input.User.Username,
		IsCorrect: submission.IsCorrect,
	})

	out := &SubmitResult{Submission: submission}

	finalize, err := s.games.ResolveAfterSubmission(ctx, game, room, submission)
	if err != nil {
		log.Printf("finalize check failed for game %s: %v", game.ID, err)
		return out, nil
	}
	if finalize != nil {
		out.GameEnded = true
		out.WinnerID = finalize.WinnerID
		out.WinnerName = finalize.WinnerName
	}

	return out, nil
}

// grade never fails the submission: executor errors and timeouts degrade to
// an incorrect result with the fixed "execution failed" feedback.
func (s *SubmissionService) grade(ctx context.Context, code, language string, cases []domain.TestCase) *grading.Result {
	gradeCtx, cancel := context.WithTimeout(ctx, s.gradingTimeout)
	defer cancel()

	result, err := s.grader.Run(gradeCtx, code, language, cases)
	if err != nil {
		log.Printf("grading failed: %v", err)
		return &grading.Result{IsCorrect: false, Feedback: "execution failed"}
	}
	return result
}

func marshalTestResults(results []grading.TestResult) datatypes.JSON {
	if len(results) == 0 {
		return nil
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil
	}
	return data
}

// ListByGame returns the game's submissions ordered by submission time.
func (s *SubmissionService) ListByGame(ctx context.Context, gameID uuid.UUID) ([]*domain.Submission, error) {
	return s.submissionRepo.ListByGameID(ctx, gameID)
}

// ListByRoom returns the submissions for the room's active game.
func (s *SubmissionService) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Submission, error) {
	game, err := s.games.ActiveGame(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.submissionRepo.ListByGameID(ctx, game.ID)
}

// GetByGameAndUser returns the user's submission for the game, or nil when
// the user has not submitted yet.
func (s *SubmissionService) GetByGameAndUser(ctx context.Context, gameID, userID uuid.UUID) (*domain.Submission, error) {
	sub, err := s.submissionRepo.GetByGameAndUser(ctx, gameID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// Leaderboard returns the live leaderboard snapshot for a game.
func (s *SubmissionService) Leaderboard(ctx context.Context, gameID uuid.UUID) []leaderboard.Entry {
	return s.leaderboard.Snapshot(ctx, gameID)
}
