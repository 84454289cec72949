package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

// Upsert keeps at most one submission per (game, user): a second submit from
// the same user overwrites the prior attempt in place.
func (r *submissionRepository) Upsert(ctx context.Context, submission *domain.Submission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "game_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"code", "language", "is_correct", "feedback",
			"execution_time", "test_results", "submitted_at",
		}),
	}).Create(submission).Error
}

func (r *submissionRepository) GetByGameAndUser(ctx context.Context, gameID, userID uuid.UUID) (*domain.Submission, error) {
	var submission domain.Submission
	err := r.db.WithContext(ctx).
		First(&submission, "game_id = ? AND user_id = ?", gameID, userID).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepository) ListByGameID(ctx context.Context, gameID uuid.UUID) ([]*domain.Submission, error) {
	var submissions []*domain.Submission
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("game_id = ?", gameID).
		Order("is_correct DESC, submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

// FirstCorrect returns the earliest correct submission for the game, the
// record that decides the winner.
func (r *submissionRepository) FirstCorrect(ctx context.Context, gameID uuid.UUID) (*domain.Submission, error) {
	var submission domain.Submission
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("game_id = ? AND is_correct = ?", gameID, true).
		Order("submitted_at ASC").
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepository) DistinctSubmitters(ctx context.Context, gameID uuid.UUID) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("game_id = ?", gameID).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}
