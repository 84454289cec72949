package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"gorm.io/gorm"
)

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *questionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, question *domain.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	var question domain.Question
	err := r.db.WithContext(ctx).First(&question, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) GetAll(ctx context.Context) ([]*domain.Question, error) {
	var questions []*domain.Question
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// RandomByDifficulty picks uniformly among all questions of the difficulty.
func (r *questionRepository) RandomByDifficulty(ctx context.Context, difficulty string) (*domain.Question, error) {
	var question domain.Question
	err := r.db.WithContext(ctx).
		Where("difficulty = ?", difficulty).
		Order("RANDOM()").
		First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}
