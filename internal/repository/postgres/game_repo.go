package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"gorm.io/gorm"
)

type gameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *gameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) Create(ctx context.Context, game *domain.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

func (r *gameRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	var game domain.Game
	err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("Room").
		First(&game, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *gameRepository) ActiveByRoomID(ctx context.Context, roomID uuid.UUID) (*domain.Game, error) {
	var game domain.Game
	err := r.db.WithContext(ctx).
		First(&game, "room_id = ? AND ended_at IS NULL", roomID).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *gameRepository) ListUnfinished(ctx context.Context) ([]*domain.Game, error) {
	var games []*domain.Game
	err := r.db.WithContext(ctx).
		Find(&games, "ended_at IS NULL").Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

// Finalize performs the conditional end-of-game update. The WHERE guard on
// ended_at makes the null -> set transition atomic; a zero row count means
// another trigger finalized first.
func (r *gameRepository) Finalize(ctx context.Context, gameID uuid.UUID, winnerID *uuid.UUID, endedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Game{}).
		Where("id = ? AND ended_at IS NULL", gameID).
		Updates(map[string]interface{}{
			"ended_at":  endedAt,
			"winner_id": winnerID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
