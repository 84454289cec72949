package postgres

import (
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&domain.User{},
		&domain.UserSession{},
		&domain.Room{},
		&domain.Question{},
		&domain.Game{},
		&domain.Submission{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:       NewUserRepository(db),
		Session:    NewSessionRepository(db),
		Room:       NewRoomRepository(db),
		Game:       NewGameRepository(db),
		Submission: NewSubmissionRepository(db),
		Question:   NewQuestionRepository(db),
	}
}
