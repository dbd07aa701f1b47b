package repositories

import (
	"leaderboard/internal/models"

	"gorm.io/gorm"
)

// SQLStore serves the leaderboard from PostgreSQL or SQLite through gorm.
type SQLStore struct {
	*UserRepository
	*HistoryRepository
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{
		UserRepository:    &UserRepository{DB: db},
		HistoryRepository: &HistoryRepository{DB: db},
	}
}

// AutoMigrate creates or updates the leaderboard tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.ClaimHistory{})
}
