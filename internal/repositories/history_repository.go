package repositories

import (
	"context"

	"leaderboard/internal/models"

	"gorm.io/gorm"
)

type HistoryRepository struct {
	DB *gorm.DB
}

// ListHistory returns claim records, most recent first. A limit of zero or less
// returns everything.
func (r *HistoryRepository) ListHistory(ctx context.Context, limit int) ([]models.ClaimHistory, error) {
	history := []models.ClaimHistory{}
	query := r.DB.WithContext(ctx).Order("timestamp DESC").Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&history).Error
	return history, err
}
