package storage

import (
	"context"

	"gorm.io/gorm"

	"gobear/internal/models"
)

// PointsRepository defines the interface for the reward ledger.
type PointsRepository interface {
	// Award writes a ledger entry and bumps the user's Points counter.
	// Callers run it inside the same transaction as the triggering mutation.
	Award(ctx context.Context, entry *models.PointsEntry) error
	ListForUser(ctx context.Context, userID uint, limit int) ([]models.PointsEntry, error)
	CountForUser(ctx context.Context, userID uint) (int64, error)
}

type gormPointsRepository struct {
	db *gorm.DB
}

// NewGormPointsRepository creates a new GORM-based PointsRepository.
func NewGormPointsRepository(db *gorm.DB) PointsRepository {
	return &gormPointsRepository{db: db}
}

func (r *gormPointsRepository) Award(ctx context.Context, entry *models.PointsEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", entry.UserID).
		Update("points", gorm.Expr("points + ?", entry.Points)).Error
}

func (r *gormPointsRepository) ListForUser(ctx context.Context, userID uint, limit int) ([]models.PointsEntry, error) {
	var entries []models.PointsEntry
	if limit <= 0 {
		limit = 20
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *gormPointsRepository) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PointsEntry{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
