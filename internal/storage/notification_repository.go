package storage

import (
	"context"

	"gorm.io/gorm"

	"gobear/internal/models"
)

// NotificationRepository defines the interface for notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uint) (int64, error)
}

type gormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GORM-based NotificationRepository.
func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormNotificationRepository) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	var notifications []models.Notification
	if limit <= 0 {
		limit = 50
	}
	dbQuery := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if offset > 0 {
		dbQuery = dbQuery.Offset(offset)
	}
	err := dbQuery.Find(&notifications).Error
	return notifications, err
}

// MarkRead flips the read flag. Scoped to the owning user so callers cannot
// touch someone else's notifications.
func (r *gormNotificationRepository) MarkRead(ctx context.Context, userID, notificationID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	return res.RowsAffected, res.Error
}
