package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"gobear/internal/models"
)

// FriendshipRepository defines the interface for friendship data operations.
// A friendship is two directed rows; CreateBoth and DeleteBoth keep the pair
// in lockstep. Callers run them inside a transaction.
type FriendshipRepository interface {
	CreateBoth(ctx context.Context, userID1, userID2 uint, since time.Time) error
	DeleteBoth(ctx context.Context, userID1, userID2 uint) (int64, error)
	Exists(ctx context.Context, userID, friendID uint) (bool, error)
	GetFriendIDs(ctx context.Context, userID uint) ([]uint, error)
}

type gormFriendshipRepository struct {
	db *gorm.DB
}

// NewGormFriendshipRepository creates a new GORM-based FriendshipRepository.
func NewGormFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &gormFriendshipRepository{db: db}
}

// CreateBoth inserts the two directed rows that make up one friendship,
// sharing a single Since timestamp.
func (r *gormFriendshipRepository) CreateBoth(ctx context.Context, userID1, userID2 uint, since time.Time) error {
	rows := []models.Friendship{
		{UserID: userID1, FriendID: userID2, Since: since},
		{UserID: userID2, FriendID: userID1, Since: since},
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// DeleteBoth removes both directed rows. Returns the number of rows removed;
// zero is not an error (unfriend is idempotent at the service layer).
// The delete is unscoped: a tombstoned row would keep occupying the unique
// (user_id, friend_id) edge index and block a later re-friend.
func (r *gormFriendshipRepository) DeleteBoth(ctx context.Context, userID1, userID2 uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Unscoped().
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", userID1, userID2, userID2, userID1).
		Delete(&models.Friendship{})
	return res.RowsAffected, res.Error
}

// Exists checks for the directed row userID -> friendID. By the symmetry
// invariant this answers "are they friends" for either direction.
func (r *gormFriendshipRepository) Exists(ctx context.Context, userID, friendID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetFriendIDs retrieves the IDs of every friend of the given user.
// A single lookup under the user's own edge rows.
func (r *gormFriendshipRepository) GetFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var friendIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("user_id = ?", userID).
		Order("since DESC").
		Pluck("friend_id", &friendIDs).Error
	if err != nil {
		return nil, err
	}
	return friendIDs, nil
}
