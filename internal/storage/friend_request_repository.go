package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"gobear/internal/models"
)

// FriendRequestRepository defines the interface for friend request data operations.
type FriendRequestRepository interface {
	Create(ctx context.Context, request *models.FriendRequest) error
	FindPendingBetween(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error)
	GetByID(ctx context.Context, requestID uint) (*models.FriendRequest, error)
	// UpdateStatusIfPending performs the guarded transition: the row is only
	// written if it is still pending at commit time. Returns the number of
	// rows affected (0 means the precondition no longer held).
	UpdateStatusIfPending(ctx context.Context, requestID uint, status models.FriendRequestStatus) (int64, error)
	ListPendingForRecipient(ctx context.Context, toUserID uint) ([]models.FriendRequest, error)
	ListPendingForSender(ctx context.Context, fromUserID uint) ([]models.FriendRequest, error)
	ListPendingInvolving(ctx context.Context, userID uint) ([]models.FriendRequest, error)
}

type gormFriendRequestRepository struct {
	db *gorm.DB
}

// NewGormFriendRequestRepository creates a new GORM-based FriendRequestRepository.
func NewGormFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &gormFriendRequestRepository{db: db}
}

func (r *gormFriendRequestRepository) Create(ctx context.Context, request *models.FriendRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// FindPendingBetween checks for an existing pending request between two users,
// in either direction. Returns nil without error when none exists.
func (r *gormFriendRequestRepository) FindPendingBetween(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", userID1, userID2, userID2, userID1).
		Where("status = ?", models.FriendRequestStatusPending).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) GetByID(ctx context.Context, requestID uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).First(&request, requestID).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) UpdateStatusIfPending(ctx context.Context, requestID uint, status models.FriendRequestStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.FriendRequest{}).
		Where("id = ? AND status = ?", requestID, models.FriendRequestStatusPending).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *gormFriendRequestRepository) ListPendingForRecipient(ctx context.Context, toUserID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("to_user_id = ? AND status = ?", toUserID, models.FriendRequestStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *gormFriendRequestRepository) ListPendingForSender(ctx context.Context, fromUserID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND status = ?", fromUserID, models.FriendRequestStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// ListPendingInvolving returns every pending request the user is part of, in
// either direction. Used to annotate search results in one query.
func (r *gormFriendRequestRepository) ListPendingInvolving(ctx context.Context, userID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(from_user_id = ? OR to_user_id = ?) AND status = ?", userID, userID, models.FriendRequestStatusPending).
		Find(&requests).Error
	return requests, err
}
