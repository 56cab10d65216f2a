package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"gobear/internal/models"
	"gobear/internal/storage"
)

// ProfileUpdate carries the optional profile fields of an update request.
// Nil pointers mean "leave unchanged".
type ProfileUpdate struct {
	Nickname  *string `json:"nickname,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

// UserService defines the interface for user profile operations.
type UserService interface {
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
	GetBasicInfo(ctx context.Context, userID uint) (*models.UserBasicInfo, error)
	UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error)
}

type userService struct {
	userRepo storage.UserRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetProfile returns the full user record for the caller's own profile view.
func (s *userService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user %d: %w", userID, err)
	}
	return user, nil
}

// GetBasicInfo returns the public view of another user.
func (s *userService) GetBasicInfo(ctx context.Context, userID uint) (*models.UserBasicInfo, error) {
	info, err := s.userRepo.GetBasicInfoByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user %d: %w", userID, err)
	}
	return info, nil
}

// UpdateProfile applies the provided fields to the caller's profile.
func (s *userService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Nickname != nil {
		user.Nickname = strings.TrimSpace(*update.Nickname)
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	return user, nil
}
