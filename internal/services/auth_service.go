package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"gobear/internal/auth"
	"gobear/internal/config"
	"gobear/internal/models"
	"gobear/internal/storage"
)

// AuthService defines the interface for user authentication.
type AuthService interface {
	Register(ctx context.Context, username, nickname, email, password string) (*models.User, error)
	Login(ctx context.Context, usernameOrEmail, password string) (token string, user *models.User, err error)
	// Logout revokes the token identified by jti until its natural expiry.
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
}

// authService is the implementation of AuthService.
type authService struct {
	userRepo  storage.UserRepository
	blacklist auth.TokenBlacklist
	cfg       config.Config
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo storage.UserRepository, blacklist auth.TokenBlacklist, cfg config.Config) AuthService {
	return &authService{
		userRepo:  userRepo,
		blacklist: blacklist,
		cfg:       cfg,
	}
}

// Register creates a new account. Username and email must both be unused;
// emails are compared case-insensitively.
func (s *authService) Register(ctx context.Context, username, nickname, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	emailLower, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	_, err = s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	_, err = s.userRepo.GetByEmail(ctx, emailLower)
	if err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &models.User{
		Username:     username,
		Nickname:     strings.TrimSpace(nickname),
		Email:        strings.TrimSpace(email),
		EmailLower:   emailLower,
		PasswordHash: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("User %d (%s) registered", newUser.ID, newUser.Username)
	return newUser, nil
}

// Login authenticates by username or email and issues a JWT on success.
func (s *authService) Login(ctx context.Context, usernameOrEmail, password string) (string, *models.User, error) {
	var user *models.User
	var err error

	user, err = s.userRepo.GetByUsername(ctx, usernameOrEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.userRepo.GetByEmail(ctx, usernameOrEmail)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same error as a bad password so login probes cannot enumerate accounts.
			return "", nil, ErrInvalidCredentials
		} else if err != nil {
			return "", nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
	} else if err != nil {
		return "", nil, fmt.Errorf("failed to look up user by username: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, s.cfg.Auth)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, user, nil
}

// Logout blacklists the token's JTI so it stops validating immediately.
func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return fmt.Errorf("%w: token has no ID", ErrInvalidInput)
	}
	if err := s.blacklist.Add(ctx, jti, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
